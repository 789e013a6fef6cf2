// Package agent 管理對話 thread、訊息與串流增量的持久化。
// orchestration 層只透過 thread handle 與訊息識別操作，
// 不直接觸碰 agent 的集合。
package agent

import (
	"context"
	"strings"

	"byokchat/internal/core"
	"byokchat/internal/database/mongodb/model"
	"byokchat/internal/database/mongodb/repository"
	"byokchat/internal/telemetry"

	"github.com/google/uuid"
	"github.com/google/wire"
	"go.uber.org/zap"
)

// Turn 一輪對話（給 LLM 的上下文用）
type Turn struct {
	Role    model.MessageRole
	Content string
}

// StreamFunc 由呼叫端提供：拿完整對話歷史，逐段回報 delta，回傳定稿全文。
// onDelta 回錯會中止串流。
type StreamFunc func(ctx context.Context, history []Turn, onDelta func(content string) error) (finalText string, returnedError error)

// SyncResult 一次增量同步的結果
type SyncResult struct {
	Messages     []*model.AgentMessage
	StreamDeltas []*model.AgentStreamDelta
}

type Agent struct {
	logger    *zap.Logger
	trace     *telemetry.Trace
	agentRepo *repository.AgentRepository
}

func NewAgent(logger *zap.Logger, trace *telemetry.Trace, agentRepo *repository.AgentRepository) *Agent {
	return &Agent{logger: logger, trace: trace, agentRepo: agentRepo}
}

var ProviderSet = wire.NewSet(NewAgent)

// CreateThread 建立新 thread 並回傳對外 handle
func (agent *Agent) CreateThread(contextValue context.Context, userID string) (threadID string, returnedError error) {
	threadID = uuid.NewString()
	if returnedError = agent.agentRepo.CreateThread(contextValue, threadID, userID); returnedError != nil {
		return "", returnedError
	}
	return threadID, nil
}

// SubmitMessage 寫入一則 user 訊息，並同時建立 assistant 佔位訊息（status=streaming）。
// 佔位訊息一定先於任何 delta 落地，同步端因此不會讀到沒有母訊息的 delta。
func (agent *Agent) SubmitMessage(
	contextValue context.Context,
	threadID string,
	prompt string,
) (userMessageID string, assistantMessageID string, returnedError error) {
	userSeq, seqError := agent.agentRepo.NextSeq(contextValue, threadID)
	if seqError != nil {
		return "", "", seqError
	}
	userMessageID = uuid.NewString()
	if insertError := agent.agentRepo.InsertMessage(contextValue, &model.AgentMessage{
		MessageID: userMessageID,
		ThreadID:  threadID,
		Seq:       userSeq,
		Role:      model.RoleUser,
		Content:   prompt,
		Status:    model.StatusComplete,
	}); insertError != nil {
		return "", "", insertError
	}

	assistantSeq, seqError := agent.agentRepo.NextSeq(contextValue, threadID)
	if seqError != nil {
		return "", "", seqError
	}
	assistantMessageID = uuid.NewString()
	if insertError := agent.agentRepo.InsertMessage(contextValue, &model.AgentMessage{
		MessageID: assistantMessageID,
		ThreadID:  threadID,
		Seq:       assistantSeq,
		Role:      model.RoleAssistant,
		Content:   "",
		Status:    model.StatusStreaming,
	}); insertError != nil {
		return "", "", insertError
	}
	return userMessageID, assistantMessageID, nil
}

// Generate 對既有的 assistant 佔位訊息執行串流生成。
// 成功：delta 逐段落地 → FinalizeMessage → 回收 delta。
// 失敗：保留部分內容並標記 error，錯誤往上拋給 worker 決定後續。
func (agent *Agent) Generate(
	contextValue context.Context,
	threadID string,
	assistantMessageID string,
	stream StreamFunc,
) (returnedError error) {
	contextValue, span, endSpan := agent.trace.WithSpan(contextValue)
	defer func() { endSpan(returnedError) }()

	agent.trace.ApplyTraceAttributes(span, core.TraceGenerationMeta{
		ThreadID:  threadID,
		MessageID: assistantMessageID,
	})

	history, historyError := agent.buildHistory(contextValue, threadID, assistantMessageID)
	if historyError != nil {
		// 佔位訊息不能停在 streaming，否則同步端永遠等不到結局
		if markError := agent.agentRepo.MarkMessageError(contextValue, assistantMessageID, "", historyError.Error()); markError != nil {
			agent.logger.Error("failed to mark assistant message errored",
				zap.String("messageID", assistantMessageID), zap.Error(markError))
		}
		returnedError = historyError
		return returnedError
	}

	var partial strings.Builder
	var deltaIndex int64
	onDelta := func(content string) error {
		if appendError := agent.agentRepo.AppendDelta(contextValue, &model.AgentStreamDelta{
			ThreadID:  threadID,
			MessageID: assistantMessageID,
			Index:     deltaIndex,
			Content:   content,
		}); appendError != nil {
			return appendError
		}
		deltaIndex++
		partial.WriteString(content)
		return nil
	}

	finalText, streamError := stream(contextValue, history, onDelta)
	if streamError != nil {
		if markError := agent.agentRepo.MarkMessageError(contextValue, assistantMessageID, partial.String(), streamError.Error()); markError != nil {
			agent.logger.Error("failed to mark assistant message errored",
				zap.String("messageID", assistantMessageID), zap.Error(markError))
		}
		if _, cleanupError := agent.agentRepo.DeleteDeltasForMessage(contextValue, assistantMessageID); cleanupError != nil {
			agent.logger.Warn("failed to clean up stream deltas",
				zap.String("messageID", assistantMessageID), zap.Error(cleanupError))
		}
		returnedError = streamError
		return returnedError
	}

	if finalizeError := agent.agentRepo.FinalizeMessage(contextValue, assistantMessageID, finalText); finalizeError != nil {
		if markError := agent.agentRepo.MarkMessageError(contextValue, assistantMessageID, partial.String(), finalizeError.Error()); markError != nil {
			agent.logger.Error("failed to mark assistant message errored",
				zap.String("messageID", assistantMessageID), zap.Error(markError))
		}
		if _, cleanupError := agent.agentRepo.DeleteDeltasForMessage(contextValue, assistantMessageID); cleanupError != nil {
			agent.logger.Warn("failed to clean up stream deltas",
				zap.String("messageID", assistantMessageID), zap.Error(cleanupError))
		}
		returnedError = finalizeError
		return returnedError
	}
	if _, cleanupError := agent.agentRepo.DeleteDeltasForMessage(contextValue, assistantMessageID); cleanupError != nil {
		agent.logger.Warn("failed to clean up stream deltas",
			zap.String("messageID", assistantMessageID), zap.Error(cleanupError))
	}
	return nil
}

// MarkErrored 生成根本沒開始（缺 key、模型不合法）時直接把佔位訊息標成 error
func (agent *Agent) MarkErrored(
	contextValue context.Context,
	assistantMessageID string,
	errorDesc string,
) error {
	return agent.agentRepo.MarkMessageError(contextValue, assistantMessageID, "", errorDesc)
}

// Sync 增量同步：seq 大於 afterSeq 的訊息，加上串流中訊息 index 大於 streamAfterIndex 的 delta。
// 一個 chat 同時最多一個生成在途，單一 cursor 即足夠。
func (agent *Agent) Sync(
	contextValue context.Context,
	threadID string,
	afterSeq int64,
	streamAfterIndex int64,
) (_ *SyncResult, returnedError error) {
	messages, listError := agent.agentRepo.ListMessagesAfter(contextValue, threadID, afterSeq)
	if listError != nil {
		return nil, listError
	}

	streaming, streamingError := agent.agentRepo.ListStreamingMessages(contextValue, threadID)
	if streamingError != nil {
		return nil, streamingError
	}

	var deltas []*model.AgentStreamDelta
	for _, message := range streaming {
		messageDeltas, deltaError := agent.agentRepo.ListDeltasAfter(contextValue, message.MessageID, streamAfterIndex)
		if deltaError != nil {
			return nil, deltaError
		}
		deltas = append(deltas, messageDeltas...)
	}

	return &SyncResult{Messages: messages, StreamDeltas: deltas}, nil
}

// buildHistory 組出給 LLM 的上下文：佔位訊息之前所有已定稿訊息，seq 升冪
func (agent *Agent) buildHistory(
	contextValue context.Context,
	threadID string,
	assistantMessageID string,
) ([]Turn, error) {
	messages, listError := agent.agentRepo.ListMessagesAfter(contextValue, threadID, -1)
	if listError != nil {
		return nil, listError
	}

	var history []Turn
	for _, message := range messages {
		if message.MessageID == assistantMessageID {
			break
		}
		if message.Status != model.StatusComplete {
			continue
		}
		history = append(history, Turn{Role: message.Role, Content: message.Content})
	}
	return history, nil
}

// PurgeThread 回收 thread 的所有資料（janitor 用）
func (agent *Agent) PurgeThread(contextValue context.Context, threadID string) error {
	return agent.agentRepo.DeleteThreadData(contextValue, threadID)
}
