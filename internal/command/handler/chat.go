package command

import (
	"bufio"
	"context"
	"os"
	"strings"
	"time"

	"byokchat/internal/composer"
	"byokchat/internal/core"
	"byokchat/internal/dto"
	"byokchat/internal/service"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ChatHandler 終端 REPL：直接打本地 service 堆疊，不經 HTTP。
// 生成 worker 跟著 REPL 一起跑，送出後輪詢同步把 delta 印出來。
type ChatHandler struct {
	logger            *zap.Logger
	threadService     *service.ThreadService
	messageService    *service.MessageService
	generationService *service.GenerationService
}

func NewChatHandler(
	logger *zap.Logger,
	threadService *service.ThreadService,
	messageService *service.MessageService,
	generationService *service.GenerationService,
) *ChatHandler {
	return &ChatHandler{
		logger:            logger,
		threadService:     threadService,
		messageService:    messageService,
		generationService: generationService,
	}
}

func (handler *ChatHandler) Run(cmd *cobra.Command, args []string) {
	userID, _ := cmd.Flags().GetString("user")
	providerFlag, _ := cmd.Flags().GetString("provider")
	modelFlag, _ := cmd.Flags().GetString("model")

	principal := core.Principal{UserID: userID}
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// worker 跟著 REPL 一起跑，送出的訊息才會真的被生成
	go handler.generationService.Run(ctx)

	thread, createError := handler.threadService.Create(ctx, principal, &dto.CreateThreadDto{
		Provider: core.ProviderName(providerFlag),
		ModelID:  modelFlag,
	})
	if createError != nil {
		cmd.PrintErrln("create chat failed:", createError)
		return
	}
	chatID, _ := primitive.ObjectIDFromHex(thread.ID)
	cmd.Printf("chat %s (%s / %s)\n", thread.ID, thread.Provider, thread.ModelID)
	cmd.Println(`commands: /model <provider> <modelId>, /quit`)

	editor := composer.New(
		thread.Provider,
		thread.ModelID,
		func(sendCtx context.Context, prompt string) error {
			sent, sendError := handler.messageService.Send(sendCtx, principal, chatID, &dto.SendMessageDto{Prompt: prompt})
			if sendError != nil {
				return sendError
			}
			handler.streamReply(sendCtx, cmd, principal, chatID, sent.AssistantMessageID)
			return nil
		},
		func(changeCtx context.Context, provider core.ProviderName, modelID string) error {
			_, changeError := handler.threadService.ChangeModel(changeCtx, principal, chatID, &dto.UpdateThreadModelDto{
				Provider: provider,
				ModelID:  modelID,
			})
			return changeError
		},
	)

	scanner := bufio.NewScanner(os.Stdin)
	cmd.Print("> ")
	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case strings.TrimSpace(line) == "/quit":
			return
		case strings.HasPrefix(strings.TrimSpace(line), "/model"):
			fields := strings.Fields(line)
			if len(fields) != 3 {
				cmd.Println("usage: /model <provider> <modelId>")
				cmd.Print("> ")
				continue
			}
			changed, changeError := editor.ChangeModel(ctx, core.ProviderName(fields[1]), fields[2])
			if changeError != nil {
				// 失敗已回滾，目前選擇照舊
				cmd.PrintErrln("model change failed:", changeError)
			} else if changed {
				provider, modelID := editor.Selection()
				cmd.Printf("model -> %s / %s\n", provider, modelID)
			}
		default:
			editor.SetPrompt(line)
			submitted, submitError := editor.Submit(ctx)
			if submitError != nil {
				// prompt 留著，使用者可直接重送
				cmd.PrintErrln("send failed:", submitError)
			} else if !submitted && strings.TrimSpace(line) != "" {
				cmd.Println("(busy, try again in a moment)")
			}
		}
		cmd.Print("> ")
	}
}

// streamReply 輪詢同步直到 assistant 訊息定稿，途中把 delta 即時印出
func (handler *ChatHandler) streamReply(
	ctx context.Context,
	cmd *cobra.Command,
	principal core.Principal,
	chatID primitive.ObjectID,
	assistantMessageID string,
) {
	var afterSeq int64 = -1
	var streamCursor int64 = -1

	ticker := time.NewTicker(300 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		sync, syncError := handler.messageService.Sync(ctx, principal, chatID, afterSeq, streamCursor)
		if syncError != nil {
			cmd.PrintErrln("sync failed:", syncError)
			return
		}

		for _, delta := range sync.StreamDeltas {
			if delta.MessageID != assistantMessageID {
				continue
			}
			cmd.Print(delta.Content)
			if delta.Index > streamCursor {
				streamCursor = delta.Index
			}
		}

		for _, message := range sync.Messages {
			if message.ID != assistantMessageID {
				if message.Seq > afterSeq {
					afterSeq = message.Seq
				}
				continue
			}
			switch message.Status {
			case "complete":
				cmd.Println()
				return
			case "error":
				cmd.Println()
				cmd.PrintErrln("generation failed:", message.Error)
				return
			}
		}
	}
}
