package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"byokchat/internal/core"
	cErr "byokchat/internal/pkg/error"
	"byokchat/internal/telemetry"

	"go.opentelemetry.io/otel/attribute"
)

type openAIClient struct {
	trace      *telemetry.Trace
	httpClient *http.Client
	apiKey     string
}

func newOpenAIClient(trace *telemetry.Trace, httpClient *http.Client, apiKey string) *openAIClient {
	return &openAIClient{trace: trace, httpClient: httpClient, apiKey: apiKey}
}

type openAIChatPayload struct {
	Model         string          `json:"model"`
	Messages      []Message       `json:"messages"`
	Stream        bool            `json:"stream"`
	StreamOptions map[string]bool `json:"stream_options,omitempty"`
}

type openAIStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// StreamText 呼叫 OpenAI Chat Completions（SSE 串流）。
// 失敗時依錯誤類型回傳：
//   - 請求送出/對方非 2xx：ExternalRequestError
//   - 串流片段解碼失敗：ExternalResponseFormatError
//   - 本地序列化/建請失敗：InternalServer
func (client *openAIClient) StreamText(
	ctx context.Context,
	request *StreamRequest,
	onDelta func(delta string) error,
) (_ *StreamResult, returnedError error) {
	url := core.OpenAIAPIBaseURL + "/v1/chat/completions"
	ctx, span, end := client.trace.WithSpan(ctx, "openai.chat.stream")
	defer func() { end(returnedError) }()

	span.SetAttributes(
		attribute.String("ai.provider", string(core.ProviderOpenAI)),
		attribute.String("ai.model", request.Model),
		attribute.String("http.url", url),
	)

	payload, err := json.Marshal(&openAIChatPayload{
		Model:         request.Model,
		Messages:      request.Messages,
		Stream:        true,
		StreamOptions: map[string]bool{"include_usage": true},
	})
	if err != nil {
		returnedError = cErr.InternalServer("marshal chat payload failed")
		return nil, returnedError
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		returnedError = cErr.InternalServer("create http request failed")
		return nil, returnedError
	}
	httpReq.Header.Set("Authorization", "Bearer "+client.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := client.httpClient.Do(httpReq)
	if err != nil {
		returnedError = cErr.ExternalRequestError("openai api request failed")
		return nil, returnedError
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		b, _ := io.ReadAll(resp.Body)
		returnedError = cErr.ExternalRequestError("openai api error: " + strings.TrimSpace(string(b)))
		return nil, returnedError
	}

	var fullText strings.Builder
	result := &StreamResult{}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, sseDataPrefix) {
			continue
		}
		data := strings.TrimPrefix(line, sseDataPrefix)
		if data == "[DONE]" {
			break
		}

		var chunk openAIStreamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			returnedError = cErr.ExternalResponseFormatError("decode openai stream chunk failed")
			return nil, returnedError
		}
		if chunk.Usage != nil {
			result.Usage.InputTokens = chunk.Usage.PromptTokens
			result.Usage.OutputTokens = chunk.Usage.CompletionTokens
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		fullText.WriteString(delta)
		if err := onDelta(delta); err != nil {
			returnedError = err
			return nil, returnedError
		}
	}
	if err := scanner.Err(); err != nil {
		returnedError = cErr.ExternalResponseFormatError(fmt.Sprintf("read openai stream failed: %v", err))
		return nil, returnedError
	}

	result.Text = fullText.String()
	return result, nil
}
