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

const anthropicAPIVersion = "2023-06-01"

// 單次回覆的輸出上限；Messages API 的必填欄位
const anthropicMaxTokens = 8192

type anthropicClient struct {
	trace      *telemetry.Trace
	httpClient *http.Client
	apiKey     string
}

func newAnthropicClient(trace *telemetry.Trace, httpClient *http.Client, apiKey string) *anthropicClient {
	return &anthropicClient{trace: trace, httpClient: httpClient, apiKey: apiKey}
}

type anthropicMessagesPayload struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []Message `json:"messages"`
	Stream    bool      `json:"stream"`
}

type anthropicStreamEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
	Usage *struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Message *struct {
		Usage struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
		} `json:"usage"`
	} `json:"message"`
}

// StreamText 呼叫 Anthropic Messages API（SSE 串流）。
// 文字片段來自 content_block_delta 事件的 delta.text。
func (client *anthropicClient) StreamText(
	ctx context.Context,
	request *StreamRequest,
	onDelta func(delta string) error,
) (_ *StreamResult, returnedError error) {
	url := core.AnthropicAPIBaseURL + "/v1/messages"
	ctx, span, end := client.trace.WithSpan(ctx, "anthropic.messages.stream")
	defer func() { end(returnedError) }()

	span.SetAttributes(
		attribute.String("ai.provider", string(core.ProviderAnthropic)),
		attribute.String("ai.model", request.Model),
		attribute.String("http.url", url),
	)

	payload, err := json.Marshal(&anthropicMessagesPayload{
		Model:     request.Model,
		MaxTokens: anthropicMaxTokens,
		Messages:  request.Messages,
		Stream:    true,
	})
	if err != nil {
		returnedError = cErr.InternalServer("marshal messages payload failed")
		return nil, returnedError
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		returnedError = cErr.InternalServer("create http request failed")
		return nil, returnedError
	}
	httpReq.Header.Set("x-api-key", client.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicAPIVersion)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := client.httpClient.Do(httpReq)
	if err != nil {
		returnedError = cErr.ExternalRequestError("anthropic api request failed")
		return nil, returnedError
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		b, _ := io.ReadAll(resp.Body)
		returnedError = cErr.ExternalRequestError("anthropic api error: " + strings.TrimSpace(string(b)))
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

		var event anthropicStreamEvent
		if err := json.Unmarshal([]byte(data), &event); err != nil {
			returnedError = cErr.ExternalResponseFormatError("decode anthropic stream event failed")
			return nil, returnedError
		}

		switch event.Type {
		case "message_start":
			if event.Message != nil {
				result.Usage.InputTokens = event.Message.Usage.InputTokens
			}
		case "content_block_delta":
			if event.Delta.Type != "text_delta" || event.Delta.Text == "" {
				continue
			}
			fullText.WriteString(event.Delta.Text)
			if err := onDelta(event.Delta.Text); err != nil {
				returnedError = err
				return nil, returnedError
			}
		case "message_delta":
			if event.Usage != nil {
				result.Usage.OutputTokens = event.Usage.OutputTokens
			}
		case "message_stop":
			// 串流正常收尾
		}
	}
	if err := scanner.Err(); err != nil {
		returnedError = cErr.ExternalResponseFormatError(fmt.Sprintf("read anthropic stream failed: %v", err))
		return nil, returnedError
	}

	result.Text = fullText.String()
	return result, nil
}
