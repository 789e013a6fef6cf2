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

type googleClient struct {
	trace      *telemetry.Trace
	httpClient *http.Client
	apiKey     string
}

func newGoogleClient(trace *telemetry.Trace, httpClient *http.Client, apiKey string) *googleClient {
	return &googleClient{trace: trace, httpClient: httpClient, apiKey: apiKey}
}

type googlePart struct {
	Text string `json:"text"`
}

type googleContent struct {
	Role  string       `json:"role"` // "user" / "model"
	Parts []googlePart `json:"parts"`
}

type googleGeneratePayload struct {
	Contents []googleContent `json:"contents"`
}

type googleStreamChunk struct {
	Candidates []struct {
		Content googleContent `json:"content"`
	} `json:"candidates"`
	UsageMetadata *struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

// StreamText 呼叫 Gemini streamGenerateContent（alt=sse）。
// 角色對映：assistant → model；其餘視為 user。
func (client *googleClient) StreamText(
	ctx context.Context,
	request *StreamRequest,
	onDelta func(delta string) error,
) (_ *StreamResult, returnedError error) {
	url := fmt.Sprintf("%s/v1beta/models/%s:streamGenerateContent?alt=sse", core.GoogleAPIBaseURL, request.Model)
	ctx, span, end := client.trace.WithSpan(ctx, "google.generate.stream")
	defer func() { end(returnedError) }()

	span.SetAttributes(
		attribute.String("ai.provider", string(core.ProviderGoogle)),
		attribute.String("ai.model", request.Model),
	)

	contents := make([]googleContent, 0, len(request.Messages))
	for _, message := range request.Messages {
		role := "user"
		if message.Role == "assistant" {
			role = "model"
		}
		contents = append(contents, googleContent{
			Role:  role,
			Parts: []googlePart{{Text: message.Content}},
		})
	}

	payload, err := json.Marshal(&googleGeneratePayload{Contents: contents})
	if err != nil {
		returnedError = cErr.InternalServer("marshal generate payload failed")
		return nil, returnedError
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		returnedError = cErr.InternalServer("create http request failed")
		return nil, returnedError
	}
	httpReq.Header.Set("x-goog-api-key", client.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := client.httpClient.Do(httpReq)
	if err != nil {
		returnedError = cErr.ExternalRequestError("google api request failed")
		return nil, returnedError
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		b, _ := io.ReadAll(resp.Body)
		returnedError = cErr.ExternalRequestError("google api error: " + strings.TrimSpace(string(b)))
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

		var chunk googleStreamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			returnedError = cErr.ExternalResponseFormatError("decode google stream chunk failed")
			return nil, returnedError
		}
		if chunk.UsageMetadata != nil {
			result.Usage.InputTokens = chunk.UsageMetadata.PromptTokenCount
			result.Usage.OutputTokens = chunk.UsageMetadata.CandidatesTokenCount
		}
		if len(chunk.Candidates) == 0 {
			continue
		}
		for _, part := range chunk.Candidates[0].Content.Parts {
			if part.Text == "" {
				continue
			}
			fullText.WriteString(part.Text)
			if err := onDelta(part.Text); err != nil {
				returnedError = err
				return nil, returnedError
			}
		}
	}
	if err := scanner.Err(); err != nil {
		returnedError = cErr.ExternalResponseFormatError(fmt.Sprintf("read google stream failed: %v", err))
		return nil, returnedError
	}

	result.Text = fullText.String()
	return result, nil
}
