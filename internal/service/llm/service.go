package llm

import (
	"context"
	"net/http"
	"time"

	"github.com/google/wire"
)

// Message 一輪上下文
type Message struct {
	Role    string `json:"role"` // "user" / "assistant"
	Content string `json:"content"`
}

// StreamRequest 一次串流生成的輸入
type StreamRequest struct {
	Model    string
	Messages []Message
}

// Usage token 用量（provider 有回才填）
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// StreamResult 串流結束後的定稿結果
type StreamResult struct {
	Text  string
	Usage Usage
}

// Client 對單一 provider、持單一把 key 的串流生成客戶端。
// onDelta 依序收到每個文字片段；onDelta 回錯會中止串流。
type Client interface {
	StreamText(ctx context.Context, request *StreamRequest, onDelta func(delta string) error) (*StreamResult, error)
}

// NewHTTPClient 給所有 provider 共用的 HTTP client。
// 串流回應可能拉得很長，逾時交由呼叫端 context 控制。
func NewHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        32,
			MaxIdleConnsPerHost: 8,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

var ProviderSet = wire.NewSet(
	NewHTTPClient,
	NewResolver,
)

// SSE data 行的前綴
const sseDataPrefix = "data: "
