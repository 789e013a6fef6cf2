// Package composer 輸入框的狀態機：何時能送出、送出後 prompt 的去留、
// 換模型的樂觀更新與回滾。純記憶體狀態，實際送出與換模型由注入的
// callback 執行，任何前端（REPL、HTTP client）都能掛上來。
package composer

import (
	"context"
	"strings"
	"sync"

	"byokchat/internal/core"
)

// SendFunc 真正送出訊息；回錯代表這次送出沒有成立
type SendFunc func(ctx context.Context, prompt string) error

// ChangeModelFunc 真正提交模型切換
type ChangeModelFunc func(ctx context.Context, provider core.ProviderName, modelID string) error

type Composer struct {
	mu sync.Mutex

	prompt        string
	provider      core.ProviderName
	modelID       string
	submitting    bool
	streaming     bool
	modelUpdating bool

	send        SendFunc
	changeModel ChangeModelFunc
}

func New(provider core.ProviderName, modelID string, send SendFunc, changeModel ChangeModelFunc) *Composer {
	return &Composer{
		provider:    provider,
		modelID:     modelID,
		send:        send,
		changeModel: changeModel,
	}
}

func (c *Composer) SetPrompt(prompt string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prompt = prompt
}

func (c *Composer) Prompt() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.prompt
}

// SetStreaming 由同步迴圈驅動：此 chat 是否有 assistant 訊息在串流中
func (c *Composer) SetStreaming(streaming bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.streaming = streaming
}

// Selection 目前選定的 (provider, modelId)
func (c *Composer) Selection() (core.ProviderName, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.provider, c.modelID
}

// CanSubmit 送出閘門：trim 後空白、送出中、串流中、換模型中，任一成立就擋下
func (c *Composer) CanSubmit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.canSubmitLocked()
}

func (c *Composer) canSubmitLocked() bool {
	if strings.TrimSpace(c.prompt) == "" {
		return false
	}
	if c.submitting || c.streaming || c.modelUpdating {
		return false
	}
	return true
}

// Submit 嘗試送出。被閘門擋下時是安靜的 no-op，回 (false, nil)。
// 成功：prompt 清空。失敗：prompt 原封不動，使用者不用重打。
func (c *Composer) Submit(ctx context.Context) (submitted bool, returnedError error) {
	c.mu.Lock()
	if !c.canSubmitLocked() {
		c.mu.Unlock()
		return false, nil
	}
	c.submitting = true
	prompt := strings.TrimSpace(c.prompt)
	c.mu.Unlock()

	sendError := c.send(ctx, prompt)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.submitting = false
	if sendError != nil {
		return false, sendError
	}
	c.prompt = ""
	return true, nil
}

// ChangeModel 樂觀切換：選定值先換再提交，失敗整組滾回原值。
// 與現值相同的組合、或已有一次切換在途，都是安靜的 no-op。
func (c *Composer) ChangeModel(
	ctx context.Context,
	provider core.ProviderName,
	modelID string,
) (changed bool, returnedError error) {
	c.mu.Lock()
	if c.modelUpdating {
		c.mu.Unlock()
		return false, nil
	}
	if c.provider == provider && c.modelID == modelID {
		c.mu.Unlock()
		return false, nil
	}
	previousProvider, previousModelID := c.provider, c.modelID
	c.provider, c.modelID = provider, modelID
	c.modelUpdating = true
	c.mu.Unlock()

	changeError := c.changeModel(ctx, provider, modelID)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.modelUpdating = false
	if changeError != nil {
		c.provider, c.modelID = previousProvider, previousModelID
		return false, changeError
	}
	return true, nil
}
