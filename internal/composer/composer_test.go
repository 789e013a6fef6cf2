package composer

import (
	"context"
	"errors"
	"sync"
	"testing"

	"byokchat/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestComposer(send SendFunc, changeModel ChangeModelFunc) *Composer {
	if send == nil {
		send = func(context.Context, string) error { return nil }
	}
	if changeModel == nil {
		changeModel = func(context.Context, core.ProviderName, string) error { return nil }
	}
	return New(core.ProviderOpenAI, "gpt-5-nano", send, changeModel)
}

func TestCanSubmit_Gates(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(c *Composer)
		expect bool
	}{
		{"empty prompt", func(c *Composer) {}, false},
		{"whitespace only", func(c *Composer) { c.SetPrompt("   \t\n") }, false},
		{"has prompt", func(c *Composer) { c.SetPrompt("hello") }, true},
		{"streaming", func(c *Composer) {
			c.SetPrompt("hello")
			c.SetStreaming(true)
		}, false},
		{"model updating", func(c *Composer) {
			c.SetPrompt("hello")
			c.modelUpdating = true
		}, false},
		{"submitting", func(c *Composer) {
			c.SetPrompt("hello")
			c.submitting = true
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestComposer(nil, nil)
			tt.setup(c)
			assert.Equal(t, tt.expect, c.CanSubmit())
		})
	}
}

func TestSubmit_GatedIsSilentNoop(t *testing.T) {
	called := false
	c := newTestComposer(func(context.Context, string) error {
		called = true
		return nil
	}, nil)

	submitted, err := c.Submit(context.Background())

	require.NoError(t, err)
	assert.False(t, submitted)
	assert.False(t, called, "send must not fire when the gate blocks")
}

func TestSubmit_SuccessClearsPrompt(t *testing.T) {
	var sentPrompt string
	c := newTestComposer(func(_ context.Context, prompt string) error {
		sentPrompt = prompt
		return nil
	}, nil)
	c.SetPrompt("  what is a monad?  ")

	submitted, err := c.Submit(context.Background())

	require.NoError(t, err)
	assert.True(t, submitted)
	assert.Equal(t, "what is a monad?", sentPrompt, "prompt is trimmed before send")
	assert.Empty(t, c.Prompt())
	assert.False(t, c.CanSubmit())
}

func TestSubmit_FailureKeepsPrompt(t *testing.T) {
	sendErr := errors.New("queue unavailable")
	c := newTestComposer(func(context.Context, string) error { return sendErr }, nil)
	c.SetPrompt("hello")

	submitted, err := c.Submit(context.Background())

	require.ErrorIs(t, err, sendErr)
	assert.False(t, submitted)
	assert.Equal(t, "hello", c.Prompt(), "failed send must not eat the draft")
	assert.True(t, c.CanSubmit(), "composer recovers after a failed send")
}

func TestSubmit_BlockedWhileSendInFlight(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	c := newTestComposer(func(context.Context, string) error {
		close(entered)
		<-release
		return nil
	}, nil)
	c.SetPrompt("first")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		submitted, err := c.Submit(context.Background())
		assert.True(t, submitted)
		assert.NoError(t, err)
	}()

	<-entered
	c.SetPrompt("second")
	submitted, err := c.Submit(context.Background())
	assert.False(t, submitted, "second submit must be gated while the first is in flight")
	assert.NoError(t, err)

	close(release)
	wg.Wait()
}

func TestChangeModel_OptimisticThenCommit(t *testing.T) {
	var committed []string
	c := newTestComposer(nil, func(_ context.Context, provider core.ProviderName, modelID string) error {
		committed = append(committed, string(provider)+"/"+modelID)
		return nil
	})

	changed, err := c.ChangeModel(context.Background(), core.ProviderAnthropic, "claude-haiku-4-5")

	require.NoError(t, err)
	assert.True(t, changed)
	provider, modelID := c.Selection()
	assert.Equal(t, core.ProviderAnthropic, provider)
	assert.Equal(t, "claude-haiku-4-5", modelID)
	assert.Equal(t, []string{"anthropic/claude-haiku-4-5"}, committed)
}

func TestChangeModel_FailureRollsBack(t *testing.T) {
	c := newTestComposer(nil, func(context.Context, core.ProviderName, string) error {
		return errors.New("persist failed")
	})

	changed, err := c.ChangeModel(context.Background(), core.ProviderGoogle, "gemini-3-flash-preview")

	require.Error(t, err)
	assert.False(t, changed)
	provider, modelID := c.Selection()
	assert.Equal(t, core.ProviderOpenAI, provider, "rollback restores the previous provider")
	assert.Equal(t, "gpt-5-nano", modelID)
}

func TestChangeModel_SamePairIsNoop(t *testing.T) {
	called := false
	c := newTestComposer(nil, func(context.Context, core.ProviderName, string) error {
		called = true
		return nil
	})

	changed, err := c.ChangeModel(context.Background(), core.ProviderOpenAI, "gpt-5-nano")

	require.NoError(t, err)
	assert.False(t, changed)
	assert.False(t, called, "identical selection must not hit the backend")
}

func TestChangeModel_BlockedWhileUpdateInFlight(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	c := newTestComposer(nil, func(context.Context, core.ProviderName, string) error {
		close(entered)
		<-release
		return nil
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		changed, err := c.ChangeModel(context.Background(), core.ProviderGoogle, "gemini-3-pro-preview")
		assert.True(t, changed)
		assert.NoError(t, err)
	}()

	<-entered
	changed, err := c.ChangeModel(context.Background(), core.ProviderAnthropic, "claude-sonnet-4-6")
	assert.False(t, changed, "only one model change may be in flight")
	assert.NoError(t, err)

	close(release)
	wg.Wait()

	provider, modelID := c.Selection()
	assert.Equal(t, core.ProviderGoogle, provider)
	assert.Equal(t, "gemini-3-pro-preview", modelID)
}

func TestChangeModel_BlocksSubmitDuringUpdate(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	c := newTestComposer(nil, func(context.Context, core.ProviderName, string) error {
		close(entered)
		<-release
		return nil
	})
	c.SetPrompt("hello")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = c.ChangeModel(context.Background(), core.ProviderGoogle, "gemini-3-flash-preview")
	}()

	<-entered
	assert.False(t, c.CanSubmit(), "submit is gated while a model change is pending")

	close(release)
	wg.Wait()
	assert.True(t, c.CanSubmit())
}
