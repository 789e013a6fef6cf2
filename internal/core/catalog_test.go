package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultModels_AreInCatalog(t *testing.T) {
	for provider, modelID := range DefaultModels {
		assert.True(t, IsSupportedModel(provider, modelID),
			"default model %s/%s must be a catalog member", provider, modelID)
	}
}

func TestEveryProviderHasADefault(t *testing.T) {
	seen := map[ProviderName]bool{}
	for _, opt := range ChatModelOptions {
		seen[opt.Provider] = true
	}
	for provider := range seen {
		require.NotEmpty(t, DefaultModel(provider), "provider %s has no default", provider)
	}
}

func TestSupportedModels_FiltersByProvider(t *testing.T) {
	models := SupportedModels(ProviderOpenAI)

	require.NotEmpty(t, models)
	for _, id := range models {
		assert.True(t, IsSupportedModel(ProviderOpenAI, id))
		assert.False(t, IsSupportedModel(ProviderAnthropic, id))
	}
}

func TestSupportedModels_UnknownProviderEmpty(t *testing.T) {
	assert.Empty(t, SupportedModels(ProviderName("mistral")))
	assert.Empty(t, DefaultModel(ProviderName("mistral")))
}

func TestIsSupportedModel_RejectsCrossProvider(t *testing.T) {
	// modelId 存在但 provider 不對，仍要拒絕
	assert.True(t, IsSupportedModel(ProviderAnthropic, "claude-opus-4-6"))
	assert.False(t, IsSupportedModel(ProviderOpenAI, "claude-opus-4-6"))
	assert.False(t, IsSupportedModel(ProviderGoogle, "gpt-5-nano"))
}

func TestIsValidProvider(t *testing.T) {
	assert.True(t, IsValidProvider(ProviderOpenAI))
	assert.True(t, IsValidProvider(ProviderGoogle))
	assert.True(t, IsValidProvider(ProviderAnthropic))
	assert.False(t, IsValidProvider(ProviderName("")))
	assert.False(t, IsValidProvider(ProviderName("azure")))
}

func TestListOptions_Normalize(t *testing.T) {
	tests := []struct {
		name     string
		in       ListOptions
		wantPage int64
		wantSize int64
	}{
		{"zero values", ListOptions{}, 1, 20},
		{"negative page", ListOptions{Page: -3, Size: 10}, 1, 10},
		{"size over cap", ListOptions{Page: 2, Size: 500}, 2, 100},
		{"in range", ListOptions{Page: 4, Size: 50}, 4, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.Normalize()
			assert.Equal(t, tt.wantPage, got.Page)
			assert.Equal(t, tt.wantSize, got.Size)
		})
	}
}
