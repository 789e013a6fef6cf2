package core

// ProviderName 封閉枚舉：系統支援的模型供應商
type ProviderName string

const (
	ProviderOpenAI    ProviderName = "openai"
	ProviderGoogle    ProviderName = "google"
	ProviderAnthropic ProviderName = "anthropic"
)

// Providers 所有合法的 provider；順序即 UI 顯示順序
var Providers = []ProviderName{ProviderOpenAI, ProviderGoogle, ProviderAnthropic}

// IsValidProvider 檢查字串是否為合法 provider
func IsValidProvider(p ProviderName) bool {
	switch p {
	case ProviderOpenAI, ProviderGoogle, ProviderAnthropic:
		return true
	default:
		return false
	}
}

const (
	OpenAIAPIBaseURL    = "https://api.openai.com"
	GoogleAPIBaseURL    = "https://generativelanguage.googleapis.com"
	AnthropicAPIBaseURL = "https://api.anthropic.com"
)
