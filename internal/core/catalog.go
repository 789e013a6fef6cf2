package core

// ModelOption 靜態模型目錄的一筆：provider + modelId + 顯示名稱
type ModelOption struct {
	Provider ProviderName `json:"provider"`
	ModelID  string       `json:"modelId"`
	Label    string       `json:"label"`
}

// ChatModelOptions 部署時固定的完整模型目錄；不支援動態註冊
var ChatModelOptions = []ModelOption{
	{Provider: ProviderOpenAI, ModelID: "gpt-5.2", Label: "GPT-5.2"},
	{Provider: ProviderOpenAI, ModelID: "gpt-5-mini", Label: "GPT-5 mini"},
	{Provider: ProviderOpenAI, ModelID: "gpt-5-nano", Label: "GPT-5 nano"},
	{Provider: ProviderGoogle, ModelID: "gemini-3.1-pro-preview", Label: "Gemini 3.1 Pro Preview"},
	{Provider: ProviderGoogle, ModelID: "gemini-3-flash-preview", Label: "Gemini 3 Flash Preview"},
	{Provider: ProviderGoogle, ModelID: "gemini-3-pro-preview", Label: "Gemini 3 Pro Preview"},
	{Provider: ProviderAnthropic, ModelID: "claude-opus-4-6", Label: "Claude Opus 4.6"},
	{Provider: ProviderAnthropic, ModelID: "claude-sonnet-4-6", Label: "Claude Sonnet 4.6"},
	{Provider: ProviderAnthropic, ModelID: "claude-haiku-4-5", Label: "Claude Haiku 4.5"},
}

// DefaultModels 各 provider 未指定 modelId 時的預設模型
var DefaultModels = map[ProviderName]string{
	ProviderOpenAI:    "gpt-5-nano",
	ProviderGoogle:    "gemini-3.1-pro-preview",
	ProviderAnthropic: "claude-opus-4-6",
}

// SupportedModels 依 provider 回傳合法 modelId 清單（目錄順序）
func SupportedModels(provider ProviderName) []string {
	var ids []string
	for _, opt := range ChatModelOptions {
		if opt.Provider == provider {
			ids = append(ids, opt.ModelID)
		}
	}
	return ids
}

// IsSupportedModel 目錄查驗：每個建立 / 換模型邊界都必須呼叫，不可信任呼叫端
func IsSupportedModel(provider ProviderName, modelID string) bool {
	for _, opt := range ChatModelOptions {
		if opt.Provider == provider && opt.ModelID == modelID {
			return true
		}
	}
	return false
}

// DefaultModel 回傳 provider 的預設 modelId；未知 provider 回空字串
func DefaultModel(provider ProviderName) string {
	return DefaultModels[provider]
}
