package llm

import (
	"net/http"

	"byokchat/internal/core"
	cErr "byokchat/internal/pkg/error"
	"byokchat/internal/telemetry"
)

// Resolver 把 (provider, model, key) 組合成可用的串流客戶端。
// 模型不在該 provider 的支援清單內一律拒絕，不做靜默替換；
// provider 枚舉之外的值是程式錯誤，直接回 UnknownProvider。
type Resolver struct {
	trace      *telemetry.Trace
	httpClient *http.Client
}

func NewResolver(trace *telemetry.Trace, httpClient *http.Client) *Resolver {
	return &Resolver{trace: trace, httpClient: httpClient}
}

func (resolver *Resolver) Resolve(
	provider core.ProviderName,
	modelID string,
	secret string,
) (Client, error) {
	if !core.IsSupportedModel(provider, modelID) {
		return nil, cErr.UnsupportedModel(string(provider), modelID, core.SupportedModels(provider))
	}

	switch provider {
	case core.ProviderOpenAI:
		return newOpenAIClient(resolver.trace, resolver.httpClient, secret), nil
	case core.ProviderGoogle:
		return newGoogleClient(resolver.trace, resolver.httpClient, secret), nil
	case core.ProviderAnthropic:
		return newAnthropicClient(resolver.trace, resolver.httpClient, secret), nil
	default:
		return nil, cErr.UnknownProvider(string(provider))
	}
}
