package core

// Principal 已驗證的請求主體。由 auth middleware 解析 session token 產生，
// 之後一律以參數顯式傳遞給 service，不讀任何全域狀態。
type Principal struct {
	UserID string
}

// ContextPrincipalKey gin.Context 中存放 Principal 的 key
const ContextPrincipalKey = "auth_principal"

// ListOptions 分頁查詢參數（1-based page）
type ListOptions struct {
	Page int64 `json:"page,omitempty"`
	Size int64 `json:"size,omitempty"`
}

// Normalize 套用預設值與上限
func (o ListOptions) Normalize() ListOptions {
	if o.Page < 1 {
		o.Page = 1
	}
	if o.Size < 1 {
		o.Size = 20
	}
	if o.Size > 100 {
		o.Size = 100
	}
	return o
}
