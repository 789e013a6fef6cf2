package error

const (
	// 0 ~ 999: 成功類別
	SUCCESS = 0 // 200 OK

	// 40000 ~ 49999: 用戶請求錯誤 (400 系列)
	BAD_REQUEST_BODY    = 40000 // 400 - 無效的請求體
	BAD_REQUEST_PARAMS  = 40001 // 400 - 無效的請求參數
	BAD_REQUEST_HEADERS = 40002 // 400 - 無效的請求標頭
	UNSUPPORTED_MODEL   = 40010 // 400 - modelId 不在該 provider 的目錄中
	NOT_CONFIGURED      = 40011 // 400 - 該 provider 尚未設定 API Key

	// 40100 ~ 40399: 驗證與權限錯誤 (401 403 系列)
	UNAUTHENTICATED = 40100 // 401 - 未登入或 session 無效
	FORBIDDEN       = 40301 // 403 - 禁止訪問

	// 40400 ~ 40499: 資源錯誤 (404 系列)
	// chat 不存在與 chat 非本人持有刻意回同一個錯誤，避免資源枚舉
	NOT_FOUND = 40400 // 404 - 資源未找到

	// 42900 ~ 42999: 流量限制錯誤 (429 系列)
	GENERATION_IN_FLIGHT = 42910 // 429 - 該 chat 已有生成進行中

	// 50000 ~ 50199: 伺服器內部錯誤 (500 系列)
	INTERNAL_ERROR      = 50000 // 500 - 內部錯誤
	DATABASE_ERROR      = 50001 // 500 - 資料庫錯誤
	SERVICE_UNAVAILABLE = 50002 // 503 - 服務暫停 (維護模式)
	UNKNOWN_PROVIDER    = 50003 // 500 - provider 枚舉與 resolver 分支不同步（程式錯誤）

	// 50200 ~ 50499: 外部請求錯誤 (502 504 系列)
	EXTERNAL_REQUEST_ERROR         = 50200 // 502 - 外部 API 請求錯誤
	EXTERNAL_RESPONSE_FORMAT_ERROR = 50201 // 502 - 外部 API 回應格式錯誤
	GATEWAY_TIMEOUT                = 50400 // 504 - 外部 API 超時
)
