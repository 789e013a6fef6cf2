package core

const ContextTraceKey = "telemetry_trace_ctx"

// ==== 型別安全 span name ====
// 專案全域建議都寫這裡，方便集中管理
type TraceSpanName string

const (
	SpanHttpRequest        TraceSpanName = "http_request"
	SpanLoggerMiddleware   TraceSpanName = "logger_middleware"
	SpanRecoveryMiddleware TraceSpanName = "recovery_middleware"
	SpanCorsMiddleware     TraceSpanName = "cors_middleware"
	SpanResponseMiddleware TraceSpanName = "response_middleware"
	SpanAuthMiddleware     TraceSpanName = "auth_middleware"
	SpanGenerationWorker   TraceSpanName = "generation_worker"
)

// 指標名稱常數
type MetricName string

const (
	MetricHttpRequestsTotal     MetricName = "requests_total"
	MetricHttpRequestDuration   MetricName = "request_duration_seconds"
	MetricGenerationTotal       MetricName = "generation_total"
	MetricGenerationFailTotal   MetricName = "generation_fail_total"
	MetricGenerationDuration    MetricName = "generation_duration_seconds"
	MetricGenerationQueueDepth  MetricName = "generation_queue_depth"
)

// label name 常數
type MetricLabelName string

const (
	MetricLabelEndpoint MetricLabelName = "endpoint"
	MetricLabelStatus   MetricLabelName = "status"
	MetricLabelProvider MetricLabelName = "provider"
	MetricLabelReason   MetricLabelName = "reason"
)

type LoggerRequestMeta struct {
	Method     string            `trace:"request.method"`
	Path       string            `trace:"request.path"`
	FullPath   string            `trace:"request.full_path"`
	Query      string            `trace:"request.query"`
	Body       string            `trace:"request.body"`
	Scheme     string            `trace:"http.scheme"`
	Host       string            `trace:"http.host"`
	UserAgent  string            `trace:"http.user_agent"`
	ContentLen int64             `trace:"http.request_content_length"`
	Proto      string            `trace:"http.flavor"`
	ClientIP   string            `trace:"net.peer.ip"`
	Headers    map[string]string `trace:"http.request.header"`
	Params     map[string]string `trace:"http.request.param"`
}

type TracePanicMeta struct {
	Path       string  `trace:"http.path"`
	Method     string  `trace:"http.method"`
	ClientIP   string  `trace:"net.peer.ip"`
	UserAgent  string  `trace:"http.user_agent"`
	DurationMs float64 `trace:"response.latency_ms"`
	Status     int     `trace:"http.status_code"`
	Message    string  `trace:"error.message"`
	Stack      string  `trace:"error.stack"`
}

type TraceErrorMeta struct {
	Code       int     `trace:"error.code"`
	Message    string  `trace:"error.message"`
	Detail     string  `trace:"error.detail"`
	Status     int     `trace:"http.status_code"`
	DurationMs float64 `trace:"response.latency_ms"`
}

type TraceHttpServerMeta struct {
	ClientAddr        string `trace:"client.address"`
	HttpRequestMethod string `trace:"http.request.method"`
	HttpRoute         string `trace:"http.route"`
	HttpStatusCode    int    `trace:"http.response.status_code"`
	UrlPath           string `trace:"url.path"`
	UrlScheme         string `trace:"url.scheme"`
	UserAgent         string `trace:"user_agent.original"`
	ServerAddress     string `trace:"server.address"`
	NetworkPeerAddr   string `trace:"network.peer.address"`
	NetworkPeerPort   int    `trace:"network.peer.port"`
	NetworkProtoVer   string `trace:"network.protocol.version"`
	SpanTraceID       string `trace:"trace.id"`
}

type TraceAuthMeta struct {
	Status string `trace:"auth.status"`
	UserID string `trace:"auth.user_id,omitempty"`
}

type TraceResponseMeta struct {
	Path       string  `trace:"http.path"`
	Method     string  `trace:"http.method"`
	Status     int     `trace:"http.status"`
	Message    string  `trace:"response.message"`
	Code       int     `trace:"response.code"`
	DurationMs float64 `trace:"response.duration_ms"`
	Data       string  `trace:"response.data_preview"`
}

type TraceGenerationMeta struct {
	ChatID    string `trace:"generation.chat_id"`
	ThreadID  string `trace:"generation.thread_id"`
	MessageID string `trace:"generation.message_id"`
	Provider  string `trace:"generation.provider"`
	Model     string `trace:"generation.model"`
	Status    string `trace:"generation.status"`
}

type TraceGuardMeta struct {
	ChatID string `trace:"guard.chat_id"`
	Op     string `trace:"guard.op"`
	Held   bool   `trace:"guard.held"`
}

type TraceQueueMeta struct {
	Op        string `trace:"queue.op"`
	ChatID    string `trace:"queue.chat_id,omitempty"`
	MessageID string `trace:"queue.message_id,omitempty"`
}
