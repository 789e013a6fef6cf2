package config

type Generation struct {
	// 背景生成 worker 數量，0 表示預設 2
	Workers int `mapstructure:"WORKERS" json:"workers" yaml:"workers"`
	// 單一 chat 的生成鎖 TTL（秒），生成超過此時間視為失聯，鎖自動釋放
	LockTTLSeconds int64 `mapstructure:"LOCK_TTL_SECONDS" json:"lock_ttl_seconds" yaml:"lock_ttl_seconds"`
	// 對 provider API 的單次請求逾時（秒），0 表示預設 300
	RequestTimeoutSeconds int64 `mapstructure:"REQUEST_TIMEOUT_SECONDS" json:"request_timeout_seconds" yaml:"request_timeout_seconds"`
}
