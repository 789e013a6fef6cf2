package model

// GenerationLog 一次生成的審計紀錄。Secret 永遠不落地，只記 key 指紋。
type GenerationLog struct {
	ChatID         string `bson:"chat_id" json:"chat_id"`
	ThreadID       string `bson:"thread_id" json:"thread_id"`
	MessageID      string `bson:"message_id" json:"message_id"`
	UserID         string `bson:"user_id" json:"user_id"`
	Provider       string `bson:"provider" json:"provider"`
	Model          string `bson:"model" json:"model"`
	KeyFingerprint string `bson:"key_fingerprint,omitempty" json:"key_fingerprint,omitempty"`
	Status         string `bson:"status" json:"status"`
	Error          string `bson:"error,omitempty" json:"error,omitempty"`
	DurationMS     int64  `bson:"duration_ms" json:"duration_ms"`
	DeltaCount     int64  `bson:"delta_count" json:"delta_count"`
	Version        string `bson:"version" json:"version"`
	LoggedAt       string `bson:"logged_at" json:"logged_at"`
}
