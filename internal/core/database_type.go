package core

// ─── MongoDB ───────────────────────────────────────────────────────────────────

type MongoDatabaseName string
type MongoCollection string
type RedisKey string
type FluentdSubTag string

const (
	MongoDBByokChat MongoDatabaseName = "byokchat"
)

// MongoDB collections
const (
	MongoCollectionAPIKeys MongoCollection = "byok_api_keys"
	MongoCollectionChats   MongoCollection = "byok_chats"

	// agent collaborator 自有的集合：orchestration 層只透過 agent 套件存取
	MongoCollectionAgentThreads      MongoCollection = "agent_threads"
	MongoCollectionAgentMessages     MongoCollection = "agent_messages"
	MongoCollectionAgentStreamDeltas MongoCollection = "agent_stream_deltas"
)

// ─── Redis Keys ────────────────────────────────────────────────────────────────

const (
	RedisKeyServerName      RedisKey = "byokchat"        // key 前綴
	RedisKeyGenerationQueue RedisKey = "generation_queue" // 待處理生成工作（list）
	RedisKeyGenerationLock  RedisKey = "generation_lock"  // 單一 chat 一次一個生成
)

// ─── Fluentd sub tags ──────────────────────────────────────────────────────────

const (
	FluentdRequest    FluentdSubTag = "request_log"
	FluentdResponse   FluentdSubTag = "response_log"
	FluentdGeneration FluentdSubTag = "byokchat_generation_log"
)
