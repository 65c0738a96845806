package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App          AppConfig
	Database     DatabaseConfig
	Keys         APIKeys
	Ai           AIConfig
	Analyzer     AnalyzerConfig
	Router       RouterConfig
	Session      SessionConfig
	Breaker      BreakerConfig
	Retry        RetryConfig
	Executor     ExecutorConfig
	Capabilities CapabilityConfig
	Usage        UsageConfig
	Tracing      TracingConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	ChatLogFilePath    string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	JWTSecret          string
	RequestDeadline    time.Duration
}

type DatabaseConfig struct {
	Connection string
}

type APIKeys struct {
	Anthropic   string
	HuggingFace string
}

type AIConfig struct {
	OllamaBaseURL      string
	OllamaModel        string
	AnthropicBaseURL   string
	AnthropicModel     string
	HuggingFaceBaseURL string
	HuggingFaceModel   string
	// DefaultTarget serves every category without its own profile.
	DefaultTarget string
	// CategoryProfiles maps category → "target:model", e.g. deep-reasoning=anthropic:claude-sonnet-4-5
	CategoryProfiles map[string]string
}

type AnalyzerConfig struct {
	MinClassifierConfidence float64
	// DisabledIntents maps tenant → "intent|intent"
	DisabledIntents map[string]string
}

type RouterConfig struct {
	CacheTTL           time.Duration
	BoostWeight        float64
	MinClassifierScore float64
	TenantOverrides    map[string]string
}

type SessionConfig struct {
	FastTier        string // "redis" or "memory"
	FastTTL         time.Duration
	FastTierTimeout time.Duration
	DurableTimeout  time.Duration
	RecentTurns     int
	HalfLife        time.Duration
	RecencyFloor    float64
	Smoothing       float64
	PersistTopic    string
}

type BreakerConfig struct {
	Window              time.Duration
	MinRequests         int
	FailureRate         float64
	ConsecutiveFailures int
	Cooldown            time.Duration
	CooldownMultiplier  float64
	MaxCooldown         time.Duration
}

type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
	Jitter      float64
}

type ExecutorConfig struct {
	AttemptTimeout   time.Duration
	AbandonGrace     time.Duration
	MaxToolRounds    int
	HistoryTurns     int
	DefaultMaxTokens int
}

type CapabilityConfig struct {
	// Endpoints: name=skill|http:url[|side-effects],name=skill|nats:subject
	Endpoints   string
	HTTPTimeout time.Duration
	// DisabledSkills are never attached, even when asked for explicitly.
	DisabledSkills []string
}

type TracingConfig struct {
	Enabled     bool
	ServiceName string
	Endpoint    string
	SampleRatio float64
}

type UsageConfig struct {
	Buffer  int
	Pricing string // model=in:out per million tokens
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			ChatLogFilePath:    getEnv("CHAT_LOG_FILE_PATH", "logs/chat.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			JWTSecret:          getEnv("JWT_SECRET", ""),
			RequestDeadline:    getEnvAsDuration("REQUEST_DEADLINE", 60*time.Second),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Keys: APIKeys{
			Anthropic:   getEnv("ANTHROPIC_API_KEY", ""),
			HuggingFace: getEnv("HUGGINGFACE_API_KEY", ""),
		},
		Ai: AIConfig{
			OllamaBaseURL:      getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaModel:        getEnv("OLLAMA_MODEL", "llama3"),
			AnthropicBaseURL:   getEnv("ANTHROPIC_BASE_URL", ""),
			AnthropicModel:     getEnv("ANTHROPIC_MODEL", "claude-sonnet-4-5"),
			HuggingFaceBaseURL: getEnv("HUGGINGFACE_BASE_URL", ""),
			HuggingFaceModel:   getEnv("HUGGINGFACE_MODEL", ""),
			DefaultTarget:      getEnv("DEFAULT_TARGET", "ollama"),
			CategoryProfiles:   getEnvAsMap("CATEGORY_PROFILES"),
		},
		Analyzer: AnalyzerConfig{
			MinClassifierConfidence: getEnvAsFloat("ANALYZER_MIN_CONFIDENCE", 0.35),
			DisabledIntents:         getEnvAsMap("TENANT_DISABLED_INTENTS"),
		},
		Router: RouterConfig{
			CacheTTL:           getEnvAsDuration("ROUTER_CACHE_TTL", 10*time.Minute),
			BoostWeight:        getEnvAsFloat("ROUTER_BOOST_WEIGHT", 0.3),
			MinClassifierScore: getEnvAsFloat("ROUTER_MIN_CLASSIFIER_SCORE", 0.3),
			TenantOverrides:    getEnvAsMap("TENANT_CATEGORY_OVERRIDES"),
		},
		Session: SessionConfig{
			FastTier:        getEnv("SESSION_FAST_TIER", "redis"),
			FastTTL:         getEnvAsDuration("SESSION_FAST_TTL", 30*time.Minute),
			FastTierTimeout: getEnvAsDuration("SESSION_FAST_TIMEOUT", 50*time.Millisecond),
			DurableTimeout:  getEnvAsDuration("SESSION_DURABLE_TIMEOUT", 2*time.Second),
			RecentTurns:     getEnvAsInt("SESSION_RECENT_TURNS", 5),
			HalfLife:        getEnvAsDuration("CONTINUITY_HALF_LIFE", 5*time.Minute),
			RecencyFloor:    getEnvAsFloat("CONTINUITY_RECENCY_FLOOR", 0.6),
			Smoothing:       getEnvAsFloat("CONTINUITY_SMOOTHING", 0.5),
			PersistTopic:    getEnv("SESSION_PERSIST_TOPIC", "SESSION_PERSIST"),
		},
		Breaker: BreakerConfig{
			Window:              getEnvAsDuration("BREAKER_WINDOW", 60*time.Second),
			MinRequests:         getEnvAsInt("BREAKER_MIN_REQUESTS", 5),
			FailureRate:         getEnvAsFloat("BREAKER_FAILURE_RATE", 0.5),
			ConsecutiveFailures: getEnvAsInt("BREAKER_CONSECUTIVE_FAILURES", 5),
			Cooldown:            getEnvAsDuration("BREAKER_COOLDOWN", 10*time.Second),
			CooldownMultiplier:  getEnvAsFloat("BREAKER_COOLDOWN_MULTIPLIER", 2),
			MaxCooldown:         getEnvAsDuration("BREAKER_MAX_COOLDOWN", 5*time.Minute),
		},
		Retry: RetryConfig{
			MaxAttempts: getEnvAsInt("RETRY_MAX_ATTEMPTS", 3),
			BaseDelay:   getEnvAsDuration("RETRY_BASE_DELAY", 200*time.Millisecond),
			MaxDelay:    getEnvAsDuration("RETRY_MAX_DELAY", 5*time.Second),
			Multiplier:  getEnvAsFloat("RETRY_MULTIPLIER", 2),
			Jitter:      getEnvAsFloat("RETRY_JITTER", 0.1),
		},
		Executor: ExecutorConfig{
			AttemptTimeout:   getEnvAsDuration("ATTEMPT_TIMEOUT", 30*time.Second),
			AbandonGrace:     getEnvAsDuration("ABANDON_GRACE", 30*time.Second),
			MaxToolRounds:    getEnvAsInt("MAX_TOOL_ROUNDS", 4),
			HistoryTurns:     getEnvAsInt("PROMPT_HISTORY_TURNS", 5),
			DefaultMaxTokens: getEnvAsInt("DEFAULT_MAX_TOKENS", 1024),
		},
		Capabilities: CapabilityConfig{
			Endpoints:      getEnv("CAPABILITY_ENDPOINTS", ""),
			HTTPTimeout:    getEnvAsDuration("CAPABILITY_HTTP_TIMEOUT", 10*time.Second),
			DisabledSkills: getEnvAsList("DISABLED_SKILLS"),
		},
		Usage: UsageConfig{
			Buffer:  getEnvAsInt("USAGE_BUFFER", 1024),
			Pricing: getEnv("MODEL_PRICING", "claude-sonnet-4-5=3:15"),
		},
		Tracing: TracingConfig{
			Enabled:     getEnvAsBool("OTEL_ENABLED", false),
			ServiceName: getEnv("OTEL_SERVICE_NAME", "ai-orchestrator-backend"),
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			SampleRatio: getEnvAsFloat("OTEL_SAMPLE_RATIO", 1),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go durations ("250ms", "10m").
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsList(key string) []string {
	var out []string
	for _, item := range strings.Split(getEnv(key, ""), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// getEnvAsMap reads "k=v,k2=v2". Malformed pairs are skipped.
func getEnvAsMap(key string) map[string]string {
	out := make(map[string]string)
	for _, item := range getEnvAsList(key) {
		k, v, ok := strings.Cut(item, "=")
		if !ok || strings.TrimSpace(k) == "" {
			continue
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out
}
