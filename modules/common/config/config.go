package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config 구조체 - 모든 환경변수를 담음
type Config struct {
	// Server
	Port string

	// Gemini / Vertex
	GeminiBackend         string // "gemini" | "vertex"
	GeminiAPIKey          string
	VertexProject         string
	VertexLocation        string
	VertexCredentialsJSON string
	ImageModel            string
	CompositeModel        string
	VideoModel            string
	VideoPollInterval     time.Duration

	// Account store
	AccountStore    string // "file" | "redis"
	AccountStoreDir string
	JWTSecret       string
	JWTExpireHours  int

	// Redis
	RedisHost     string
	RedisPort     string
	RedisUsername string
	RedisPassword string
	RedisUseTLS   bool

	// Supabase
	SupabaseURL           string
	SupabaseServiceKey    string
	SupabaseStorageBucket string

	// Share
	ShareBackend      string // "none" | "supabase" | "s3"
	S3Bucket          string
	S3Region          string
	S3PublicBaseURL   string
	S3AccessKeyID     string
	S3SecretAccessKey string

	// Studio session
	SessionTTL time.Duration
}

var globalConfig *Config

// LoadConfig - 환경변수 로드
func LoadConfig() (*Config, error) {
	// .env 파일 로드 (있으면)
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  .env file not found, using environment variables")
	}

	cfg := &Config{
		Port: getEnv("PORT", "8080"),

		GeminiBackend:         strings.ToLower(getEnv("GEMINI_BACKEND", "gemini")),
		GeminiAPIKey:          getEnv("GEMINI_API_KEY", ""),
		VertexProject:         getEnv("VERTEXAI_PROJECT", ""),
		VertexLocation:        getEnv("VERTEXAI_LOCATION", "us-central1"),
		VertexCredentialsJSON: getEnv("VERTEXAI_CREDENTIALS_JSON", ""),
		ImageModel:            getEnv("IMAGE_MODEL", "imagen-4.0-generate-001"),
		CompositeModel:        getEnv("COMPOSITE_MODEL", "gemini-2.5-flash-image-preview"),
		VideoModel:            getEnv("VIDEO_MODEL", "veo-2.0-generate-001"),
		VideoPollInterval:     time.Duration(getEnvInt("VIDEO_POLL_INTERVAL_SECONDS", 10)) * time.Second,

		AccountStore:    strings.ToLower(getEnv("ACCOUNT_STORE", "file")),
		AccountStoreDir: getEnv("ACCOUNT_STORE_DIR", "./data"),
		JWTSecret:       getEnv("JWT_SECRET", "mazylab-dev-secret"),
		JWTExpireHours:  getEnvInt("JWT_EXPIRE_HOURS", 72),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisUsername: getEnv("REDIS_USERNAME", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisUseTLS:   getEnvBool("REDIS_USE_TLS", false),

		SupabaseURL:           getEnv("SUPABASE_URL", ""),
		SupabaseServiceKey:    getEnv("SUPABASE_SERVICE_KEY", ""),
		SupabaseStorageBucket: getEnv("SUPABASE_STORAGE_BUCKET", "ad-shares"),

		ShareBackend:      strings.ToLower(getEnv("SHARE_BACKEND", "none")),
		S3Bucket:          getEnv("S3_BUCKET", ""),
		S3Region:          getEnv("S3_REGION", "us-east-1"),
		S3PublicBaseURL:   getEnv("S3_PUBLIC_BASE_URL", ""),
		S3AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
		S3SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),

		SessionTTL: time.Duration(getEnvInt("SESSION_TTL_HOURS", 2)) * time.Hour,
	}

	if cfg.VideoPollInterval <= 0 {
		cfg.VideoPollInterval = 10 * time.Second
	}

	// 필수 환경변수 검증
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	globalConfig = cfg

	log.Println("✅ Configuration loaded successfully")
	log.Printf("   Gemini: backend=%s image=%s composite=%s video=%s", cfg.GeminiBackend, cfg.ImageModel, cfg.CompositeModel, cfg.VideoModel)
	log.Printf("   Video poll interval: %v", cfg.VideoPollInterval)
	log.Printf("   Account store: %s", cfg.AccountStore)
	log.Printf("   Share backend: %s", cfg.ShareBackend)
	if cfg.HasSupabase() {
		log.Printf("   Supabase: %s", cfg.SupabaseURL)
	}

	return globalConfig, nil
}

// GetConfig - 로드된 설정 가져오기
func GetConfig() *Config {
	if globalConfig == nil {
		log.Fatal("❌ Config not loaded. Call LoadConfig() first.")
	}
	return globalConfig
}

// validate - 필수 환경변수 검증
func (c *Config) validate() error {
	switch c.GeminiBackend {
	case "gemini":
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required")
		}
	case "vertex":
		if c.VertexProject == "" {
			return fmt.Errorf("VERTEXAI_PROJECT is required when GEMINI_BACKEND=vertex")
		}
	default:
		return fmt.Errorf("unknown GEMINI_BACKEND: %s", c.GeminiBackend)
	}

	switch c.AccountStore {
	case "file", "redis":
	default:
		return fmt.Errorf("unknown ACCOUNT_STORE: %s", c.AccountStore)
	}

	switch c.ShareBackend {
	case "none":
	case "supabase":
		if !c.HasSupabase() {
			return fmt.Errorf("SUPABASE_URL and SUPABASE_SERVICE_KEY are required when SHARE_BACKEND=supabase")
		}
	case "s3":
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required when SHARE_BACKEND=s3")
		}
	default:
		return fmt.Errorf("unknown SHARE_BACKEND: %s", c.ShareBackend)
	}
	return nil
}

// HasSupabase - Supabase 설정 여부
func (c *Config) HasSupabase() bool {
	return c.SupabaseURL != "" && c.SupabaseServiceKey != ""
}

// GetRedisAddr - Redis 연결 문자열 생성
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}

// getEnv - 환경변수 가져오기 (기본값 지원)
func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
