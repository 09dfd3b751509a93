package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// DBConfig 数据库配置
type DBConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// GetDSN 拼接 PostgreSQL 连接串
func (c *DBConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// ServerConfig 服务配置
type ServerConfig struct {
	Port string
	Env  string
}

// JWTConfig JWT 配置
type JWTConfig struct {
	SecretKey       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	Issuer          string
}

// ProviderConfig 单个社媒平台的应用凭证
type ProviderConfig struct {
	AppID       string
	AppSecret   string
	RedirectURI string
}

// ProvidersConfig 全部平台凭证
type ProvidersConfig struct {
	Facebook  ProviderConfig
	Instagram ProviderConfig
	WhatsApp  ProviderConfig
	TikTok    ProviderConfig
}

// StorageConfig 对象存储配置
type StorageConfig struct {
	Provider  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	CDNDomain string
	BasePath  string
}

// Config 全量配置
type Config struct {
	ServiceName string
	DB          DBConfig
	Server      ServerConfig
	JWT         JWTConfig
	Providers   ProvidersConfig
	Storage     StorageConfig
	// Integration 令牌落库加密密钥
	TokenEncryptionKey string
	LogLevel           string
}

// Load 从环境变量加载配置，.env 文件可选
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		fmt.Println("提示: 未找到 .env 文件，使用系统环境变量")
	}

	return &Config{
		ServiceName: getEnv("SERVICE_NAME", "bizboost"),
		DB: DBConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "bizboost_admin"),
			Password:        getEnv("DB_PASSWORD", ""),
			DBName:          getEnv("DB_NAME", "bizboost"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 100),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", time.Hour),
		},
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Env:  getEnv("APP_ENV", "development"),
		},
		JWT: JWTConfig{
			SecretKey:       getEnv("JWT_SECRET_KEY", "bizboost-secret-key-change-in-production"),
			AccessTokenTTL:  getEnvAsDuration("JWT_ACCESS_TTL", 2*time.Hour),
			RefreshTokenTTL: getEnvAsDuration("JWT_REFRESH_TTL", 7*24*time.Hour),
			Issuer:          getEnv("JWT_ISSUER", "bizboost"),
		},
		Providers: ProvidersConfig{
			Facebook: ProviderConfig{
				AppID:       getEnv("FACEBOOK_APP_ID", ""),
				AppSecret:   getEnv("FACEBOOK_APP_SECRET", ""),
				RedirectURI: getEnv("FACEBOOK_REDIRECT_URI", ""),
			},
			Instagram: ProviderConfig{
				AppID:       getEnv("INSTAGRAM_APP_ID", ""),
				AppSecret:   getEnv("INSTAGRAM_APP_SECRET", ""),
				RedirectURI: getEnv("INSTAGRAM_REDIRECT_URI", ""),
			},
			WhatsApp: ProviderConfig{
				AppID:       getEnv("WHATSAPP_APP_ID", ""),
				AppSecret:   getEnv("WHATSAPP_APP_SECRET", ""),
				RedirectURI: getEnv("WHATSAPP_REDIRECT_URI", ""),
			},
			TikTok: ProviderConfig{
				AppID:       getEnv("TIKTOK_CLIENT_KEY", ""),
				AppSecret:   getEnv("TIKTOK_CLIENT_SECRET", ""),
				RedirectURI: getEnv("TIKTOK_REDIRECT_URI", ""),
			},
		},
		Storage: StorageConfig{
			Provider:  getEnv("STORAGE_PROVIDER", "s3"),
			Bucket:    getEnv("AWS_BUCKET", ""),
			Region:    getEnv("AWS_REGION", "af-south-1"),
			AccessKey: getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			CDNDomain: getEnv("AWS_CDN_DOMAIN", ""),
			BasePath:  getEnv("STORAGE_BASE_PATH", "bizboost"),
		},
		TokenEncryptionKey: getEnv("TOKEN_ENCRYPTION_KEY", ""),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
	}
}

// ==================== 环境变量辅助 ====================

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
