package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	DatabaseURL  string
	ServerPort   int
	JWTSecretKey string

	// Учётные данные единственного оператора (bcrypt-хеш пароля).
	OperatorLogin        string
	OperatorPasswordHash string
	OperatorTokenTTL     time.Duration

	RCONTimeout        time.Duration
	ServerPollInterval time.Duration

	R2 R2Config
}

// R2Config - доступ к S3-совместимому хранилищу demo-архивов.
// Пустой AccountID отключает загрузку demo.
type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicBaseURL   string
}

// Load загружает конфигурацию из переменных окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
func Load() (*Config, error) {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	jwtKey := os.Getenv("JWT_SECRET_KEY")
	if jwtKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}

	operatorLogin := os.Getenv("OPERATOR_LOGIN")
	if operatorLogin == "" {
		operatorLogin = "operator"
	}
	operatorHash := os.Getenv("OPERATOR_PASSWORD_HASH")
	if operatorHash == "" {
		return nil, fmt.Errorf("OPERATOR_PASSWORD_HASH environment variable is not set")
	}

	port, err := intEnv("SERVER_PORT", 8080)
	if err != nil {
		return nil, err
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	tokenTTL, err := durationEnv("OPERATOR_TOKEN_TTL", 12*time.Hour)
	if err != nil {
		return nil, err
	}
	rconTimeout, err := durationEnv("RCON_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}
	pollInterval, err := durationEnv("SERVER_POLL_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DatabaseURL:          dbURL,
		ServerPort:           port,
		JWTSecretKey:         jwtKey,
		OperatorLogin:        operatorLogin,
		OperatorPasswordHash: operatorHash,
		OperatorTokenTTL:     tokenTTL,
		RCONTimeout:          rconTimeout,
		ServerPollInterval:   pollInterval,
		R2: R2Config{
			AccountID:       os.Getenv("R2_ACCOUNT_ID"),
			AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
			BucketName:      os.Getenv("R2_BUCKET_NAME"),
			PublicBaseURL:   os.Getenv("R2_PUBLIC_BASE_URL"),
		},
	}
	return cfg, nil
}

func intEnv(name string, def int) (int, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return def, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", name, err)
	}
	return value, nil
}

func durationEnv(name string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return def, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", name, err)
	}
	return value, nil
}
