package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8080},
		DB: DBConfig{
			Host: "localhost", Port: 5432, User: "taskpilot",
			Password: "secret", Name: "taskpilot", SSLMode: "disable", MaxConns: 25,
		},
		Redis: RedisConfig{Host: "localhost", Port: 6379},
		JWT: JWTConfig{
			AccessSecret:  "access-secret-that-is-at-least-32-chars!",
			RefreshSecret: "refresh-secret-that-is-at-least-32-chr!",
			AccessExpiry:  15 * time.Minute,
			RefreshExpiry: 168 * time.Hour,
		},
		AI: AIConfig{
			Enabled:            true,
			DefaultDailyLimit:  15,
			DefaultHourlyLimit: 5,
			InterpretTimeout:   10 * time.Second,
			ContextMessages:    10,
			ContextTTL:         30 * time.Minute,
		},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
}

func TestValidate_JWTAccessSecretTooShort(t *testing.T) {
	cfg := validConfig()
	cfg.JWT.AccessSecret = "short"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "JWT_ACCESS_SECRET") {
		t.Fatalf("expected JWT_ACCESS_SECRET error, got: %v", err)
	}
}

func TestValidate_JWTSecretsMustDiffer(t *testing.T) {
	cfg := validConfig()
	cfg.JWT.AccessSecret = "the-same-secret-that-is-at-least-32-chars!"
	cfg.JWT.RefreshSecret = "the-same-secret-that-is-at-least-32-chars!"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "must differ") {
		t.Fatalf("expected 'must differ' error, got: %v", err)
	}
}

func TestValidate_DBPasswordRequired(t *testing.T) {
	cfg := validConfig()
	cfg.DB.Password = ""
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "DB_PASSWORD") {
		t.Fatalf("expected DB_PASSWORD error, got: %v", err)
	}
}

func TestValidate_DailyLimitMustBePositive(t *testing.T) {
	cfg := validConfig()
	cfg.AI.DefaultDailyLimit = 0
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "AI_RATE_LIMIT_PER_DAY") {
		t.Fatalf("expected AI_RATE_LIMIT_PER_DAY error, got: %v", err)
	}
}

func TestValidate_HourlyLimitMustBePositive(t *testing.T) {
	cfg := validConfig()
	cfg.AI.DefaultHourlyLimit = -1
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "AI_RATE_LIMIT_PER_HOUR") {
		t.Fatalf("expected AI_RATE_LIMIT_PER_HOUR error, got: %v", err)
	}
}

func TestValidate_CollectsMultipleErrors(t *testing.T) {
	cfg := validConfig()
	cfg.DB.Password = ""
	cfg.Server.Port = 0
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "DB_PASSWORD") || !strings.Contains(err.Error(), "SERVER_PORT") {
		t.Fatalf("expected both errors collected, got: %v", err)
	}
}
