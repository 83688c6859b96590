package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.ServerPort == "" {
		t.Fatalf("expected default server port")
	}
	if cfg.PostgresURL == "" {
		t.Fatalf("expected default postgres url")
	}
	if cfg.ArrivalThresholdM != 20 {
		t.Fatalf("expected 20m arrival threshold, got %v", cfg.ArrivalThresholdM)
	}
	if cfg.OffRouteThresholdM != 20 {
		t.Fatalf("expected 20m off-route threshold, got %v", cfg.OffRouteThresholdM)
	}
	if cfg.BotMinSpeed <= 0 || cfg.BotMaxSpeed < cfg.BotMinSpeed {
		t.Fatalf("bad bot speed range: %v..%v", cfg.BotMinSpeed, cfg.BotMaxSpeed)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", ":9000")
	t.Setenv("POSTGRES_URL", "postgres://example")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("OFF_ROUTE_THRESHOLD_M", "100")
	t.Setenv("BOT_TICK_MS", "150")

	cfg := Load()
	if cfg.ServerPort != ":9000" {
		t.Fatalf("expected override port")
	}
	if cfg.PostgresURL != "postgres://example" {
		t.Fatalf("expected override postgres")
	}
	if cfg.RedisAddr != "redis:6379" {
		t.Fatalf("expected override redis")
	}
	if cfg.OffRouteThresholdM != 100 {
		t.Fatalf("expected override off-route threshold")
	}
	if cfg.BotTickMs != 150 {
		t.Fatalf("expected override bot tick")
	}
}
