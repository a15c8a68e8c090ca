package di

import (
	"testing"

	"marketpulse/pkg/config"
)

func TestProvideHotCacheDegradesWhenRedisUnavailable(t *testing.T) {
	cfg := &config.Config{}
	cfg.Redis.Enabled = true
	cfg.Redis.Host = "127.0.0.1"
	cfg.Redis.Port = 1

	log, err := ProvideLogger(cfg)
	if err != nil {
		t.Fatalf("ProvideLogger: %v", err)
	}

	if svc := ProvideHotCache(cfg, log); svc != nil {
		t.Fatalf("expected nil hot cache when redis is unreachable")
	}
}

func TestProvideHotCacheDisabled(t *testing.T) {
	cfg := &config.Config{}
	log, err := ProvideLogger(cfg)
	if err != nil {
		t.Fatalf("ProvideLogger: %v", err)
	}
	if svc := ProvideHotCache(cfg, log); svc != nil {
		t.Fatalf("expected nil hot cache when redis is disabled")
	}
}
