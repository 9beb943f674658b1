package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	c := Default()
	if c == nil {
		t.Fatal("defaults do not validate")
	}
	if c.Server.Port != 8080 || c.Strategy.Timeframe != "15m" || c.Strategy.Candles != 200 {
		t.Fatalf("unexpected defaults: port=%d tf=%s n=%d", c.Server.Port, c.Strategy.Timeframe, c.Strategy.Candles)
	}
	if c.Gate.TripRatio != 0.03 || c.Gate.RecoveryRatio != 0.01 {
		t.Fatalf("gate defaults = %v/%v", c.Gate.TripRatio, c.Gate.RecoveryRatio)
	}
	if c.Market.ProbeInterval != time.Minute {
		t.Fatalf("probe interval = %v", c.Market.ProbeInterval)
	}
}

func TestParseRejects(t *testing.T) {
	cases := map[string]struct {
		yaml string
		want string
	}{
		"recovery above trip": {"gate:\n  trip_ratio: 0.01\n  recovery_ratio: 0.02\n", "recovery_ratio"},
		"unordered tiers":     {"gate:\n  tight_max: 0.05\n", "tiers"},
		"kafka no brokers":    {"kafka:\n  enabled: true\n", "brokers"},
		"telegram no chat":    {"telegram:\n  enabled: true\n  token: x\n", "chat_id"},
		"too few candles":     {"strategy:\n  candles: 10\n", "Candles"},
		"bad majority":        {"strategy:\n  majority: 1.5\n", "Majority"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "environment: production\nstrategy:\n  pools: [a, b]\n  interval: 30s\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.Environment != "production" || len(c.Strategy.Pools) != 2 || c.Strategy.Interval != 30*time.Second {
		t.Fatalf("loaded %+v", c.Strategy)
	}
	// untouched sections still get defaults
	if c.Log.Level != "info" {
		t.Fatalf("log level = %q", c.Log.Level)
	}
}

func TestLoadWithEnvMissingFile(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("REDIS_ADDR", "cache:6380")
	t.Setenv("TELEGRAM_TOKEN", "tok")
	t.Setenv("TELEGRAM_CHAT_ID", "42")
	t.Setenv("JARVIS_DEMO", "true")

	c, err := LoadWithEnv(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if !c.Kafka.Enabled || len(c.Kafka.Brokers) != 2 {
		t.Fatalf("kafka = %v %v", c.Kafka.Enabled, c.Kafka.Brokers)
	}
	if !c.Redis.Enabled || c.Redis.Host != "cache" || c.Redis.Port != 6380 {
		t.Fatalf("redis = %v %s:%d", c.Redis.Enabled, c.Redis.Host, c.Redis.Port)
	}
	if !c.Telegram.Enabled || c.Telegram.ChatID != 42 {
		t.Fatalf("telegram = %v %d", c.Telegram.Enabled, c.Telegram.ChatID)
	}
	if !c.Market.DemoMode {
		t.Fatal("demo mode not applied")
	}
}

func TestLoadWithEnvValidatesOverrides(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "tok")
	if _, err := LoadWithEnv(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("telegram enabled without chat id should fail")
	}
}
