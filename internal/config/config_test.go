package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for k, v := range map[string]string{
		"APP_ENV": "test", "APP_PORT": "8080", "JWT_SECRET": "s",
		"DB_USER": "root", "DB_HOST": "127.0.0.1", "DB_PORT": "3306", "DB_NAME": "glampinghub",
	} {
		t.Setenv(k, v)
	}
	t.Setenv("RABBITMQ_URL", "")
	t.Setenv("AMQP_URL", "amqp://guest:guest@mq:5672/")
	t.Setenv("BOOKING_PAYMENT_WINDOW", "")
	t.Setenv("DB_AUTO_MIGRATE", "yes")

	c := Load()
	if c.PaymentWindow != 30*time.Minute || c.DefaultCurrency != "VND" || c.DBMaxOpenConns != 25 {
		t.Fatalf("defaults: got %+v", c)
	}
	if !c.DBAutoMigrate || !c.NotifyConsumerEnabled {
		t.Fatalf("bools: got %+v", c)
	}
	if c.BrokerURL != "amqp://guest:guest@mq:5672/" {
		t.Fatalf("broker: got %q", c.BrokerURL)
	}
}

func TestLoadRateLimitConfigClamps(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_EVERY", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	rl := LoadRateLimitConfig()
	if rl.Capacity != 1 || rl.RefillTokens != 1 || rl.RefillInterval != 2*time.Second {
		t.Fatalf("got %+v", rl)
	}
	if rl.TTL != 10*time.Second {
		t.Fatalf("ttl: got %v, want 10s", rl.TTL)
	}
}

func TestLoadCacheConfig(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head")
	t.Setenv("CACHE_PREFIX", "")
	c := LoadCacheConfig()
	if !c.Methods["GET"] || !c.Methods["HEAD"] || len(c.Methods) != 2 {
		t.Fatalf("methods: got %v", c.Methods)
	}
	if c.GenerationKey() != "glampinghub:cache:gen" {
		t.Fatalf("gen key: got %q", c.GenerationKey())
	}
}
