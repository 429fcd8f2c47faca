package router

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/GHtech935/glampinghub/internal/config"
	"github.com/GHtech935/glampinghub/internal/handler"
)

// emptyBucket answers every script call with "not allowed" and records the
// bucket keys it was asked about. No connection is ever dialled.
type emptyBucket struct {
	keys []string
}

func (h *emptyBucket) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return next(ctx, network, addr)
	}
}

func (h *emptyBucket) ProcessHook(redis.ProcessHook) redis.ProcessHook {
	return func(_ context.Context, cmd redis.Cmder) error {
		args := cmd.Args()
		if len(args) > 3 {
			if key, ok := args[3].(string); ok {
				h.keys = append(h.keys, key)
			}
		}
		if c, ok := cmd.(*redis.Cmd); ok {
			c.SetVal([]interface{}{int64(0), int64(0), int64(1500)})
		}
		return nil
	}
}

func (h *emptyBucket) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func TestVoucherPreviewIsRateLimitedByIP(t *testing.T) {
	hook := &emptyBucket{}
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	rdb.AddHook(hook)
	t.Cleanup(func() { _ = rdb.Close() })

	e := echo.New()
	RegisterAvailability(e, Deps{
		Redis:        rdb,
		RateLimit:    config.RateLimitConfig{Enabled: true, Capacity: 5, RefillTokens: 1, RefillInterval: time.Second, TTL: time.Minute, Prefix: "rl", KeyStrategy: "user_booking"},
		Availability: &handler.AvailabilityHandler{},
	})

	req := httptest.NewRequest(http.MethodPost, "/v1/vouchers/validate", strings.NewReader(`{"code":"SAVE10"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("got %d %s, want 429", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("Retry-After") != "2" {
		t.Fatalf("retry-after: got %q", rec.Header().Get("Retry-After"))
	}
	if len(hook.keys) != 1 || hook.keys[0] != "rl:ip:192.0.2.1" {
		t.Fatalf("bucket keys: got %v", hook.keys)
	}
}

func TestPublicRateLimitKeepsBucketSettings(t *testing.T) {
	in := config.RateLimitConfig{Enabled: true, Capacity: 7, Prefix: "rl", KeyStrategy: "user_booking"}
	got := PublicRateLimit(in)
	if got.KeyStrategy != "ip" || got.Capacity != 7 || !got.Enabled || got.Prefix != "rl" {
		t.Fatalf("got %+v", got)
	}
	if in.KeyStrategy != "user_booking" {
		t.Fatalf("input config modified: %+v", in)
	}
}
