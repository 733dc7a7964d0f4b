package redis

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/felixgeelhaar/react-agent/domain/cache"
)

type timeoutErr struct{}

func (timeoutErr) Error() string { return "i/o timeout" }
func (timeoutErr) Timeout() bool { return true }

func TestWrapError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		err         error
		wantTimeout bool
	}{
		{"nil", nil, false},
		{"deadline", context.DeadlineExceeded, true},
		{"net timeout", timeoutErr{}, true},
		{"other", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := wrapError(tt.err)
			if tt.err == nil {
				if got != nil {
					t.Errorf("wrapError(nil) = %v, want nil", got)
				}
				return
			}
			if errors.Is(got, cache.ErrOperationTimeout) != tt.wantTimeout {
				t.Errorf("wrapError(%v) timeout = %v, want %v", tt.err, !tt.wantTimeout, tt.wantTimeout)
			}
			if !errors.Is(got, tt.err) {
				t.Errorf("wrapError(%v) lost the original error", tt.err)
			}
		})
	}
}

func TestConfig_Options(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		address  string
		wantAddr string
		wantDB   int
		wantPass string
		wantErr  bool
	}{
		{name: "host port", address: "cache:6380", wantAddr: "cache:6380", wantDB: 2, wantPass: "field"},
		{name: "url", address: "redis://:secret@cache:6379/5", wantAddr: "cache:6379", wantDB: 5, wantPass: "secret"},
		{name: "bad url", address: "redis://cache:6379/notadb", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			cfg.Address = tt.address
			cfg.DB = 2
			cfg.Password = "field"
			opts, err := cfg.options()
			if (err != nil) != tt.wantErr {
				t.Fatalf("options() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if opts.Addr != tt.wantAddr || opts.DB != tt.wantDB || opts.Password != tt.wantPass {
				t.Errorf("options() = %s db=%d pass=%q, want %s db=%d pass=%q",
					opts.Addr, opts.DB, opts.Password, tt.wantAddr, tt.wantDB, tt.wantPass)
			}
			if opts.PoolSize != cfg.PoolSize || opts.DialTimeout != cfg.DialTimeout {
				t.Errorf("pool settings not applied: %+v", opts)
			}
		})
	}
}

func TestCache_KeyNamespace(t *testing.T) {
	t.Parallel()

	c := NewCacheFromClient(nil, "test:", 0)
	if got := c.key("abc"); got != "test:obs:abc" {
		t.Errorf("key() = %s, want test:obs:abc", got)
	}
}

func TestCache_GuardsBeforeNetwork(t *testing.T) {
	t.Parallel()

	c := NewCacheFromClient(nil, "test:", 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := c.Get(ctx, "k"); !errors.Is(err, context.Canceled) {
		t.Errorf("Get() error = %v, want context.Canceled", err)
	}
	if err := c.Set(context.Background(), "", nil, cache.SetOptions{}); !errors.Is(err, cache.ErrInvalidKey) {
		t.Errorf("Set(\"\") error = %v, want ErrInvalidKey", err)
	}
}

// TestCache_Integration runs against a live server when REDIS_ADDR is set.
func TestCache_Integration(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.Address = addr
	cfg.KeyPrefix = "react-agent-test:"
	c, err := NewCache(cfg)
	if err != nil {
		t.Fatalf("NewCache() error = %v", err)
	}
	defer c.Close()
	defer func() { _ = c.Clear(ctx) }()

	if err := c.Set(ctx, "k", []byte("v"), cache.SetOptions{TTL: time.Minute}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, ok, err := c.Get(ctx, "k")
	if err != nil || !ok || string(got) != "v" {
		t.Errorf("Get() = %q, %v, %v", got, ok, err)
	}
	if err := c.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if ok, _ := c.Exists(ctx, "k"); ok {
		t.Error("Exists() = true after Clear")
	}
	if c.Stats().Hits != 1 {
		t.Errorf("Stats().Hits = %d, want 1", c.Stats().Hits)
	}
}
