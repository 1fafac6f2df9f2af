package cacheinfra

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Capacity != 10000 {
		t.Errorf("expected Capacity to be 10000, got %d", cfg.Capacity)
	}

	if cfg.NumShards != 64 {
		t.Errorf("expected NumShards to be 64, got %d", cfg.NumShards)
	}

	if cfg.TTL != 60*time.Second {
		t.Errorf("expected TTL to be 60 seconds, got %v", cfg.TTL)
	}

	if cfg.EvictionPercentage != 10 {
		t.Errorf("expected EvictionPercentage to be 10, got %d", cfg.EvictionPercentage)
	}

	if cfg.EvictionInterval != 0 {
		t.Errorf("expected EvictionInterval to default to 0, got %v", cfg.EvictionInterval)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config must validate, got %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		cfg       Config
		wantField string
	}{
		{
			name: "valid config",
			cfg:  DefaultConfig(),
		},
		{
			name: "zero capacity",
			cfg: Config{
				Capacity:           0,
				NumShards:          64,
				TTL:                time.Minute,
				EvictionPercentage: 10,
			},
			wantField: "Capacity",
		},
		{
			name: "negative capacity",
			cfg: Config{
				Capacity:           -1,
				NumShards:          64,
				TTL:                time.Minute,
				EvictionPercentage: 10,
			},
			wantField: "Capacity",
		},
		{
			name: "zero shards",
			cfg: Config{
				Capacity:           100,
				NumShards:          0,
				TTL:                time.Minute,
				EvictionPercentage: 10,
			},
			wantField: "NumShards",
		},
		{
			name: "zero ttl",
			cfg: Config{
				Capacity:           100,
				NumShards:          64,
				TTL:                0,
				EvictionPercentage: 10,
			},
			wantField: "TTL",
		},
		{
			name: "eviction percentage too low",
			cfg: Config{
				Capacity:           100,
				NumShards:          64,
				TTL:                time.Minute,
				EvictionPercentage: 0,
			},
			wantField: "EvictionPercentage",
		},
		{
			name: "eviction percentage too high",
			cfg: Config{
				Capacity:           100,
				NumShards:          64,
				TTL:                time.Minute,
				EvictionPercentage: 101,
			},
			wantField: "EvictionPercentage",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Errorf("expected valid config, got %v", err)
				}
				return
			}

			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected *ConfigError, got %T: %v", err, err)
			}
			if cfgErr.Field != tt.wantField {
				t.Errorf("expected error on field %s, got %s", tt.wantField, cfgErr.Field)
			}
		})
	}
}

func TestConfig_ToSturdycOptions(t *testing.T) {
	cfg := DefaultConfig()
	if opts := cfg.ToSturdycOptions(); len(opts) != 0 {
		t.Errorf("expected no options for a zero eviction interval, got %d", len(opts))
	}

	cfg.EvictionInterval = 30 * time.Second
	if opts := cfg.ToSturdycOptions(); len(opts) != 1 {
		t.Errorf("expected one option for a set eviction interval, got %d", len(opts))
	}
}

func TestNewSturdycService_InvalidConfig(t *testing.T) {
	_, err := NewSturdycService(Config{})
	if err == nil {
		t.Fatal("expected an error for an invalid config")
	}
}

func TestSturdycService_SetGetDelete(t *testing.T) {
	svc, err := NewSturdycService(DefaultConfig())
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	ctx := context.Background()

	if _, ok := svc.Get(ctx, "missing"); ok {
		t.Error("expected a miss for an unknown key")
	}

	svc.Set(ctx, "k", []string{"a", "b"})
	got, ok := svc.Get(ctx, "k")
	if !ok {
		t.Fatal("expected a hit after Set")
	}
	items, ok := got.([]string)
	if !ok || len(items) != 2 {
		t.Errorf("unexpected cached value: %v", got)
	}

	if err := svc.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok := svc.Get(ctx, "k"); ok {
		t.Error("expected a miss after Delete")
	}
}

func TestSturdycService_GetOrFetch(t *testing.T) {
	svc, err := NewSturdycService(DefaultConfig())
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	ctx := context.Background()

	var fetches atomic.Int32
	fetchFn := func(ctx context.Context) (any, error) {
		fetches.Add(1)
		return "fresh", nil
	}

	for i := 0; i < 3; i++ {
		got, err := svc.GetOrFetch(ctx, "k", fetchFn)
		if err != nil {
			t.Fatalf("GetOrFetch failed: %v", err)
		}
		if got != "fresh" {
			t.Errorf("unexpected value: %v", got)
		}
	}

	if n := fetches.Load(); n != 1 {
		t.Errorf("expected exactly one fetch within the TTL, got %d", n)
	}
}

func TestSturdycService_GetOrFetchError(t *testing.T) {
	svc, err := NewSturdycService(DefaultConfig())
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}

	boom := errors.New("fetch failed")
	_, err = svc.GetOrFetch(context.Background(), "k", func(ctx context.Context) (any, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("expected fetch error to propagate, got %v", err)
	}
}
