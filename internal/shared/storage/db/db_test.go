package db

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

// withMockPool makes openDB hand out sqlmock pools that expect one ping each.
// failFirst makes the first open fail.
func withMockPool(t *testing.T, failFirst bool) *int {
	t.Helper()
	opens := 0
	prev := openDB
	openDB = func(driverName, dsn string) (*sql.DB, error) {
		opens++
		if failFirst && opens == 1 {
			return nil, errors.New("connection refused")
		}
		pool, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		if err != nil {
			t.Fatalf("sqlmock: %v", err)
		}
		mock.ExpectPing()
		return pool, nil
	}
	t.Cleanup(func() {
		openDB = prev
		shared.mu.Lock()
		shared.db = nil
		shared.mu.Unlock()
	})
	return &opens
}

func TestGetSingletonReusesPool(t *testing.T) {
	opens := withMockPool(t, false)

	first, err := GetSingleton(context.Background(), "postgres://companion", DefaultLambdaOptions())
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := GetSingleton(context.Background(), "postgres://companion", DefaultLambdaOptions())
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if first != second {
		t.Fatalf("expected the same pool")
	}
	if *opens != 1 {
		t.Fatalf("expected one open, got %d", *opens)
	}
}

func TestGetSingletonRetriesAfterFailure(t *testing.T) {
	opens := withMockPool(t, true)

	if _, err := GetSingleton(context.Background(), "postgres://companion", DefaultLambdaOptions()); err == nil {
		t.Fatalf("expected first connect to fail")
	}
	pool, err := GetSingleton(context.Background(), "postgres://companion", DefaultLambdaOptions())
	if err != nil || pool == nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if *opens != 2 {
		t.Fatalf("expected two opens, got %d", *opens)
	}
}

func TestConnectRejectsEmptyURL(t *testing.T) {
	if _, err := Connect(context.Background(), "  ", DefaultServerOptions()); err == nil {
		t.Fatalf("expected error for empty url")
	}
}

func TestConnectAppliesPoolLimits(t *testing.T) {
	withMockPool(t, false)

	pool, err := Connect(context.Background(), "postgres://companion", Options{MaxOpenConns: 4})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer pool.Close()
	if got := pool.Stats().MaxOpenConnections; got != 4 {
		t.Fatalf("expected 4 max open, got %d", got)
	}
}

func TestOptionsFromEnvAppliesOverrides(t *testing.T) {
	t.Setenv("DB_MAX_OPEN_CONNS", "7")
	t.Setenv("DB_CONN_MAX_LIFETIME", "20m")
	t.Setenv("DB_PING_TIMEOUT", "1s")

	opts := OptionsFromEnv(DefaultServerOptions())
	if opts.MaxOpenConns != 7 || opts.ConnMaxLifetime != 20*time.Minute || opts.PingTimeout != time.Second {
		t.Fatalf("overrides not applied: %+v", opts)
	}
	if opts.MaxIdleConns != DefaultServerOptions().MaxIdleConns {
		t.Fatalf("unset fields must keep defaults, got %+v", opts)
	}
}

func TestOptionsFromEnvKeepsDefaultsOnBadValue(t *testing.T) {
	t.Setenv("DB_MAX_IDLE_CONNS", "many")

	if opts := OptionsFromEnv(DefaultLambdaOptions()); opts != DefaultLambdaOptions() {
		t.Fatalf("expected defaults, got %+v", opts)
	}
}
