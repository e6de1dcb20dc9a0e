package health

import (
	"context"
	"database/sql"
	"testing"

	"github.com/redis/go-redis/v9"
)

func TestDBChecker_Creation(t *testing.T) {
	db := &sql.DB{}

	checker := NewDBChecker(db)
	if checker == nil {
		t.Fatal("expected checker to be non-nil")
	}

	if checker.db != db {
		t.Error("expected checker db to match provided db")
	}
}

func TestRedisChecker_Creation(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
	})

	checker := NewRedisChecker(client)
	if checker == nil {
		t.Fatal("expected checker to be non-nil")
	}

	if checker.client != client {
		t.Error("expected checker client to match provided client")
	}
}

func TestRedisChecker_UnreachableServer(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:1",
	})

	checker := NewRedisChecker(client)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := checker.HealthCheck(ctx); err == nil {
		t.Error("expected error for cancelled context against unreachable server")
	}
}
