package auth

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"lumen/app/core/db"
)

func newTestDB(t *testing.T) *db.DB {
	t.Helper()
	database, err := db.NewSQLiteDB(filepath.Join(t.TempDir(), "db"))
	if err != nil {
		t.Fatalf("init sqlite failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

func TestSessionCreateResolveDelete(t *testing.T) {
	sessions := NewSessionStore(newTestDB(t), time.Hour)
	ctx := context.Background()

	token, err := sessions.Create(ctx, "ben@kernioncognitivelabs.com")
	if err != nil {
		t.Fatalf("create session failed: %v", err)
	}
	if token == "" {
		t.Fatal("expected a session token")
	}

	email, err := sessions.Resolve(ctx, token)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if email != "ben@kernioncognitivelabs.com" {
		t.Fatalf("unexpected email: %s", email)
	}

	if err := sessions.Delete(ctx, token); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	email, err = sessions.Resolve(ctx, token)
	if err != nil {
		t.Fatalf("resolve after delete failed: %v", err)
	}
	if email != "" {
		t.Fatalf("deleted session must not resolve, got %s", email)
	}
}

func TestSessionResolveUnknownToken(t *testing.T) {
	sessions := NewSessionStore(newTestDB(t), time.Hour)

	email, err := sessions.Resolve(context.Background(), "not-a-token")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if email != "" {
		t.Fatalf("unknown token must not resolve, got %s", email)
	}
}

func TestSessionExpiryAndPrune(t *testing.T) {
	sessions := NewSessionStore(newTestDB(t), time.Millisecond)
	ctx := context.Background()

	token, err := sessions.Create(ctx, "ben@kernioncognitivelabs.com")
	if err != nil {
		t.Fatalf("create session failed: %v", err)
	}

	time.Sleep(5 * time.Millisecond)

	email, err := sessions.Resolve(ctx, token)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if email != "" {
		t.Fatalf("expired session must not resolve, got %s", email)
	}

	pruned, err := sessions.PruneExpired(ctx)
	if err != nil {
		t.Fatalf("prune failed: %v", err)
	}
	if pruned != 1 {
		t.Fatalf("expected 1 pruned session, got %d", pruned)
	}
}
