package tokenstore_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/google/uuid"

	"bookstore/internal/platform/database"
	"bookstore/internal/platform/migrate"
	"bookstore/internal/tokenstore"
)

func TestPostgresBackendRoundTrip(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := database.NewPostgres(ctx, url)
	if err != nil {
		t.Skipf("postgres unavailable: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := migrate.Apply(ctx, db, logger); err != nil {
		t.Fatalf("migrate.Apply returned error: %v", err)
	}

	store := tokenstore.New(tokenstore.NewPostgresBackend(db), uuid.NewString())
	t.Cleanup(func() { _ = store.Clear(context.Background()) })

	if err := store.SetToken(ctx, "first"); err != nil {
		t.Fatalf("SetToken returned error: %v", err)
	}
	if err := store.SetToken(ctx, "second"); err != nil {
		t.Fatalf("SetToken upsert returned error: %v", err)
	}
	if got, err := store.Token(ctx); err != nil || got != "second" {
		t.Fatalf("expected second, got %q (%v)", got, err)
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear returned error: %v", err)
	}
	if got, err := store.Token(ctx); err != nil || got != "" {
		t.Fatalf("expected empty token after clear, got %q (%v)", got, err)
	}
}
