package services_test

import (
	"context"
	"testing"

	"songrank/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithEntryID(ctx, 42)
	ctx = services.WithRanking(ctx, "main")
	ctx = services.WithRequestID(ctx, "req-123")

	if id, ok := services.EntryIDFromContext(ctx); !ok || id != 42 {
		t.Fatalf("unexpected entry id: %v %v", id, ok)
	}
	if slug, ok := services.RankingFromContext(ctx); !ok || slug != "main" {
		t.Fatalf("unexpected ranking: %v %v", slug, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestRankingBlankPreservesContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRanking(ctx, "")
	if _, ok := services.RankingFromContext(ctx); ok {
		t.Fatal("expected no ranking value")
	}
}
