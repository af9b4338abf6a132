package repository

import (
	"context"
	"fmt"
	"os"
	"testing"

	"pickup-address-matcher/internal/models"
	"pickup-address-matcher/pkg/address"
	"pickup-address-matcher/pkg/config"
	"pickup-address-matcher/pkg/database"
)

// Benchmark the per-city read path used by every resolve.
func BenchmarkListLocationsByCity(b *testing.B) {
	url := os.Getenv("DATABASE_URL_TEST")
	if url == "" {
		url = os.Getenv("DATABASE_URL")
	}
	if url == "" {
		b.Skip("DATABASE_URL_TEST or DATABASE_URL not set; skipping DB benchmark")
	}
	cfg := config.Load()
	cfg.DatabaseURL = url
	ctx := context.Background()
	db, err := database.NewWithConfig(ctx, cfg)
	if err != nil {
		b.Fatalf("failed to create db: %v", err)
	}
	defer db.Close()

	repo := NewSQLRepository(db)
	for i := 0; i < 50; i++ {
		loc := models.NewPickupLocation(address.Parse(fmt.Sprintf("Rue %d, Sousse", i), nil))
		if err := repo.CreateLocationCtx(ctx, &loc); err != nil {
			b.Fatalf("seed: %v", err)
		}
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = repo.ListLocationsByCityCtx(ctx, "sousse")
	}
}
