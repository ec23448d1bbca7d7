package core_test

import (
	"context"
	"os"
	"testing"

	"invoice-studio/internal/invoice"
	"invoice-studio/migrations"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	_ = godotenv.Load("../../.env")

	// Use a dedicated TEST database; the tables are truncated.
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test to protect live database")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if _, err := migrations.Apply(ctx, pool); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	_, err = pool.Exec(ctx, `TRUNCATE TABLE invoices, invoice_sequences, user_settings RESTART IDENTITY`)
	if err != nil {
		t.Fatalf("Failed to clean test database: %v", err)
	}
	return pool
}

type templateNames []string

func (n templateNames) Has(name string) bool {
	for _, v := range n {
		if v == name {
			return true
		}
	}
	return false
}

var templates = templateNames{"Classic", "Sharp", "Clean", "Default"}

func finalized(t *testing.T, ownerID int, client string, mutate func(*invoice.Record)) invoice.Record {
	t.Helper()
	rec := invoice.Record{
		OwnerID:  ownerID,
		From:     invoice.Party{Name: "Acme Studio"},
		BillTo:   invoice.Party{Name: client},
		Date:     "2026-10-16",
		Currency: "USD",
		Items: []invoice.LineItem{
			{Description: "Design", Rate: decimal.NewFromInt(100), Quantity: decimal.NewFromInt(1), Taxable: true},
			{Description: "Hosting", Rate: decimal.NewFromInt(50), Quantity: decimal.NewFromInt(1)},
		},
		Discount: invoice.DiscountConfig{Type: invoice.DiscountPercentage, Value: decimal.NewFromInt(10)},
		Tax:      invoice.TaxConfig{Type: "VAT", Rate: decimal.NewFromInt(10)},
	}
	if mutate != nil {
		mutate(&rec)
	}
	out, err := invoice.Finalize(rec, templates)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	return out
}
