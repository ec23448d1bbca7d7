package core

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NumberFormat renders a sequence value as an invoice number.
const NumberFormat = "INV-%05d"

// NumberingService hands out gapless per-owner invoice numbers.
type NumberingService interface {
	// Next reserves the owner's next number in its own transaction.
	Next(ctx context.Context, ownerID int) (string, error)
	// NextTx reserves the next number inside the caller's transaction, so a
	// rolled-back insert does not burn a number.
	NextTx(ctx context.Context, tx pgx.Tx, ownerID int) (string, error)
	// Peek returns the number Next would hand out, without reserving it.
	Peek(ctx context.Context, ownerID int) (string, error)
}

type numberingService struct {
	pool *pgxpool.Pool
}

func NewNumberingService(pool *pgxpool.Pool) NumberingService {
	return &numberingService{pool: pool}
}

func (s *numberingService) Next(ctx context.Context, ownerID int) (string, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	number, err := s.NextTx(ctx, tx, ownerID)
	if err != nil {
		return "", err
	}
	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}
	return number, nil
}

func (s *numberingService) NextTx(ctx context.Context, tx pgx.Tx, ownerID int) (string, error) {
	var last int64
	err := tx.QueryRow(ctx, `
		INSERT INTO invoice_sequences (owner_id, last_number)
		VALUES ($1, 1)
		ON CONFLICT (owner_id)
		DO UPDATE SET last_number = invoice_sequences.last_number + 1
		RETURNING last_number
	`, ownerID).Scan(&last)
	if err != nil {
		return "", fmt.Errorf("failed to generate gapless sequence number: %w", err)
	}
	return fmt.Sprintf(NumberFormat, last), nil
}

func (s *numberingService) Peek(ctx context.Context, ownerID int) (string, error) {
	var last int64
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE((SELECT last_number FROM invoice_sequences WHERE owner_id = $1), 0)`, ownerID,
	).Scan(&last)
	if err != nil {
		return "", fmt.Errorf("failed to read invoice sequence: %w", err)
	}
	return fmt.Sprintf(NumberFormat, last+1), nil
}
