package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SettingsService stores per-owner defaults for new drafts.
type SettingsService interface {
	// Get returns the stored settings, or DefaultSettings when none exist.
	Get(ctx context.Context, ownerID int) (Settings, error)
	Save(ctx context.Context, s Settings) (Settings, error)
}

type settingsService struct {
	pool *pgxpool.Pool
}

func NewSettingsService(pool *pgxpool.Pool) SettingsService {
	return &settingsService{pool: pool}
}

const settingsColumns = `
	owner_id, title, template, logo, from_name, from_email, from_address, from_phone,
	business_number, tax_type, tax_rate, color, signature, currency, updated_at`

func scanSettings(row pgx.Row) (Settings, error) {
	var s Settings
	err := row.Scan(
		&s.OwnerID, &s.Title, &s.Template, &s.Logo, &s.From.Name, &s.From.Email, &s.From.Address, &s.From.Phone,
		&s.BusinessNumber, &s.TaxType, &s.TaxRate, &s.Color, &s.Signature, &s.Currency, &s.UpdatedAt,
	)
	return s, err
}

func (s *settingsService) Get(ctx context.Context, ownerID int) (Settings, error) {
	out, err := scanSettings(s.pool.QueryRow(ctx, `SELECT `+settingsColumns+` FROM user_settings WHERE owner_id = $1`, ownerID))
	if errors.Is(err, pgx.ErrNoRows) {
		return DefaultSettings(ownerID), nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("failed to get settings for owner %d: %w", ownerID, err)
	}
	return out, nil
}

func (s *settingsService) Save(ctx context.Context, in Settings) (Settings, error) {
	out, err := scanSettings(s.pool.QueryRow(ctx, `
		INSERT INTO user_settings (
			owner_id, title, template, logo, from_name, from_email, from_address, from_phone,
			business_number, tax_type, tax_rate, color, signature, currency
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (owner_id) DO UPDATE SET
			title = EXCLUDED.title,
			template = EXCLUDED.template,
			logo = EXCLUDED.logo,
			from_name = EXCLUDED.from_name,
			from_email = EXCLUDED.from_email,
			from_address = EXCLUDED.from_address,
			from_phone = EXCLUDED.from_phone,
			business_number = EXCLUDED.business_number,
			tax_type = EXCLUDED.tax_type,
			tax_rate = EXCLUDED.tax_rate,
			color = EXCLUDED.color,
			signature = EXCLUDED.signature,
			currency = EXCLUDED.currency,
			updated_at = now()
		RETURNING `+settingsColumns,
		in.OwnerID, in.Title, in.Template, in.Logo, in.From.Name, in.From.Email, in.From.Address, in.From.Phone,
		in.BusinessNumber, in.TaxType, in.TaxRate, in.Color, in.Signature, in.Currency,
	))
	if err != nil {
		return Settings{}, fmt.Errorf("failed to save settings for owner %d: %w", in.OwnerID, err)
	}
	return out, nil
}
