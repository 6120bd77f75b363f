package property

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// ErrNotFound is returned when a property or one of its profile rows is missing.
var ErrNotFound = errors.New("property record not found")

// Repository reads persisted subject data for skills. Skills only read;
// derived-row write paths live outside the analysis core.
type Repository interface {
	GetProfile(ctx context.Context, propertyID string) (*Profile, error)
	GetEquipment(ctx context.Context, propertyID string) (*Equipment, error)
	GetFinancials(ctx context.Context, propertyID string) (*Financials, error)
	ListInvoiceRows(ctx context.Context, propertyID string) ([]InvoiceRow, error)
	ListDocuments(ctx context.Context, propertyID, kind string) ([]Document, error)
}

// PostgresRepository is the sqlx-backed Repository.
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a Repository over the given database.
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetProfile(ctx context.Context, propertyID string) (*Profile, error) {
	query := `
		SELECT id, name, units, property_type, occupancy_pct, status,
		       has_compactor, has_valet, location
		FROM properties
		WHERE id = $1
	`

	var profile Profile
	if err := r.db.GetContext(ctx, &profile, query, propertyID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get property profile: %w", err)
	}

	return &profile, nil
}

func (r *PostgresRepository) GetEquipment(ctx context.Context, propertyID string) (*Equipment, error) {
	query := `
		SELECT property_id, container_yards, max_days_between_hauls,
		       dumpster_qty, dumpster_yards, dumpster_freq_per_week, dual_compactors
		FROM property_equipment
		WHERE property_id = $1
	`

	var equipment Equipment
	if err := r.db.GetContext(ctx, &equipment, query, propertyID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get property equipment: %w", err)
	}

	return &equipment, nil
}

func (r *PostgresRepository) GetFinancials(ctx context.Context, propertyID string) (*Financials, error) {
	query := `
		SELECT property_id, monthly_cost, cost_per_haul, monthly_hauls,
		       avg_tons_per_haul, contamination_charges, bulk_charges,
		       avg_monthly_overage, overages_present
		FROM property_financials
		WHERE property_id = $1
	`

	var financials Financials
	if err := r.db.GetContext(ctx, &financials, query, propertyID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get property financials: %w", err)
	}

	return &financials, nil
}

func (r *PostgresRepository) ListInvoiceRows(ctx context.Context, propertyID string) ([]InvoiceRow, error) {
	query := `
		SELECT id, property_id, month, invoice_number,
		       disposal, pickup_fees, rental, contamination, bulk, other
		FROM invoice_line_items
		WHERE property_id = $1
		ORDER BY month ASC, invoice_number ASC
	`

	var rows []InvoiceRow
	if err := r.db.SelectContext(ctx, &rows, query, propertyID); err != nil {
		return nil, fmt.Errorf("failed to list invoice rows: %w", err)
	}

	return rows, nil
}

func (r *PostgresRepository) ListDocuments(ctx context.Context, propertyID, kind string) ([]Document, error) {
	query := `
		SELECT id, property_id, kind, name, content, uploaded_at
		FROM property_documents
		WHERE property_id = $1 AND kind = $2
		ORDER BY uploaded_at ASC
	`

	var docs []Document
	if err := r.db.SelectContext(ctx, &docs, query, propertyID, kind); err != nil {
		return nil, fmt.Errorf("failed to list property documents: %w", err)
	}

	return docs, nil
}
