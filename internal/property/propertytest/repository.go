// Package propertytest provides an in-memory property repository for skill
// and processor tests.
package propertytest

import (
	"context"

	"github.com/thetrashhub/wastewise/internal/property"
)

// Repository is an in-memory property.Repository seeded per test.
type Repository struct {
	Profiles   map[string]*property.Profile
	Equipment  map[string]*property.Equipment
	Financials map[string]*property.Financials
	Invoices   map[string][]property.InvoiceRow
	Documents  map[string][]property.Document
}

// NewRepository creates an empty repository.
func NewRepository() *Repository {
	return &Repository{
		Profiles:   make(map[string]*property.Profile),
		Equipment:  make(map[string]*property.Equipment),
		Financials: make(map[string]*property.Financials),
		Invoices:   make(map[string][]property.InvoiceRow),
		Documents:  make(map[string][]property.Document),
	}
}

func (r *Repository) GetProfile(_ context.Context, propertyID string) (*property.Profile, error) {
	if p, ok := r.Profiles[propertyID]; ok {
		return p, nil
	}
	return nil, property.ErrNotFound
}

func (r *Repository) GetEquipment(_ context.Context, propertyID string) (*property.Equipment, error) {
	if e, ok := r.Equipment[propertyID]; ok {
		return e, nil
	}
	return nil, property.ErrNotFound
}

func (r *Repository) GetFinancials(_ context.Context, propertyID string) (*property.Financials, error) {
	if f, ok := r.Financials[propertyID]; ok {
		return f, nil
	}
	return nil, property.ErrNotFound
}

func (r *Repository) ListInvoiceRows(_ context.Context, propertyID string) ([]property.InvoiceRow, error) {
	return r.Invoices[propertyID], nil
}

func (r *Repository) ListDocuments(_ context.Context, propertyID, kind string) ([]property.Document, error) {
	var out []property.Document
	for _, doc := range r.Documents[propertyID] {
		if doc.Kind == kind {
			out = append(out, doc)
		}
	}
	return out, nil
}
