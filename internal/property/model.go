// Package property holds the read-mostly persisted subject data consumed by
// analysis skills: property profiles, equipment, financials, invoice line
// items, and stored documents.
package property

import "time"

// Profile describes one managed property.
type Profile struct {
	ID           string  `db:"id"`
	Name         string  `db:"name"`
	Units        int     `db:"units"`
	PropertyType string  `db:"property_type"` // garden, mid-rise, high-rise, mixed-use
	OccupancyPct float64 `db:"occupancy_pct"`
	Status       string  `db:"status"` // lease-up, stabilized, value-add
	HasCompactor bool    `db:"has_compactor"`
	HasValet     bool    `db:"has_valet"`
	Location     string  `db:"location"` // "City, State"
}

// Equipment describes the waste equipment installed at a property.
type Equipment struct {
	PropertyID          string  `db:"property_id"`
	ContainerYards      float64 `db:"container_yards"`
	MaxDaysBetweenHauls int     `db:"max_days_between_hauls"`
	DumpsterQty         int     `db:"dumpster_qty"`
	DumpsterYards       float64 `db:"dumpster_yards"`
	DumpsterFreqPerWeek float64 `db:"dumpster_freq_per_week"`
	DualCompactors      bool    `db:"dual_compactors"`
}

// Financials summarizes a property's recent waste service spend.
type Financials struct {
	PropertyID           string  `db:"property_id"`
	MonthlyCost          float64 `db:"monthly_cost"`
	CostPerHaul          float64 `db:"cost_per_haul"`
	MonthlyHauls         float64 `db:"monthly_hauls"`
	AvgTonsPerHaul       float64 `db:"avg_tons_per_haul"`
	ContaminationCharges float64 `db:"contamination_charges"`
	BulkCharges          float64 `db:"bulk_charges"`
	AvgMonthlyOverage    float64 `db:"avg_monthly_overage"`
	OveragesPresent      bool    `db:"overages_present"`
}

// InvoiceRow is one extracted invoice line item.
type InvoiceRow struct {
	ID            string  `db:"id"`
	PropertyID    string  `db:"property_id"`
	Month         string  `db:"month"` // MM/YYYY
	InvoiceNumber string  `db:"invoice_number"`
	Disposal      float64 `db:"disposal"`
	PickupFees    float64 `db:"pickup_fees"`
	Rental        float64 `db:"rental"`
	Contamination float64 `db:"contamination"`
	Bulk          float64 `db:"bulk"`
	Other         float64 `db:"other"`
}

// Total returns the line item's full charge.
func (r InvoiceRow) Total() float64 {
	return r.Disposal + r.PickupFees + r.Rental + r.Contamination + r.Bulk + r.Other
}

// Document is a stored raw document attached to a property.
type Document struct {
	ID         string    `db:"id"`
	PropertyID string    `db:"property_id"`
	Kind       string    `db:"kind"` // invoice, contract, haul_log
	Name       string    `db:"name"`
	Content    string    `db:"content"`
	UploadedAt time.Time `db:"uploaded_at"`
}

// DocKind values for Document.Kind.
const (
	DocKindInvoice  = "invoice"
	DocKindContract = "contract"
	DocKindHaulLog  = "haul_log"
)
