package skills

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thetrashhub/wastewise/internal/property"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func optimizationContext() *Context {
	return &Context{
		JobID:      "job-1",
		PropertyID: "prop-1",
		Profile:    &property.Profile{ID: "prop-1", Name: "Cedar Ridge", HasCompactor: true, Location: "Austin, TX"},
		Equipment: &property.Equipment{
			PropertyID:          "prop-1",
			ContainerYards:      30,
			MaxDaysBetweenHauls: 10,
		},
		Financials: &property.Financials{
			PropertyID:     "prop-1",
			MonthlyHauls:   9,
			AvgTonsPerHaul: 5.2,
			CostPerHaul:    550,
			BulkCharges:    100,
		},
		Invoices: []property.InvoiceRow{
			{Month: "01/2026", Disposal: 3000, PickupFees: 800, Rental: 200},
			{Month: "02/2026", Disposal: 3100, PickupFees: 800, Rental: 200},
		},
	}
}

func TestCompactorOptimizationRecommendsMonitors(t *testing.T) {
	skill := NewCompactorOptimizationSkill(discardLogger())
	sc := optimizationContext()

	var steps []int
	sc.Progress = func(percent int, _ string, _, _ int) {
		steps = append(steps, percent)
	}

	res, err := skill.Execute(context.Background(), sc)
	require.NoError(t, err)
	require.False(t, res.Cancelled)

	out, ok := res.Data.(*OptimizationResult)
	require.True(t, ok)

	// 30 yd at 580 lb/yd is 8.7 tons of capacity; 5.2 tons/haul is 59.8%.
	assert.Equal(t, 8.7, out.MaxCapacityTons)
	assert.Equal(t, 59.8, out.UtilizationPct)
	assert.Equal(t, 46.8, out.MonthlyTons)

	// ceil(46.8 / 8.5) = 6 hauls, saving 3 at $550 each, minus monitor costs.
	assert.Equal(t, float64(6), out.OptimizedHauls)
	assert.True(t, out.Recommend)
	assert.Equal(t, 1400.0, out.MonthlySavings)
	assert.Equal(t, 16800.0, out.AnnualSavings)

	// Two invoice months totalling $8100.
	assert.Equal(t, 4050.0, out.MonthlyInvoiceBaseline)

	require.NotEmpty(t, out.Recommendations)
	assert.Equal(t, "Add Compactor Monitors", out.Recommendations[0].Title)
	assert.Equal(t, 1, out.Recommendations[0].Priority)
	require.NotNil(t, out.Recommendations[0].PaybackMonths)
	assert.InDelta(t, 200.0/1400.0, *out.Recommendations[0].PaybackMonths, 1e-9)

	assert.Equal(t, []int{20, 45, 70, 100}, steps)
	assert.Zero(t, res.Usage.ExternalCalls)
}

func TestCompactorOptimizationFullCompactorIsNotRecommended(t *testing.T) {
	skill := NewCompactorOptimizationSkill(discardLogger())
	sc := optimizationContext()
	sc.Financials.AvgTonsPerHaul = 7.5

	res, err := skill.Execute(context.Background(), sc)
	require.NoError(t, err)

	out := res.Data.(*OptimizationResult)
	assert.False(t, out.Recommend)
	assert.Zero(t, out.MonthlySavings)
	assert.Zero(t, out.AnnualSavings)
	for _, rec := range out.Recommendations {
		assert.NotEqual(t, "Add Compactor Monitors", rec.Title)
	}
}

func TestCompactorOptimizationValidation(t *testing.T) {
	skill := NewCompactorOptimizationSkill(discardLogger())

	tests := []struct {
		name    string
		mutate  func(*Context)
		message string
	}{
		{
			name:    "missing equipment",
			mutate:  func(sc *Context) { sc.Equipment = nil },
			message: "no compactor equipment",
		},
		{
			name:    "missing financials",
			mutate:  func(sc *Context) { sc.Financials = nil },
			message: "no service financials",
		},
		{
			name:    "no invoice rows",
			mutate:  func(sc *Context) { sc.Invoices = nil },
			message: "no invoice line items",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := optimizationContext()
			tt.mutate(sc)

			_, err := skill.Execute(context.Background(), sc)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestCompactorOptimizationCancellation(t *testing.T) {
	skill := NewCompactorOptimizationSkill(discardLogger())
	sc := optimizationContext()

	var progressCalls int
	sc.Progress = func(int, string, int, int) { progressCalls++ }
	sc.Cancelled = func() bool { return progressCalls >= 1 }

	res, err := skill.Execute(context.Background(), sc)
	require.NoError(t, err)
	assert.True(t, res.Cancelled)
	assert.Nil(t, res.Data)
	assert.Equal(t, 1, progressCalls)
}

func TestCompactorOptimizationCustomTarget(t *testing.T) {
	skill := NewCompactorOptimizationSkill(discardLogger())
	sc := optimizationContext()
	sc.Params = []byte(`{"target_tons_per_haul": 9.5, "monitor_install_cost": 0, "monitor_monthly_cost": 0}`)

	res, err := skill.Execute(context.Background(), sc)
	require.NoError(t, err)

	out := res.Data.(*OptimizationResult)
	assert.Equal(t, 9.5, out.TargetTonsPerHaul)
	// ceil(46.8 / 9.5) = 5 hauls, saving 4 at $550 with no monitor costs.
	assert.Equal(t, float64(5), out.OptimizedHauls)
	assert.Equal(t, 2200.0, out.MonthlySavings)
}

func TestOptimizedHaulCount(t *testing.T) {
	assert.Equal(t, float64(6), optimizedHaulCount(46.8, 8.5))
	assert.Equal(t, float64(1), optimizedHaulCount(0.1, 8.5))
	assert.Equal(t, float64(0), optimizedHaulCount(10, 0))
}

func TestMonthlyInvoiceTotalAveragesDistinctMonths(t *testing.T) {
	rows := []property.InvoiceRow{
		{Month: "01/2026", Disposal: 1000},
		{Month: "01/2026", Bulk: 200},
		{Month: "02/2026", Disposal: 1200},
	}
	assert.Equal(t, 1200.0, monthlyInvoiceTotal(rows))
	assert.Zero(t, monthlyInvoiceTotal(nil))
}

func TestContaminationPlan(t *testing.T) {
	tests := []struct {
		name         string
		charges      float64
		monthlySpend float64
		wantNil      bool
		wantDetail   string
		wantSavings  float64
	}{
		{name: "below threshold", charges: 100, monthlySpend: 4000, wantNil: true},
		{name: "heavy contamination", charges: 300, monthlySpend: 4000, wantDetail: "Full program", wantSavings: 150},
		{name: "light contamination", charges: 140, monthlySpend: 4000, wantDetail: "Light intervention", wantSavings: 35},
		{name: "high rate low dollars", charges: 120, monthlySpend: 2000, wantDetail: "Light intervention", wantSavings: 60},
		{name: "no spend baseline", charges: 500, monthlySpend: 0, wantNil: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := contaminationPlan(tt.charges, tt.monthlySpend)
			if tt.wantNil {
				assert.Nil(t, rec)
				return
			}
			require.NotNil(t, rec)
			assert.Equal(t, "Contamination Reduction", rec.Title)
			assert.Contains(t, rec.Detail, tt.wantDetail)
			assert.Equal(t, tt.wantSavings, rec.MonthlySavings)
			assert.Equal(t, tt.wantSavings*12, rec.AnnualSavings)
		})
	}
}

func TestBulkStrategy(t *testing.T) {
	tests := []struct {
		name        string
		avgBulk     float64
		wantTitle   string
		wantSavings float64
	}{
		{name: "high spend", avgBulk: 650, wantTitle: "Switch to Bulk Subscription", wantSavings: 250},
		{name: "borderline", avgBulk: 350, wantTitle: "Monitor Bulk Spend"},
		{name: "low spend", avgBulk: 150, wantTitle: "Keep On-Demand Bulk"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := bulkStrategy(tt.avgBulk)
			assert.Equal(t, tt.wantTitle, rec.Title)
			assert.Equal(t, tt.wantSavings, rec.MonthlySavings)
		})
	}
}

func TestServiceGuidance(t *testing.T) {
	assert.Contains(t, serviceGuidance(8.2, true), "Add a service day")
	assert.Contains(t, serviceGuidance(5.0, false), "Reduce pickup frequency")
	assert.Contains(t, serviceGuidance(8.2, false), "Maintain")
	assert.Contains(t, serviceGuidance(5.0, true), "Maintain")
	assert.Contains(t, serviceGuidance(7.0, false), "Maintain")
}

func TestYardsPerDoorWeekly(t *testing.T) {
	// 30 yd container, 9 hauls/month, 200 units: 3240 yd/yr over 200 doors.
	assert.InDelta(t, 0.3115, yardsPerDoorWeekly(30, 9, 200), 1e-4)
	assert.Zero(t, yardsPerDoorWeekly(30, 9, 0))
}

func TestAssessServiceLevel(t *testing.T) {
	tests := []struct {
		name       string
		ypd        float64
		wantStatus string
	}{
		{"below minimum", 0.04, "under-serviced"},
		{"at optimal", 0.09, "within range"},
		{"between optimal and max", 0.11, "within range"},
		{"above maximum", 0.2, "over-serviced"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			benchmark := assessServiceLevel(tt.ypd)
			assert.Equal(t, tt.wantStatus, benchmark.Status)
			assert.InDelta(t, tt.ypd, benchmark.YardsPerDoorWeekly, 1e-9)
		})
	}
}

func TestBenchmarkRequiresUnitCount(t *testing.T) {
	skill := NewCompactorOptimizationSkill(discardLogger())

	sc := optimizationContext()
	result, err := skill.Execute(context.Background(), sc)
	require.NoError(t, err)
	assert.Nil(t, result.Data.(*OptimizationResult).ServiceBenchmark)

	sc = optimizationContext()
	sc.Profile.Units = 200
	result, err = skill.Execute(context.Background(), sc)
	require.NoError(t, err)

	benchmark := result.Data.(*OptimizationResult).ServiceBenchmark
	require.NotNil(t, benchmark)
	assert.Equal(t, "over-serviced", benchmark.Status)
	assert.InDelta(t, 0.312, benchmark.YardsPerDoorWeekly, 1e-9)
}

func TestPrioritizeOrdersBySavingsThenPayback(t *testing.T) {
	fast, slow := 2.0, 6.0
	recs := []Recommendation{
		{Title: "no savings"},
		{Title: "slow payback", AnnualSavings: 1200, PaybackMonths: &slow},
		{Title: "fast payback", AnnualSavings: 1200, PaybackMonths: &fast},
		{Title: "big savings", AnnualSavings: 9000},
	}

	prioritize(recs)

	assert.Equal(t, "big savings", recs[0].Title)
	assert.Equal(t, "fast payback", recs[1].Title)
	assert.Equal(t, "slow payback", recs[2].Title)
	assert.Equal(t, "no savings", recs[3].Title)
	for i, rec := range recs {
		assert.Equal(t, i+1, rec.Priority)
	}
}
