package skills

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/thetrashhub/wastewise/internal/jobs/domain"
	"github.com/thetrashhub/wastewise/internal/property"
)

// Compactor benchmark constants.
const (
	// poundsPerCompactedYard converts compactor volume to weight.
	poundsPerCompactedYard = 580
	poundsPerTon           = 2000

	// fullHaulTons is the tons-per-haul level above which a compactor is
	// already running full; no monitor recommendation applies.
	fullHaulTons = 7.0

	// defaultTargetTons is what compactor monitors typically achieve.
	defaultTargetTons = 8.5

	// maxHaulIntervalDays disqualifies properties whose hauls are already
	// spaced out beyond what monitors can improve.
	maxHaulIntervalDays = 14

	// minMonthlySavings is the floor below which a monitor install is not
	// worth recommending.
	minMonthlySavings = 300.0

	defaultMonitorInstallCost = 200.0
	defaultMonitorMonthlyCost = 50.0

	// optimizationSteps is the skill's fixed step count.
	optimizationSteps = 4
)

// Weekly yards-per-door benchmarks for compacted service.
const (
	minYardsPerDoor     = 0.06
	optimalYardsPerDoor = 0.09
	maxYardsPerDoor     = 0.125

	weeksPerYear = 52
)

// OptimizationParams are the submitter-tunable knobs.
type OptimizationParams struct {
	TargetTonsPerHaul  float64 `json:"target_tons_per_haul"`
	MonitorInstallCost float64 `json:"monitor_install_cost"`
	MonitorMonthlyCost float64 `json:"monitor_monthly_cost"`
}

// Recommendation is one actionable savings opportunity.
type Recommendation struct {
	Title          string   `json:"title"`
	Detail         string   `json:"detail"`
	MonthlySavings float64  `json:"monthly_savings"`
	AnnualSavings  float64  `json:"annual_savings"`
	PaybackMonths  *float64 `json:"payback_months,omitempty"`
	Priority       int      `json:"priority"`
}

// OptimizationResult is the compactor_optimization result schema.
type OptimizationResult struct {
	MaxCapacityTons     float64 `json:"max_capacity_tons"`
	UtilizationPct      float64 `json:"utilization_pct"`
	MonthlyTons         float64 `json:"monthly_tons"`
	CurrentMonthlyHauls float64 `json:"current_monthly_hauls"`
	OptimizedHauls      float64 `json:"optimized_monthly_hauls"`
	TargetTonsPerHaul   float64 `json:"target_tons_per_haul"`

	Recommend              bool    `json:"recommend"`
	MonthlySavings         float64 `json:"monthly_savings"`
	AnnualSavings          float64 `json:"annual_savings"`
	MonthlyInvoiceBaseline float64 `json:"monthly_invoice_baseline"`

	ServiceGuidance  string            `json:"service_guidance"`
	ServiceBenchmark *ServiceBenchmark `json:"service_benchmark,omitempty"`
	Recommendations  []Recommendation  `json:"recommendations"`
}

// ServiceBenchmark compares weekly compacted volume per unit against the
// 0.06 / 0.09 / 0.125 yards-per-door bands.
type ServiceBenchmark struct {
	YardsPerDoorWeekly float64 `json:"yards_per_door_weekly"`
	Status             string  `json:"status"`
	Guidance           string  `json:"guidance"`
}

// CompactorOptimizationSkill is the pure numeric skill: no external calls.
type CompactorOptimizationSkill struct {
	logger *slog.Logger
}

// NewCompactorOptimizationSkill creates the skill.
func NewCompactorOptimizationSkill(logger *slog.Logger) *CompactorOptimizationSkill {
	return &CompactorOptimizationSkill{logger: logger}
}

func (s *CompactorOptimizationSkill) Type() domain.JobType {
	return domain.JobTypeCompactorOptimization
}

func (s *CompactorOptimizationSkill) Requires() Requirements {
	return Requirements{Profile: true, Equipment: true, Financials: true, Invoices: true}
}

// Execute validates inputs, sizes the compactor, computes haul-reduction
// savings, and assembles prioritized recommendations.
func (s *CompactorOptimizationSkill) Execute(_ context.Context, sc *Context) (*Result, error) {
	params, err := s.parseParams(sc.Params)
	if err != nil {
		return nil, domain.NewSkillError("invalid optimization parameters", err)
	}

	// Step 1: validate subject data.
	if sc.Equipment == nil || sc.Equipment.ContainerYards <= 0 {
		return nil, domain.NewSkillError(
			fmt.Sprintf("property %s has no compactor equipment on record", sc.PropertyID), nil)
	}
	if sc.Financials == nil || sc.Financials.AvgTonsPerHaul <= 0 {
		return nil, domain.NewSkillError(
			fmt.Sprintf("property %s has no service financials on record", sc.PropertyID), nil)
	}
	if len(sc.Invoices) == 0 {
		return nil, domain.NewSkillError(
			fmt.Sprintf("property %s has no invoice line items; run invoice extraction first", sc.PropertyID), nil)
	}
	sc.ReportProgress(20, "validating service data", 1, optimizationSteps)
	if sc.IsCancelled() {
		return cancelledResult(domain.UsageStats{}), nil
	}

	// Step 2: capacity analysis.
	equipment, financials := sc.Equipment, sc.Financials
	maxCapacity := maxCapacityTons(equipment.ContainerYards)
	utilization := financials.AvgTonsPerHaul / maxCapacity * 100
	monthlyTons := financials.MonthlyHauls * financials.AvgTonsPerHaul
	sc.ReportProgress(45, "analyzing compactor capacity", 2, optimizationSteps)
	if sc.IsCancelled() {
		return cancelledResult(domain.UsageStats{}), nil
	}

	// Step 3: haul-reduction savings.
	optimizedHauls := optimizedHaulCount(monthlyTons, params.TargetTonsPerHaul)
	grossMonthly := (financials.MonthlyHauls - optimizedHauls) * financials.CostPerHaul
	netMonthly := grossMonthly - params.MonitorInstallCost - params.MonitorMonthlyCost

	recommend := financials.AvgTonsPerHaul < fullHaulTons &&
		equipment.MaxDaysBetweenHauls <= maxHaulIntervalDays &&
		grossMonthly >= minMonthlySavings &&
		netMonthly > 0

	sc.ReportProgress(70, "computing haul savings", 3, optimizationSteps)
	if sc.IsCancelled() {
		return cancelledResult(domain.UsageStats{}), nil
	}

	// Step 4: assemble prioritized recommendations.
	var recs []Recommendation
	if recommend {
		payback := params.MonitorInstallCost / netMonthly
		recs = append(recs, Recommendation{
			Title: "Add Compactor Monitors",
			Detail: fmt.Sprintf(
				"Average %.1f tons/haul is below the %.0f-ton full-haul mark; monitors target %.1f tons/haul, cutting %.0f hauls per month.",
				financials.AvgTonsPerHaul, fullHaulTons, params.TargetTonsPerHaul, financials.MonthlyHauls-optimizedHauls),
			MonthlySavings: netMonthly,
			AnnualSavings:  annualSavings(netMonthly),
			PaybackMonths:  &payback,
		})
	}
	if rec := contaminationPlan(financials.ContaminationCharges, monthlyInvoiceTotal(sc.Invoices)); rec != nil {
		recs = append(recs, *rec)
	}
	recs = append(recs, bulkStrategy(financials.BulkCharges))
	prioritize(recs)

	result := &OptimizationResult{
		MaxCapacityTons:        round2(maxCapacity),
		UtilizationPct:         round1(utilization),
		MonthlyTons:            round2(monthlyTons),
		CurrentMonthlyHauls:    financials.MonthlyHauls,
		OptimizedHauls:         optimizedHauls,
		TargetTonsPerHaul:      params.TargetTonsPerHaul,
		Recommend:              recommend,
		MonthlySavings:         round2(netMonthly),
		AnnualSavings:          round2(annualSavings(netMonthly)),
		MonthlyInvoiceBaseline: round2(monthlyInvoiceTotal(sc.Invoices)),
		ServiceGuidance:        serviceGuidance(financials.AvgTonsPerHaul, financials.OveragesPresent),
		Recommendations:        recs,
	}
	if sc.Profile != nil && sc.Profile.Units > 0 {
		benchmark := assessServiceLevel(yardsPerDoorWeekly(
			equipment.ContainerYards, financials.MonthlyHauls, sc.Profile.Units))
		result.ServiceBenchmark = &benchmark
	}
	if !recommend {
		result.MonthlySavings = 0
		result.AnnualSavings = 0
	}
	sc.ReportProgress(100, "assembling recommendations", 4, optimizationSteps)

	s.logger.Info("Compactor optimization computed",
		slog.String("property_id", sc.PropertyID),
		slog.Bool("recommend", recommend),
		slog.Float64("utilization_pct", result.UtilizationPct),
	)

	return &Result{Data: result}, nil
}

func (s *CompactorOptimizationSkill) parseParams(raw json.RawMessage) (OptimizationParams, error) {
	params := OptimizationParams{
		TargetTonsPerHaul:  defaultTargetTons,
		MonitorInstallCost: defaultMonitorInstallCost,
		MonitorMonthlyCost: defaultMonitorMonthlyCost,
	}
	if len(raw) == 0 {
		return params, nil
	}
	if err := json.Unmarshal(raw, &params); err != nil {
		return params, err
	}
	if params.TargetTonsPerHaul <= 0 {
		params.TargetTonsPerHaul = defaultTargetTons
	}
	return params, nil
}

// maxCapacityTons converts compactor volume to its weight ceiling.
func maxCapacityTons(containerYards float64) float64 {
	return containerYards * poundsPerCompactedYard / poundsPerTon
}

// optimizedHaulCount is the fewest monthly hauls that still move the same
// tonnage at the target tons-per-haul.
func optimizedHaulCount(monthlyTons, targetTons float64) float64 {
	if targetTons <= 0 {
		return 0
	}
	return math.Ceil(monthlyTons / targetTons)
}

func annualSavings(monthly float64) float64 {
	return monthly * 12
}

func monthlyInvoiceTotal(invoices []property.InvoiceRow) float64 {
	if len(invoices) == 0 {
		return 0
	}
	months := make(map[string]struct{})
	var total float64
	for _, row := range invoices {
		total += row.Total()
		months[row.Month] = struct{}{}
	}
	return total / float64(len(months))
}

// contaminationPlan recommends intervention when contamination charges
// exceed 3% of monthly spend. Charges above a 5% rate are expected to halve;
// the $150 floor only decides how heavy the intervention is.
func contaminationPlan(charges, monthlySpend float64) *Recommendation {
	if monthlySpend <= 0 {
		return nil
	}
	rate := charges / monthlySpend * 100
	if rate <= 3 {
		return nil
	}

	detail := "Light intervention: signage refresh and resident reminders."
	if rate > 5 && charges > 150 {
		detail = "Full program: signage, resident education, and monthly monitoring; expected 50% charge reduction."
	}

	reduction := 0.25
	if rate > 5 {
		reduction = 0.5
	}

	savings := charges * reduction
	return &Recommendation{
		Title:          "Contamination Reduction",
		Detail:         detail,
		MonthlySavings: savings,
		AnnualSavings:  annualSavings(savings),
	}
}

// bulkStrategy picks between on-demand and subscription bulk pickup.
func bulkStrategy(avgMonthlyBulk float64) Recommendation {
	switch {
	case avgMonthlyBulk > 500:
		savings := avgMonthlyBulk - 400
		return Recommendation{
			Title:          "Switch to Bulk Subscription",
			Detail:         "Average bulk spend exceeds $500/month; a $400/month subscription lowers cost.",
			MonthlySavings: savings,
			AnnualSavings:  annualSavings(savings),
		}
	case avgMonthlyBulk >= 300:
		return Recommendation{
			Title:  "Monitor Bulk Spend",
			Detail: "Borderline spend; watch three months and prepare for a subscription if the trend holds.",
		}
	default:
		return Recommendation{
			Title:  "Keep On-Demand Bulk",
			Detail: "On-demand pricing remains cost-effective.",
		}
	}
}

// yardsPerDoorWeekly is the compacted volume available per unit per week.
func yardsPerDoorWeekly(containerYards, monthlyHauls float64, units int) float64 {
	if units <= 0 {
		return 0
	}
	annualAvailable := containerYards * monthlyHauls * 12
	return annualAvailable / float64(units) / weeksPerYear
}

func assessServiceLevel(ypd float64) ServiceBenchmark {
	benchmark := ServiceBenchmark{YardsPerDoorWeekly: round3(ypd)}
	switch {
	case ypd < minYardsPerDoor:
		benchmark.Status = "under-serviced"
		benchmark.Guidance = "Increase haul frequency or container size."
	case ypd <= optimalYardsPerDoor:
		benchmark.Status = "within range"
		benchmark.Guidance = "Volume per door is at or below the optimal mark."
	case ypd <= maxYardsPerDoor:
		benchmark.Status = "within range"
		benchmark.Guidance = "Slight over-service; consider a minor frequency reduction."
	default:
		benchmark.Status = "over-serviced"
		benchmark.Guidance = "Reduce haul frequency or downsize the container."
	}
	return benchmark
}

// serviceGuidance maps tons-per-haul bands to a service-level action.
func serviceGuidance(avgTonsPerHaul float64, overagesPresent bool) string {
	switch {
	case avgTonsPerHaul >= 8 && overagesPresent:
		return "Add a service day; the compactor is running near capacity."
	case avgTonsPerHaul < 6 && !overagesPresent:
		return "Reduce pickup frequency; the compactor is underutilized."
	default:
		return "Maintain current service."
	}
}

// prioritize ranks recommendations by annual savings, then payback.
func prioritize(recs []Recommendation) {
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].AnnualSavings != recs[j].AnnualSavings {
			return recs[i].AnnualSavings > recs[j].AnnualSavings
		}
		pi, pj := math.Inf(1), math.Inf(1)
		if recs[i].PaybackMonths != nil {
			pi = *recs[i].PaybackMonths
		}
		if recs[j].PaybackMonths != nil {
			pj = *recs[j].PaybackMonths
		}
		return pi < pj
	})
	for i := range recs {
		recs[i].Priority = i + 1
	}
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
