package skills

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/thetrashhub/wastewise/internal/ai"
	"github.com/thetrashhub/wastewise/internal/jobs/domain"
	"github.com/thetrashhub/wastewise/internal/property"
)

const contractExtractionSystem = "You extract commercial terms from waste hauler service agreements. " +
	"Respond with a JSON object of the form " +
	`{"hauler_name":"","effective_date":"","expiration_date":"","term_months":0,"auto_renews":false,` +
	`"renewal_notice_days":0,"base_monthly_rate":0,"rate_escalator_pct":0,"fuel_surcharge_pct":0,` +
	`"early_termination_fee":0,"service_frequency":"","notable_clauses":[]}. ` +
	"Dates are YYYY-MM-DD. Use empty strings and 0 for terms the contract does not state."

// ContractTerms is the structured form of a hauler service agreement.
type ContractTerms struct {
	HaulerName          string   `json:"hauler_name"`
	EffectiveDate       string   `json:"effective_date"`
	ExpirationDate      string   `json:"expiration_date"`
	TermMonths          int      `json:"term_months"`
	AutoRenews          bool     `json:"auto_renews"`
	RenewalNoticeDays   int      `json:"renewal_notice_days"`
	BaseMonthlyRate     float64  `json:"base_monthly_rate"`
	RateEscalatorPct    float64  `json:"rate_escalator_pct"`
	FuelSurchargePct    float64  `json:"fuel_surcharge_pct"`
	EarlyTerminationFee float64  `json:"early_termination_fee"`
	ServiceFrequency    string   `json:"service_frequency"`
	NotableClauses      []string `json:"notable_clauses"`
	SourceDoc           string   `json:"source_doc"`
}

// ContractExtractionResult is the contract_extraction result schema.
type ContractExtractionResult struct {
	Contracts          []ContractTerms `json:"contracts"`
	DocumentsProcessed int             `json:"documents_processed"`
}

// ContractExtractionSkill pulls commercial terms out of stored service
// agreements with model assistance.
type ContractExtractionSkill struct {
	generator ai.Generator
	logger    *slog.Logger
}

// NewContractExtractionSkill creates the skill.
func NewContractExtractionSkill(generator ai.Generator, logger *slog.Logger) *ContractExtractionSkill {
	return &ContractExtractionSkill{generator: generator, logger: logger}
}

func (s *ContractExtractionSkill) Type() domain.JobType {
	return domain.JobTypeContractExtraction
}

func (s *ContractExtractionSkill) Requires() Requirements {
	return Requirements{Profile: true, DocumentKinds: []string{property.DocKindContract}}
}

func (s *ContractExtractionSkill) Execute(ctx context.Context, sc *Context) (*Result, error) {
	docs := sc.Documents[property.DocKindContract]
	if len(docs) == 0 {
		return nil, domain.NewSkillError(
			fmt.Sprintf("property %s has no stored contract documents", sc.PropertyID), nil)
	}

	var usage domain.UsageStats
	result := &ContractExtractionResult{}

	for i, doc := range docs {
		if sc.IsCancelled() {
			return cancelledResult(usage), nil
		}

		terms, callUsage, err := s.extractContract(ctx, doc)
		usage.Add(callUsage)
		if err != nil {
			return nil, domain.NewSkillError(
				fmt.Sprintf("failed to extract contract document %q", doc.Name), err)
		}

		result.Contracts = append(result.Contracts, terms)
		result.DocumentsProcessed++

		percent := (i + 1) * 100 / len(docs)
		sc.ReportProgress(percent, fmt.Sprintf("reviewing %s", doc.Name), i+1, len(docs))
	}

	s.logger.Info("Contract extraction finished",
		slog.String("property_id", sc.PropertyID),
		slog.Int("documents", result.DocumentsProcessed),
	)

	return &Result{Data: result, Usage: usage}, nil
}

func (s *ContractExtractionSkill) extractContract(ctx context.Context, doc property.Document) (ContractTerms, domain.UsageStats, error) {
	resp, err := s.generator.Generate(ctx, ai.Request{
		System:       contractExtractionSystem,
		Prompt:       fmt.Sprintf("Service agreement %q:\n\n%s", doc.Name, doc.Content),
		JSONResponse: true,
	})
	if err != nil {
		return ContractTerms{}, domain.UsageStats{}, err
	}

	usage := domain.UsageStats{
		ExternalCalls: 1,
		InputTokens:   resp.InputTokens,
		OutputTokens:  resp.OutputTokens,
		CostEstimate:  resp.CostEstimate,
	}

	var terms ContractTerms
	if err := json.Unmarshal([]byte(strings.TrimSpace(resp.Content)), &terms); err != nil {
		return ContractTerms{}, usage, fmt.Errorf("model returned malformed contract terms: %w", err)
	}
	terms.SourceDoc = doc.Name
	return terms, usage, nil
}
