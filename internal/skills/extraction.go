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

const invoiceExtractionSystem = "You extract line items from waste hauler invoices. " +
	"Respond with a JSON object of the form " +
	`{"line_items":[{"month":"MM/YYYY","invoice_number":"","disposal":0,"pickup_fees":0,"rental":0,"contamination":0,"bulk":0,"other":0}]}. ` +
	"Amounts are dollars. Use 0 for charges the invoice does not show. Never invent invoice numbers."

// ExtractedLineItem is one invoice charge row produced by the model.
type ExtractedLineItem struct {
	Month         string  `json:"month"`
	InvoiceNumber string  `json:"invoice_number"`
	Disposal      float64 `json:"disposal"`
	PickupFees    float64 `json:"pickup_fees"`
	Rental        float64 `json:"rental"`
	Contamination float64 `json:"contamination"`
	Bulk          float64 `json:"bulk"`
	Other         float64 `json:"other"`
	SourceDoc     string  `json:"source_doc"`
}

// InvoiceExtractionResult is the invoice_extraction result schema.
type InvoiceExtractionResult struct {
	LineItems          []ExtractedLineItem `json:"line_items"`
	DocumentsProcessed int                 `json:"documents_processed"`
	Model              string              `json:"model,omitempty"`
}

// InvoiceExtractionSkill parses stored invoice documents into structured
// line items with model assistance.
type InvoiceExtractionSkill struct {
	generator ai.Generator
	logger    *slog.Logger
}

// NewInvoiceExtractionSkill creates the skill.
func NewInvoiceExtractionSkill(generator ai.Generator, logger *slog.Logger) *InvoiceExtractionSkill {
	return &InvoiceExtractionSkill{generator: generator, logger: logger}
}

func (s *InvoiceExtractionSkill) Type() domain.JobType {
	return domain.JobTypeInvoiceExtraction
}

func (s *InvoiceExtractionSkill) Requires() Requirements {
	return Requirements{Profile: true, DocumentKinds: []string{property.DocKindInvoice}}
}

// Execute processes each stored invoice document in upload order, reporting
// progress per document and checking cancellation between documents.
func (s *InvoiceExtractionSkill) Execute(ctx context.Context, sc *Context) (*Result, error) {
	docs := sc.Documents[property.DocKindInvoice]
	if len(docs) == 0 {
		return nil, domain.NewSkillError(
			fmt.Sprintf("property %s has no stored invoice documents", sc.PropertyID), nil)
	}

	var usage domain.UsageStats
	result := &InvoiceExtractionResult{}

	for i, doc := range docs {
		if sc.IsCancelled() {
			return cancelledResult(usage), nil
		}

		items, callUsage, err := s.extractDocument(ctx, doc)
		usage.Add(callUsage)
		if err != nil {
			return nil, domain.NewSkillError(
				fmt.Sprintf("failed to extract invoice document %q", doc.Name), err)
		}

		result.LineItems = append(result.LineItems, items...)
		result.DocumentsProcessed++

		percent := (i + 1) * 100 / len(docs)
		sc.ReportProgress(percent, fmt.Sprintf("extracting %s", doc.Name), i+1, len(docs))
	}

	s.logger.Info("Invoice extraction finished",
		slog.String("property_id", sc.PropertyID),
		slog.Int("documents", result.DocumentsProcessed),
		slog.Int("line_items", len(result.LineItems)),
	)

	return &Result{Data: result, Usage: usage}, nil
}

func (s *InvoiceExtractionSkill) extractDocument(ctx context.Context, doc property.Document) ([]ExtractedLineItem, domain.UsageStats, error) {
	resp, err := s.generator.Generate(ctx, ai.Request{
		System:       invoiceExtractionSystem,
		Prompt:       fmt.Sprintf("Invoice document %q:\n\n%s", doc.Name, doc.Content),
		JSONResponse: true,
	})
	if err != nil {
		return nil, domain.UsageStats{}, err
	}

	usage := domain.UsageStats{
		ExternalCalls: 1,
		InputTokens:   resp.InputTokens,
		OutputTokens:  resp.OutputTokens,
		CostEstimate:  resp.CostEstimate,
	}

	var decoded struct {
		LineItems []ExtractedLineItem `json:"line_items"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(resp.Content)), &decoded); err != nil {
		return nil, usage, fmt.Errorf("model returned malformed line items: %w", err)
	}

	for i := range decoded.LineItems {
		decoded.LineItems[i].SourceDoc = doc.Name
	}
	return decoded.LineItems, usage, nil
}
