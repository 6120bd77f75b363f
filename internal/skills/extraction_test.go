package skills

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thetrashhub/wastewise/internal/ai"
	"github.com/thetrashhub/wastewise/internal/jobs/domain"
	"github.com/thetrashhub/wastewise/internal/property"
)

// fakeGenerator replays canned completions in call order.
type fakeGenerator struct {
	responses []ai.Response
	err       error
	calls     int
	prompts   []string
}

func (g *fakeGenerator) Generate(_ context.Context, req ai.Request) (*ai.Response, error) {
	g.prompts = append(g.prompts, req.Prompt)
	if g.err != nil {
		return nil, g.err
	}
	resp := g.responses[g.calls%len(g.responses)]
	g.calls++
	return &resp, nil
}

func invoiceDoc(name, content string) property.Document {
	return property.Document{
		ID:         name,
		PropertyID: "prop-1",
		Kind:       property.DocKindInvoice,
		Name:       name,
		Content:    content,
		UploadedAt: time.Now(),
	}
}

func TestInvoiceExtractionParsesLineItems(t *testing.T) {
	gen := &fakeGenerator{responses: []ai.Response{{
		Content: `{"line_items":[
			{"month":"01/2026","invoice_number":"INV-100","disposal":3000,"pickup_fees":800},
			{"month":"02/2026","invoice_number":"INV-101","disposal":3100,"pickup_fees":800}
		]}`,
		Model:        "gpt-4o-mini",
		InputTokens:  500,
		OutputTokens: 120,
		CostEstimate: 0.01,
	}}}
	skill := NewInvoiceExtractionSkill(gen, discardLogger())

	var steps []string
	sc := &Context{
		JobID:      "job-1",
		PropertyID: "prop-1",
		Documents: map[string][]property.Document{
			property.DocKindInvoice: {invoiceDoc("jan.pdf", "january invoice text")},
		},
		Progress: func(_ int, step string, _, _ int) { steps = append(steps, step) },
	}

	res, err := skill.Execute(context.Background(), sc)
	require.NoError(t, err)

	out, ok := res.Data.(*InvoiceExtractionResult)
	require.True(t, ok)
	require.Len(t, out.LineItems, 2)
	assert.Equal(t, "INV-100", out.LineItems[0].InvoiceNumber)
	assert.Equal(t, "jan.pdf", out.LineItems[0].SourceDoc)
	assert.Equal(t, 1, out.DocumentsProcessed)

	assert.Equal(t, 1, res.Usage.ExternalCalls)
	assert.Equal(t, 500, res.Usage.InputTokens)
	assert.Equal(t, 120, res.Usage.OutputTokens)
	assert.Equal(t, []string{"extracting jan.pdf"}, steps)

	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "january invoice text")
}

func TestInvoiceExtractionAggregatesUsageAcrossDocuments(t *testing.T) {
	gen := &fakeGenerator{responses: []ai.Response{{
		Content:      `{"line_items":[{"month":"01/2026","disposal":100}]}`,
		InputTokens:  200,
		OutputTokens: 50,
		CostEstimate: 0.002,
	}}}
	skill := NewInvoiceExtractionSkill(gen, discardLogger())

	var percents []int
	sc := &Context{
		PropertyID: "prop-1",
		Documents: map[string][]property.Document{
			property.DocKindInvoice: {
				invoiceDoc("jan.pdf", "jan"),
				invoiceDoc("feb.pdf", "feb"),
				invoiceDoc("mar.pdf", "mar"),
			},
		},
		Progress: func(percent int, _ string, _, _ int) { percents = append(percents, percent) },
	}

	res, err := skill.Execute(context.Background(), sc)
	require.NoError(t, err)

	out := res.Data.(*InvoiceExtractionResult)
	assert.Equal(t, 3, out.DocumentsProcessed)
	assert.Len(t, out.LineItems, 3)

	assert.Equal(t, 3, res.Usage.ExternalCalls)
	assert.Equal(t, 600, res.Usage.InputTokens)
	assert.InDelta(t, 0.006, res.Usage.CostEstimate, 1e-9)
	assert.Equal(t, []int{33, 66, 100}, percents)
}

func TestInvoiceExtractionRequiresDocuments(t *testing.T) {
	skill := NewInvoiceExtractionSkill(&fakeGenerator{}, discardLogger())
	sc := &Context{PropertyID: "prop-1", Documents: map[string][]property.Document{}}

	_, err := skill.Execute(context.Background(), sc)
	require.Error(t, err)

	var skillErr *domain.SkillError
	require.True(t, errors.As(err, &skillErr))
	assert.Contains(t, err.Error(), "no stored invoice documents")
}

func TestInvoiceExtractionWrapsGeneratorFailure(t *testing.T) {
	genErr := fmt.Errorf("model unavailable")
	skill := NewInvoiceExtractionSkill(&fakeGenerator{err: genErr}, discardLogger())
	sc := &Context{
		PropertyID: "prop-1",
		Documents: map[string][]property.Document{
			property.DocKindInvoice: {invoiceDoc("jan.pdf", "jan")},
		},
	}

	_, err := skill.Execute(context.Background(), sc)
	require.Error(t, err)
	assert.ErrorIs(t, err, genErr)
	assert.Contains(t, err.Error(), `"jan.pdf"`)
}

func TestInvoiceExtractionRejectsMalformedModelOutput(t *testing.T) {
	gen := &fakeGenerator{responses: []ai.Response{{Content: "not json"}}}
	skill := NewInvoiceExtractionSkill(gen, discardLogger())
	sc := &Context{
		PropertyID: "prop-1",
		Documents: map[string][]property.Document{
			property.DocKindInvoice: {invoiceDoc("jan.pdf", "jan")},
		},
	}

	_, err := skill.Execute(context.Background(), sc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed line items")
}

func TestInvoiceExtractionCancelsBetweenDocuments(t *testing.T) {
	gen := &fakeGenerator{responses: []ai.Response{{
		Content:      `{"line_items":[]}`,
		InputTokens:  100,
		OutputTokens: 10,
	}}}
	skill := NewInvoiceExtractionSkill(gen, discardLogger())

	sc := &Context{
		PropertyID: "prop-1",
		Documents: map[string][]property.Document{
			property.DocKindInvoice: {invoiceDoc("jan.pdf", "jan"), invoiceDoc("feb.pdf", "feb")},
		},
	}
	sc.Cancelled = func() bool { return gen.calls >= 1 }

	res, err := skill.Execute(context.Background(), sc)
	require.NoError(t, err)
	assert.True(t, res.Cancelled)
	assert.Equal(t, 1, gen.calls)
	// Usage from the completed call is still reported.
	assert.Equal(t, 1, res.Usage.ExternalCalls)
}
