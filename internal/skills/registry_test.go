package skills

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thetrashhub/wastewise/internal/jobs/domain"
)

// stubSkill satisfies Skill with a fixed type.
type stubSkill struct {
	jobType domain.JobType
}

func (s stubSkill) Type() domain.JobType   { return s.jobType }
func (s stubSkill) Requires() Requirements { return Requirements{} }
func (s stubSkill) Execute(context.Context, *Context) (*Result, error) {
	return &Result{}, nil
}

func TestRegistryResolve(t *testing.T) {
	reg, err := NewRegistry(stubSkill{jobType: domain.JobTypeCompactorOptimization})
	require.NoError(t, err)

	skill, err := reg.Resolve(domain.JobTypeCompactorOptimization)
	require.NoError(t, err)
	assert.Equal(t, domain.JobTypeCompactorOptimization, skill.Type())

	_, err = reg.Resolve(domain.JobType("sentiment_analysis"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnknownJobType))
}

func TestRegistryRejectsUnknownType(t *testing.T) {
	_, err := NewRegistry(stubSkill{jobType: "sentiment_analysis"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown job type")
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	_, err := NewRegistry(
		stubSkill{jobType: domain.JobTypeRegulatoryLookup},
		stubSkill{jobType: domain.JobTypeRegulatoryLookup},
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestRegistryCheckComplete(t *testing.T) {
	partial, err := NewRegistry(stubSkill{jobType: domain.JobTypeInvoiceExtraction})
	require.NoError(t, err)
	assert.Error(t, partial.CheckComplete())

	var all []Skill
	for _, jobType := range domain.KnownJobTypes {
		all = append(all, stubSkill{jobType: jobType})
	}
	full, err := NewRegistry(all...)
	require.NoError(t, err)
	assert.NoError(t, full.CheckComplete())
}
