package skills

import (
	"fmt"

	"github.com/thetrashhub/wastewise/internal/jobs/domain"
)

// Registry maps the closed set of job types to skill implementations. It is
// populated once at start-up; adding a job type is a registration, not a
// change to the pipeline.
type Registry struct {
	skills map[domain.JobType]Skill
}

// NewRegistry creates a registry from the given skills.
func NewRegistry(list ...Skill) (*Registry, error) {
	r := &Registry{skills: make(map[domain.JobType]Skill, len(list))}
	for _, skill := range list {
		if err := r.register(skill); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) register(skill Skill) error {
	jobType := skill.Type()
	if !jobType.IsKnown() {
		return fmt.Errorf("cannot register skill for unknown job type %q", jobType)
	}
	if _, exists := r.skills[jobType]; exists {
		return fmt.Errorf("skill for job type %q already registered", jobType)
	}
	r.skills[jobType] = skill
	return nil
}

// Resolve returns the skill for a job type, or domain.ErrUnknownJobType.
func (r *Registry) Resolve(jobType domain.JobType) (Skill, error) {
	skill, ok := r.skills[jobType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownJobType, jobType)
	}
	return skill, nil
}

// CheckComplete verifies every known job type has a registered skill.
// Called at start-up so a missing registration fails fast.
func (r *Registry) CheckComplete() error {
	for _, jobType := range domain.KnownJobTypes {
		if _, ok := r.skills[jobType]; !ok {
			return fmt.Errorf("no skill registered for job type %q", jobType)
		}
	}
	return nil
}
