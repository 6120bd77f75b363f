package skills

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/thetrashhub/wastewise/internal/jobs/domain"
	"github.com/thetrashhub/wastewise/internal/search"
)

// Searcher is the slice of the search manager this skill needs.
type Searcher interface {
	Search(ctx context.Context, query search.Query) (*search.Response, error)
}

var defaultRegulatoryTopics = []string{
	"commercial waste recycling requirements",
	"organics diversion mandate",
	"waste hauler franchise rules",
	"contamination fine schedule",
}

// RegulatoryFinding is one search hit kept for a topic.
type RegulatoryFinding struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// RegulatoryTopic is the lookup outcome for a single topic. A topic whose
// providers all failed keeps empty findings and a note instead of failing
// the job.
type RegulatoryTopic struct {
	Topic    string              `json:"topic"`
	Query    string              `json:"query"`
	Provider string              `json:"provider,omitempty"`
	Cached   bool                `json:"cached"`
	Findings []RegulatoryFinding `json:"findings"`
	Note     string              `json:"note,omitempty"`
}

// RegulatoryLookupResult is the regulatory_lookup result schema.
type RegulatoryLookupResult struct {
	Location string            `json:"location"`
	Topics   []RegulatoryTopic `json:"topics"`
}

// regulatoryParams is the optional job payload.
type regulatoryParams struct {
	Topics     []string `json:"topics"`
	MaxResults int      `json:"max_results"`
}

// RegulatoryLookupSkill surveys local waste regulations through the search
// manager, one query per topic.
type RegulatoryLookupSkill struct {
	searcher Searcher
	logger   *slog.Logger
}

// NewRegulatoryLookupSkill creates the skill.
func NewRegulatoryLookupSkill(searcher Searcher, logger *slog.Logger) *RegulatoryLookupSkill {
	return &RegulatoryLookupSkill{searcher: searcher, logger: logger}
}

func (s *RegulatoryLookupSkill) Type() domain.JobType {
	return domain.JobTypeRegulatoryLookup
}

func (s *RegulatoryLookupSkill) Requires() Requirements {
	return Requirements{Profile: true}
}

func (s *RegulatoryLookupSkill) Execute(ctx context.Context, sc *Context) (*Result, error) {
	if sc.Profile == nil || strings.TrimSpace(sc.Profile.Location) == "" {
		return nil, domain.NewSkillError(
			fmt.Sprintf("property %s has no location on file", sc.PropertyID), nil)
	}

	params := regulatoryParams{MaxResults: 5}
	if len(sc.Params) > 0 {
		if err := decodeParams(sc.Params, &params); err != nil {
			return nil, domain.NewSkillError("invalid regulatory_lookup parameters", err)
		}
	}
	topics := params.Topics
	if len(topics) == 0 {
		topics = defaultRegulatoryTopics
	}
	if params.MaxResults <= 0 {
		params.MaxResults = 5
	}

	var usage domain.UsageStats
	result := &RegulatoryLookupResult{Location: sc.Profile.Location}
	failed := 0
	var lastErr error

	for i, topic := range topics {
		if sc.IsCancelled() {
			return cancelledResult(usage), nil
		}

		entry := RegulatoryTopic{
			Topic: topic,
			Query: fmt.Sprintf("%s %s", sc.Profile.Location, topic),
		}

		resp, err := s.searcher.Search(ctx, search.Query{
			Text:       entry.Query,
			MaxResults: params.MaxResults,
		})
		if err != nil {
			failed++
			lastErr = err
			entry.Note = "lookup unavailable; no provider returned results"
			s.logger.Warn("Regulatory topic lookup failed",
				slog.String("topic", topic),
				slog.Any("error", err),
			)
		} else {
			entry.Provider = resp.Provider
			entry.Cached = resp.Cached
			if !resp.Cached {
				usage.ExternalCalls++
			}
			for _, r := range resp.Results {
				entry.Findings = append(entry.Findings, RegulatoryFinding{
					Title:   r.Title,
					URL:     r.URL,
					Snippet: r.Snippet,
				})
			}
		}

		result.Topics = append(result.Topics, entry)

		percent := (i + 1) * 100 / len(topics)
		sc.ReportProgress(percent, fmt.Sprintf("researching %s", topic), i+1, len(topics))
	}

	if failed == len(topics) {
		// lastErr keeps the search failure in the chain so the worker can
		// classify an exhausted provider cascade.
		return nil, domain.NewSkillError(
			fmt.Sprintf("all %d regulatory topics failed for %q", len(topics), sc.Profile.Location), lastErr)
	}

	return &Result{Data: result, Usage: usage}, nil
}
