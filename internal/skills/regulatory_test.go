package skills

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thetrashhub/wastewise/internal/property"
	"github.com/thetrashhub/wastewise/internal/search"
)

// fakeSearcher maps query substrings to canned responses or failures.
type fakeSearcher struct {
	responses map[string]*search.Response
	failAll   bool
	failOn    string
	queries   []string
}

func (s *fakeSearcher) Search(_ context.Context, q search.Query) (*search.Response, error) {
	s.queries = append(s.queries, q.Text)
	if s.failAll || (s.failOn != "" && containsTopic(q.Text, s.failOn)) {
		return nil, &search.AllProvidersError{Failures: []search.ProviderFailure{
			{Provider: "tavily", Err: fmt.Errorf("timeout")},
		}}
	}
	if resp, ok := s.responses[q.Text]; ok {
		return resp, nil
	}
	return &search.Response{
		Provider: "tavily",
		Results: []search.Result{
			{Title: "City ordinance", URL: "https://example.gov/ord", Snippet: "recycling required"},
		},
	}, nil
}

func containsTopic(query, topic string) bool {
	return len(query) >= len(topic) && query[len(query)-len(topic):] == topic
}

func regulatoryContext() *Context {
	return &Context{
		JobID:      "job-1",
		PropertyID: "prop-1",
		Profile:    &property.Profile{ID: "prop-1", Location: "Austin, TX"},
	}
}

func TestRegulatoryLookupCollectsTopics(t *testing.T) {
	searcher := &fakeSearcher{}
	skill := NewRegulatoryLookupSkill(searcher, discardLogger())
	sc := regulatoryContext()

	var percents []int
	sc.Progress = func(percent int, _ string, _, _ int) { percents = append(percents, percent) }

	res, err := skill.Execute(context.Background(), sc)
	require.NoError(t, err)

	out, ok := res.Data.(*RegulatoryLookupResult)
	require.True(t, ok)
	assert.Equal(t, "Austin, TX", out.Location)
	require.Len(t, out.Topics, len(defaultRegulatoryTopics))

	for _, topic := range out.Topics {
		assert.Contains(t, topic.Query, "Austin, TX")
		assert.Equal(t, "tavily", topic.Provider)
		require.Len(t, topic.Findings, 1)
		assert.Empty(t, topic.Note)
	}

	assert.Equal(t, len(defaultRegulatoryTopics), res.Usage.ExternalCalls)
	assert.Equal(t, 100, percents[len(percents)-1])
}

func TestRegulatoryLookupCachedHitsAreNotExternalCalls(t *testing.T) {
	searcher := &fakeSearcher{responses: map[string]*search.Response{}}
	for _, topic := range defaultRegulatoryTopics {
		searcher.responses["Austin, TX "+topic] = &search.Response{
			Provider: "tavily",
			Cached:   true,
			Results:  []search.Result{{Title: "cached", URL: "https://example.gov"}},
		}
	}
	skill := NewRegulatoryLookupSkill(searcher, discardLogger())

	res, err := skill.Execute(context.Background(), regulatoryContext())
	require.NoError(t, err)

	out := res.Data.(*RegulatoryLookupResult)
	for _, topic := range out.Topics {
		assert.True(t, topic.Cached)
	}
	assert.Zero(t, res.Usage.ExternalCalls)
}

func TestRegulatoryLookupDegradesPerTopic(t *testing.T) {
	searcher := &fakeSearcher{failOn: defaultRegulatoryTopics[1]}
	skill := NewRegulatoryLookupSkill(searcher, discardLogger())

	res, err := skill.Execute(context.Background(), regulatoryContext())
	require.NoError(t, err)

	out := res.Data.(*RegulatoryLookupResult)
	require.Len(t, out.Topics, len(defaultRegulatoryTopics))

	failedTopic := out.Topics[1]
	assert.Empty(t, failedTopic.Findings)
	assert.NotEmpty(t, failedTopic.Note)

	assert.NotEmpty(t, out.Topics[0].Findings)
	assert.Equal(t, len(defaultRegulatoryTopics)-1, res.Usage.ExternalCalls)
}

func TestRegulatoryLookupFailsWhenAllTopicsFail(t *testing.T) {
	searcher := &fakeSearcher{failAll: true}
	skill := NewRegulatoryLookupSkill(searcher, discardLogger())

	_, err := skill.Execute(context.Background(), regulatoryContext())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 4 regulatory topics failed")

	// The exhausted-cascade error stays in the chain for classification.
	var allFailed *search.AllProvidersError
	assert.ErrorAs(t, err, &allFailed)
}

func TestRegulatoryLookupRequiresLocation(t *testing.T) {
	skill := NewRegulatoryLookupSkill(&fakeSearcher{}, discardLogger())
	sc := regulatoryContext()
	sc.Profile.Location = "  "

	_, err := skill.Execute(context.Background(), sc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no location on file")
}

func TestRegulatoryLookupCustomTopics(t *testing.T) {
	searcher := &fakeSearcher{}
	skill := NewRegulatoryLookupSkill(searcher, discardLogger())
	sc := regulatoryContext()
	sc.Params = []byte(`{"topics": ["compactor permit requirements"], "max_results": 3}`)

	res, err := skill.Execute(context.Background(), sc)
	require.NoError(t, err)

	out := res.Data.(*RegulatoryLookupResult)
	require.Len(t, out.Topics, 1)
	assert.Equal(t, "compactor permit requirements", out.Topics[0].Topic)
	assert.Equal(t, []string{"Austin, TX compactor permit requirements"}, searcher.queries)
}

func TestRegulatoryLookupCancellation(t *testing.T) {
	searcher := &fakeSearcher{}
	skill := NewRegulatoryLookupSkill(searcher, discardLogger())
	sc := regulatoryContext()
	sc.Cancelled = func() bool { return len(searcher.queries) >= 1 }

	res, err := skill.Execute(context.Background(), sc)
	require.NoError(t, err)
	assert.True(t, res.Cancelled)
	assert.Len(t, searcher.queries, 1)
}
