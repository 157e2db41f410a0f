package recommend

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toolscout-ai/toolscout/internal/index"
	"github.com/toolscout-ai/toolscout/pkg/types"
)

type fakeSearcher struct {
	hits []index.ScoredServer
	err  error
}

func (s *fakeSearcher) Search(ctx context.Context, query string, k int) ([]index.ScoredServer, error) {
	if s.err != nil {
		return nil, s.err
	}
	if len(s.hits) > k {
		return s.hits[:k], nil
	}
	return s.hits, nil
}

type fakeCatalog struct {
	servers []types.ServerDescriptor
	calls   int
}

func (c *fakeCatalog) Servers(ctx context.Context, useCache bool) types.CatalogSnapshot {
	c.calls++
	return types.CatalogSnapshot{Servers: c.servers}
}

type fakeRanker struct {
	answer  string
	err     error
	prompts []string
}

func (r *fakeRanker) Run(ctx context.Context, prompt string) (string, error) {
	r.prompts = append(r.prompts, prompt)
	return r.answer, r.err
}

type fakeSession struct {
	connected   map[string]bool
	recommended map[string]bool
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		connected:   make(map[string]bool),
		recommended: make(map[string]bool),
	}
}

func (s *fakeSession) Connected(name string) bool      { return s.connected[name] }
func (s *fakeSession) WasRecommended(name string) bool { return s.recommended[name] }
func (s *fakeSession) MarkRecommended(names ...string) {
	for _, n := range names {
		s.recommended[n] = true
	}
}

func hits(names ...string) []index.ScoredServer {
	out := make([]index.ScoredServer, len(names))
	for i, n := range names {
		out[i] = index.ScoredServer{
			ServerDescriptor: types.ServerDescriptor{Name: n, Description: n + " server"},
			Similarity:       1 - float64(i)*0.1,
		}
	}
	return out
}

func names(servers []types.ServerDescriptor) []string {
	out := make([]string, len(servers))
	for i, s := range servers {
		out[i] = s.Name
	}
	return out
}

func TestEngine_RankedSelection(t *testing.T) {
	searcher := &fakeSearcher{hits: hits("fetch", "time", "github", "slack")}
	ranker := &fakeRanker{answer: "Time, GITHUB"}
	e := NewEngine(searcher, &fakeCatalog{}, ranker)
	sess := newFakeSession()

	out := e.Recommend(context.Background(), sess, "check my repo issues at 9am Tokyo time")

	// Names match case-insensitively; candidate order is preserved.
	assert.Equal(t, []string{"time", "github"}, names(out))
	assert.True(t, sess.recommended["time"])
	assert.True(t, sess.recommended["github"])
	assert.False(t, sess.recommended["fetch"])

	// The prompt carries the candidate list and the query.
	require.Len(t, ranker.prompts, 1)
	assert.Contains(t, ranker.prompts[0], "- fetch: fetch server")
	assert.Contains(t, ranker.prompts[0], "Tokyo")
}

func TestEngine_NoneFallsBackToTopCandidates(t *testing.T) {
	e := NewEngine(&fakeSearcher{hits: hits("a", "b", "c", "d")}, &fakeCatalog{}, &fakeRanker{answer: "none"})
	out := e.Recommend(context.Background(), newFakeSession(), "anything")
	assert.Equal(t, []string{"a", "b", "c"}, names(out))
}

func TestEngine_RankerErrorFallsBack(t *testing.T) {
	e := NewEngine(&fakeSearcher{hits: hits("a", "b")}, &fakeCatalog{}, &fakeRanker{err: errors.New("model down")})
	out := e.Recommend(context.Background(), newFakeSession(), "anything")
	assert.Equal(t, []string{"a", "b"}, names(out))
}

func TestEngine_UnmatchedAnswerFallsBack(t *testing.T) {
	e := NewEngine(&fakeSearcher{hits: hits("a", "b", "c", "d")}, &fakeCatalog{}, &fakeRanker{answer: "imaginary-server"})
	out := e.Recommend(context.Background(), newFakeSession(), "anything")
	assert.Equal(t, []string{"a", "b", "c"}, names(out))
}

func TestEngine_SearchErrorUsesCatalog(t *testing.T) {
	catalog := &fakeCatalog{servers: []types.ServerDescriptor{
		{Name: "fetch"}, {Name: "time"},
	}}
	e := NewEngine(&fakeSearcher{err: errors.New("index gone")}, catalog, &fakeRanker{answer: "time"})

	out := e.Recommend(context.Background(), newFakeSession(), "what time is it")

	assert.Equal(t, []string{"time"}, names(out))
	assert.Equal(t, 1, catalog.calls)
}

func TestEngine_NoCandidates(t *testing.T) {
	ranker := &fakeRanker{answer: "whatever"}
	e := NewEngine(&fakeSearcher{}, &fakeCatalog{}, ranker)

	out := e.Recommend(context.Background(), newFakeSession(), "anything")

	assert.Empty(t, out)
	assert.Empty(t, ranker.prompts)
}

func TestEngine_SessionDeduplication(t *testing.T) {
	searcher := &fakeSearcher{hits: hits("time", "fetch", "github")}
	e := NewEngine(searcher, &fakeCatalog{}, &fakeRanker{answer: "time,fetch,github"})
	sess := newFakeSession()
	sess.recommended["time"] = true
	sess.connected["fetch"] = true

	out := e.Recommend(context.Background(), sess, "anything")

	assert.Equal(t, []string{"github"}, names(out))
}

func TestEngine_RepeatQueryYieldsNothingNew(t *testing.T) {
	searcher := &fakeSearcher{hits: hits("time")}
	e := NewEngine(searcher, &fakeCatalog{}, &fakeRanker{answer: "time"})
	sess := newFakeSession()

	first := e.Recommend(context.Background(), sess, "what time is it")
	second := e.Recommend(context.Background(), sess, "what time is it")

	assert.Equal(t, []string{"time"}, names(first))
	assert.Empty(t, second)
}

func TestEngine_BoundedBatch(t *testing.T) {
	searcher := &fakeSearcher{hits: hits("a", "b", "c", "d", "e")}
	e := NewEngine(searcher, &fakeCatalog{}, &fakeRanker{answer: "a,b,c,d,e"})

	out := e.Recommend(context.Background(), newFakeSession(), "anything")
	assert.Len(t, out, MaxRecommendations)
}
