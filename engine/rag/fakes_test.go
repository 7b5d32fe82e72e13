package rag

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/WessleyAI/sector-rag/engine/domain"
	"github.com/WessleyAI/sector-rag/engine/llm"
)

// --- mocks ---

type callKind string

const (
	callExpand       callKind = "expand"
	callStructured   callKind = "structured"
	callPlain        callKind = "plain"
	callFallback     callKind = "fallback"
	callFaithfulness callKind = "faithfulness"
	callRelevancy    callKind = "relevancy"
)

// classify tells the call sites of the pipeline apart by prompt and schema.
func classify(req llm.GenerateRequest) callKind {
	switch {
	case req.Schema != nil && req.Schema.Name == judgeSchema.Name && strings.Contains(req.Prompt, "Rate how faithful"):
		return callFaithfulness
	case req.Schema != nil && req.Schema.Name == judgeSchema.Name:
		return callRelevancy
	case req.Schema != nil:
		return callStructured
	case strings.HasPrefix(req.Prompt, "Rewrite the following search query"):
		return callExpand
	case strings.Contains(req.Prompt, "no documentation was found"):
		return callFallback
	default:
		return callPlain
	}
}

type replyFunc func(llm.GenerateRequest) (llm.Generation, error)

func text(s string) replyFunc {
	return func(llm.GenerateRequest) (llm.Generation, error) {
		return llm.Generation{Text: s, Model: "test-model"}, nil
	}
}

func structured(raw string) replyFunc {
	return func(llm.GenerateRequest) (llm.Generation, error) {
		return llm.Generation{Structured: json.RawMessage(raw), Model: "test-model"}, nil
	}
}

func fail(err error) replyFunc {
	return func(llm.GenerateRequest) (llm.Generation, error) {
		return llm.Generation{}, err
	}
}

var errBoom = errors.New("boom")

// fakeGenerator answers each call site with a scripted reply and records the
// requests it saw. It is safe for concurrent use.
type fakeGenerator struct {
	mu      sync.Mutex
	replies map[callKind]replyFunc
	reqs    map[callKind][]llm.GenerateRequest
}

func newFakeGenerator(replies map[callKind]replyFunc) *fakeGenerator {
	return &fakeGenerator{replies: replies, reqs: make(map[callKind][]llm.GenerateRequest)}
}

func (g *fakeGenerator) Generate(_ context.Context, req llm.GenerateRequest) (llm.Generation, error) {
	kind := classify(req)
	g.mu.Lock()
	g.reqs[kind] = append(g.reqs[kind], req)
	reply, ok := g.replies[kind]
	g.mu.Unlock()
	if !ok {
		return llm.Generation{}, fmt.Errorf("unexpected %s call", kind)
	}
	return reply(req)
}

func (g *fakeGenerator) calls(kind callKind) []llm.GenerateRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]llm.GenerateRequest(nil), g.reqs[kind]...)
}

func (g *fakeGenerator) total() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, r := range g.reqs {
		n += len(r)
	}
	return n
}

// vectorFor is the deterministic embedding used by fakeEmbedder.
func vectorFor(text string) []float32 {
	return []float32{float32(len(text)), float32(len(strings.Fields(text)))}
}

type fakeEmbedder struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (e *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.texts = append(e.texts, text)
	if e.err != nil {
		return nil, e.err
	}
	return vectorFor(text), nil
}

func (e *fakeEmbedder) embedded() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.texts...)
}

type searchCall struct {
	vector    []float32
	namespace string
	limit     int
	minScore  float64
}

type fakeSearcher struct {
	mu        sync.Mutex
	fragments []domain.Fragment
	err       error
	searches  []searchCall
}

func (s *fakeSearcher) Search(_ context.Context, vector []float32, namespace string, limit int, minScore float64) ([]domain.Fragment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searches = append(s.searches, searchCall{vector, namespace, limit, minScore})
	if s.err != nil {
		return nil, s.err
	}
	return s.fragments, nil
}

func (s *fakeSearcher) calls() []searchCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]searchCall(nil), s.searches...)
}

type fakeSectors struct {
	names map[string]string
	err   error
}

func (f *fakeSectors) SectorName(_ context.Context, id string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.names[id], nil
}

// --- fixtures ---

const (
	validAnswerJSON = `{"summary":"Employees get 22 vacation days per year.",` +
		`"sections":[{"title":"Allowance","content":"Full-time staff accrue 22 days.","type":"info"},` +
		`{"title":"Requesting","content":"Submit a request two weeks ahead.","type":"steps"}],` +
		`"key_points":["22 days","two weeks notice"]}`
	passVerdict = `{"score":0.9,"status":"PASS","reasoning":"Every claim is supported."}`
	failVerdict = `{"score":0.3,"status":"FAIL","reasoning":"Off topic."}`
)

var testFragments = []domain.Fragment{
	{ID: "f1", Content: "Full-time staff accrue 22 vacation days per year.", Similarity: 0.91, SourceID: "handbook"},
	{ID: "f2", Content: "Vacation requests must be submitted two weeks ahead.", Similarity: 0.78, SourceID: "handbook"},
}

// happyReplies scripts every call site to succeed.
func happyReplies() map[callKind]replyFunc {
	return map[callKind]replyFunc{
		callExpand:       text("vacation days policy annual leave paid time off allowance"),
		callStructured:   structured(validAnswerJSON),
		callPlain:        text("Employees get 22 vacation days."),
		callFallback:     text("Sorry, I have no information about that."),
		callFaithfulness: structured(passVerdict),
		callRelevancy:    structured(passVerdict),
	}
}

type fixture struct {
	svc      *Service
	gen      *fakeGenerator
	embedder *fakeEmbedder
	searcher *fakeSearcher
}

func newFixture(replies map[callKind]replyFunc, fragments []domain.Fragment) *fixture {
	f := &fixture{
		gen:      newFakeGenerator(replies),
		embedder: &fakeEmbedder{},
		searcher: &fakeSearcher{fragments: fragments},
	}
	opts := DefaultOptions()
	opts.Model = "default-model"
	f.svc = New(Deps{Embedder: f.embedder, Searcher: f.searcher, Generator: f.gen}, opts, nil)
	return f
}

func intPtr(v int) *int { return &v }
func floatPtr(v float64) *float64 { return &v }
