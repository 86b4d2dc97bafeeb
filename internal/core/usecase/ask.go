package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/roofwise/compliance-assistant/internal/core/domain"
	"github.com/roofwise/compliance-assistant/internal/core/ports"
	"github.com/roofwise/compliance-assistant/internal/rules"
)

var errEmptyQuestion = errors.New("question is required")

// AskConfig bounds the retrieval pipeline. Zero values fall back to the
// defaults below.
type AskConfig struct {
	TopK              int
	FastLimit         int
	CandidateLimit    int
	MaxCitations      int
	SearchTimeout     time.Duration
	GroundingPassages int
	GroundingChars    int
}

func (c AskConfig) normalize() AskConfig {
	if c.TopK <= 0 {
		c.TopK = 5
	}
	if c.FastLimit <= 0 {
		c.FastLimit = 12
	}
	if c.CandidateLimit <= 0 {
		c.CandidateLimit = 20
	}
	if c.MaxCitations <= 0 {
		c.MaxCitations = defaultMaxCitations
	}
	if c.SearchTimeout <= 0 {
		c.SearchTimeout = 6 * time.Second
	}
	if c.GroundingPassages <= 0 {
		c.GroundingPassages = 6
	}
	if c.GroundingChars <= 0 {
		c.GroundingChars = 800
	}
	return c
}

// AskUseCase wires the full question-answering pipeline: gate check,
// mode routing, hybrid retrieval, score fusion, priority rescue, citation
// projection and answer generation.
type AskUseCase struct {
	rules     *rules.Ruleset
	lexicon   *LexiconDetector
	boost     *BoostPolicy
	rescuer   *PriorityRescuer
	citations *CitationBuilder
	gate      *Gatekeeper

	passages  ports.PassageStore
	vectors   ports.VectorStore
	embedder  ports.Embedder
	generator ports.AnswerGenerator

	cfg    AskConfig
	logger *slog.Logger
}

func NewAskUseCase(
	rs *rules.Ruleset,
	passages ports.PassageStore,
	vectors ports.VectorStore,
	embedder ports.Embedder,
	generator ports.AnswerGenerator,
	sessions ports.SessionStore,
	cfg AskConfig,
	logger *slog.Logger,
) *AskUseCase {
	cfg = cfg.normalize()
	boost := NewBoostPolicy(rs)
	return &AskUseCase{
		rules:     rs,
		lexicon:   NewLexiconDetector(rs),
		boost:     boost,
		rescuer:   NewPriorityRescuer(vectors, boost, rs, logger),
		citations: NewCitationBuilder(rs, cfg.MaxCitations),
		gate:      NewGatekeeper(rs, sessions, logger),
		passages:  passages,
		vectors:   vectors,
		embedder:  embedder,
		generator: generator,
		cfg:       cfg,
		logger:    logger,
	}
}

// Ask answers one conversational turn. Every retrieval sub-step degrades
// to an empty contribution on failure; only answer generation may surface
// an error to the caller.
func (uc *AskUseCase) Ask(ctx context.Context, question, sessionID string) (*domain.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ask", errEmptyQuestion)
	}
	if strings.TrimSpace(sessionID) == "" {
		sessionID = uuid.NewString()
	}

	intent, confidence := ClassifyIntent(question)

	outcome := uc.gate.Evaluate(ctx, sessionID, question)
	if outcome.Prompt != "" {
		return &domain.Answer{
			Answer:           outcome.Prompt,
			Intent:           intent,
			Citations:        []domain.Citation{},
			CanShowCitations: false,
			SessionID:        sessionID,
			Model:            string(domain.ModeGate),
			Stats:            domain.RetrievalStats{Mode: domain.ModeGate},
		}, nil
	}

	query := question
	if outcome.ResolvedQuery != "" {
		query = outcome.ResolvedQuery
		// A follow-up turn like "8 degrees" says nothing about intent;
		// classify the synthesized query the pipeline actually answers.
		intent, confidence = ClassifyIntent(query)
	}

	mode := SelectMode(query, intent)
	boosts, flags := uc.boost.Evaluate(query)
	lex := uc.lexicon.Detect(query)
	qc := domain.QueryContext{
		Intent:     intent,
		Confidence: confidence,
		Boosts:     boosts,
		Flags:      flags,
	}

	// The lexicon result seeds search scoping: the fast path narrows to
	// the matched collections, the strict path searches everything and
	// relies on the rescue pass for priority representation.
	var allow []string
	if mode == domain.ModeFast && lex.HasHits {
		allow = uc.lexicon.MatchedSources(lex)
	}

	lexResults, semResults, queryVector := uc.retrieve(ctx, query, allow)

	merged := mergeResults(lexResults, semResults)
	uc.boost.ApplyAll(merged, boosts)

	topK := uc.cfg.TopK
	if mode == domain.ModeFast {
		topK = uc.cfg.FastLimit
	}
	merged, rescued := uc.rescuer.Rescue(ctx, queryVector, merged, lex, boosts, topK)
	if len(merged) > topK {
		merged = merged[:topK]
	}

	uc.logger.Debug("retrieval_complete",
		"mode", string(mode),
		"intent", string(qc.Intent),
		"flags", strings.Join(qc.Flags, ","),
		"lexical_candidates", len(lexResults),
		"semantic_candidates", len(semResults),
		"merged", len(merged),
		"rescued", rescued,
	)

	grounding := truncateForGrounding(merged, uc.cfg.GroundingPassages, uc.cfg.GroundingChars)
	answerText, err := uc.generator.GenerateAnswer(ctx, query, grounding, mode)
	if err != nil {
		// The one failure that is allowed to reach the user.
		return nil, domain.WrapError(domain.ErrTemporary, "generate answer", err)
	}

	answer := &domain.Answer{
		Answer:           answerText,
		Intent:           intent,
		Citations:        []domain.Citation{},
		CanShowCitations: false,
		SessionID:        sessionID,
		Model:            string(mode),
		Stats: domain.RetrievalStats{
			Mode:               mode,
			LexicalCandidates:  len(lexResults),
			SemanticCandidates: len(semResults),
			Rescued:            rescued,
			Retrieved:          len(merged),
		},
	}
	if mode == domain.ModeStrict {
		answer.Citations = uc.citations.Build(merged)
		answer.CanShowCitations = len(answer.Citations) > 0
	}
	return answer, nil
}

// retrieve issues the lexical and semantic searches concurrently under a
// shared timeout. Each leg swallows its own failure; a timed-out leg is
// indistinguishable from a failed one and contributes nothing.
func (uc *AskUseCase) retrieve(ctx context.Context, query string, allow []string) (lexical, semantic []domain.ScoredPassage, queryVector []float32) {
	searchCtx, cancel := context.WithTimeout(ctx, uc.cfg.SearchTimeout)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		results, err := uc.passages.SearchText(searchCtx, query, allow, uc.cfg.CandidateLimit)
		if err != nil {
			uc.logger.Warn("lexical_search_failed", "error", err)
			return
		}
		lexical = normalizeLexical(results)
	}()

	go func() {
		defer wg.Done()
		vector, err := uc.embedder.EmbedQuery(searchCtx, query)
		if err != nil || len(vector) == 0 {
			if err != nil {
				uc.logger.Warn("query_embedding_failed", "error", err)
			}
			return
		}
		queryVector = vector
		results, err := uc.vectors.Search(searchCtx, vector, uc.cfg.CandidateLimit, allow)
		if err != nil {
			uc.logger.Warn("semantic_search_failed", "error", err)
			return
		}
		semantic = uc.markPriorityBoost(results)
	}()

	wg.Wait()
	return lexical, semantic, queryVector
}

// markPriorityBoost sets the semantic searcher's binary tie-breaking
// boost: 0.10 for priority sources, 0 otherwise. Independent of the
// query-driven boost policy.
func (uc *AskUseCase) markPriorityBoost(results []domain.ScoredPassage) []domain.ScoredPassage {
	for i := range results {
		if uc.rules.IsPriority(results[i].Passage.Source) {
			results[i].SourceBoost = 0.10
		} else {
			results[i].SourceBoost = 0
		}
	}
	return results
}

// truncateForGrounding bounds the context handed to the answer
// generator: at most maxPassages passages of at most maxChars characters
// each.
func truncateForGrounding(results []domain.ScoredPassage, maxPassages, maxChars int) []domain.Passage {
	n := min(maxPassages, len(results))
	out := make([]domain.Passage, 0, n)
	for _, res := range results[:n] {
		p := res.Passage
		p.Content = truncateRunes(p.Content, maxChars)
		out = append(out, p)
	}
	return out
}
