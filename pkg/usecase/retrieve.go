package usecase

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/engram-lab/engram/pkg/domain/model"
	"github.com/engram-lab/engram/pkg/domain/types"
	"github.com/engram-lab/engram/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

const maxKeywords = 5

var (
	tokenSplitter = regexp.MustCompile(`[^\p{L}\p{N}]+`)

	stopWords = map[string]bool{
		"the": true, "and": true, "or": true, "but": true,
		"in": true, "on": true, "at": true, "to": true,
		"for": true, "of": true, "with": true, "by": true,
	}
)

// extractKeywords lowercases the query, splits on non-word runs and keeps up
// to maxKeywords distinct tokens, skipping short tokens and stop words.
func extractKeywords(query string) []string {
	tokens := tokenSplitter.Split(strings.ToLower(query), -1)

	seen := make(map[string]bool, maxKeywords)
	keywords := make([]string, 0, maxKeywords)
	for _, tok := range tokens {
		if utf8.RuneCountInString(tok) < 3 || stopWords[tok] || seen[tok] {
			continue
		}
		seen[tok] = true
		keywords = append(keywords, tok)
		if len(keywords) == maxKeywords {
			break
		}
	}
	return keywords
}

// retrieveSettings is the per-call tuning, seeded from the engine config
type retrieveSettings struct {
	limit     int
	daysBack  int
	threshold float64
}

// RetrieveOption overrides one retrieval knob for a single call
type RetrieveOption func(*retrieveSettings)

// WithLimit caps the number of records returned by this call
func WithLimit(n int) RetrieveOption {
	return func(s *retrieveSettings) {
		if n > 0 {
			s.limit = n
		}
	}
}

// WithDaysBack overrides the trailing search window for this call
func WithDaysBack(days int) RetrieveOption {
	return func(s *retrieveSettings) {
		if days > 0 {
			s.daysBack = days
		}
	}
}

// WithThreshold overrides the exclusive similarity cutoff for this call
func WithThreshold(v float64) RetrieveOption {
	return func(s *retrieveSettings) {
		if v > -1 && v < 1 {
			s.threshold = v
		}
	}
}

func (uc *UseCases) retrieveSettings(opts []RetrieveOption) retrieveSettings {
	s := retrieveSettings{
		limit:     uc.config.RetrievalLimit,
		daysBack:  uc.config.DaysBack,
		threshold: uc.config.SimilarityThreshold,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

func (s retrieveSettings) since(now time.Time) time.Time {
	return now.Add(-time.Duration(s.daysBack) * 24 * time.Hour)
}

// Retrieve searches the user's memory for records relevant to the query.
// Embedding mode ranks by cosine similarity against the query embedding and
// falls back to keyword mode when the model service or the candidate listing
// fails; keyword mode matches recent messages and keyword hits. Retrieval is
// best-effort: a storage failure yields an empty result, not an error.
func (uc *UseCases) Retrieve(ctx context.Context, userID types.UserID, query string, mode types.RetrievalMode, opts ...RetrieveOption) ([]model.MemoryRecord, error) {
	if userID == "" {
		return nil, goerr.New("user ID is required", goerr.T(types.ErrTagValidation))
	}

	settings := uc.retrieveSettings(opts)

	switch mode.Normalize() {
	case types.RetrievalModeEmbedding:
		records, err := uc.retrieveByEmbedding(ctx, userID, query, settings)
		if err != nil {
			logging.From(ctx).Warn("embedding retrieval failed, falling back to keywords",
				"userID", userID, "error", err)
			return uc.retrieveByKeywords(ctx, userID, query, settings), nil
		}
		return records, nil
	default:
		return uc.retrieveByKeywords(ctx, userID, query, settings), nil
	}
}

func (uc *UseCases) retrieveByKeywords(ctx context.Context, userID types.UserID, query string, settings retrieveSettings) []model.MemoryRecord {
	since := settings.since(time.Now().UTC())
	msgs, err := uc.repo.Message().SearchKeywords(ctx, userID, extractKeywords(query), since, settings.limit)
	if err != nil {
		logging.From(ctx).Warn("keyword retrieval failed, returning no memories",
			"userID", userID, "error", err)
		return []model.MemoryRecord{}
	}

	records := make([]model.MemoryRecord, 0, len(msgs))
	for _, m := range msgs {
		records = append(records, model.NewMemoryRecord(m))
	}
	return records
}

func (uc *UseCases) retrieveByEmbedding(ctx context.Context, userID types.UserID, query string, settings retrieveSettings) ([]model.MemoryRecord, error) {
	scored, err := uc.scoreCandidates(ctx, userID, query, settings)
	if err != nil {
		return nil, err
	}

	limit := settings.limit
	if limit > len(scored) {
		limit = len(scored)
	}

	records := make([]model.MemoryRecord, 0, limit)
	for _, s := range scored[:limit] {
		rec := model.NewMemoryRecord(s.message)
		rec.Similarity = s.similarity
		records = append(records, rec)
	}
	return records, nil
}

// FindSimilarConversations locates embedding hits and returns each together
// with its temporal neighborhood from the same session. An unusable model
// service or storage backend yields an empty result rather than an error:
// similarity search is an enrichment, not a required path.
func (uc *UseCases) FindSimilarConversations(ctx context.Context, userID types.UserID, query string, opts ...RetrieveOption) ([]model.ConversationMatch, error) {
	if userID == "" {
		return nil, goerr.New("user ID is required", goerr.T(types.ErrTagValidation))
	}

	settings := uc.retrieveSettings(opts)

	scored, err := uc.scoreCandidates(ctx, userID, query, settings)
	if err != nil {
		logging.From(ctx).Warn("similar-conversation search unavailable",
			"userID", userID, "error", err)
		return []model.ConversationMatch{}, nil
	}

	limit := settings.limit
	if limit > len(scored) {
		limit = len(scored)
	}

	matches := make([]model.ConversationMatch, 0, limit)
	for _, s := range scored[:limit] {
		neighborhood, err := uc.repo.Message().FetchWindow(ctx,
			userID, s.message.SessionID, s.message.CreatedAt, uc.config.ContextWindow())
		if err != nil {
			logging.From(ctx).Warn("failed to fetch conversation context",
				"userID", userID, "sessionID", s.message.SessionID, "error", err)
			return []model.ConversationMatch{}, nil
		}

		match := model.ConversationMatch{
			Anchor:     model.NewMemoryRecord(s.message),
			Similarity: s.similarity,
		}
		match.Anchor.Similarity = s.similarity
		for _, m := range neighborhood {
			match.Context = append(match.Context, model.NewMemoryRecord(m))
		}
		matches = append(matches, match)
	}
	return matches, nil
}

type scoredMessage struct {
	message    *model.Message
	similarity float64
}

// scoreCandidates embeds the query, scores every embedded candidate and
// returns hits above the similarity threshold, best first. Equal scores
// break toward the newer message.
func (uc *UseCases) scoreCandidates(ctx context.Context, userID types.UserID, query string, settings retrieveSettings) ([]scoredMessage, error) {
	queryEmbedding, err := uc.generateEmbedding(ctx, query)
	if err != nil {
		return nil, err
	}

	since := settings.since(time.Now().UTC())
	candidates, err := uc.repo.Message().ListEmbedded(ctx, userID, since)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list embedding candidates",
			goerr.V("userID", userID))
	}

	scored := make([]scoredMessage, 0, len(candidates))
	for _, m := range candidates {
		s := cosineSimilarity(queryEmbedding, m.Embedding)
		if s <= settings.threshold {
			continue
		}
		scored = append(scored, scoredMessage{message: m, similarity: s})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].similarity != scored[j].similarity {
			return scored[i].similarity > scored[j].similarity
		}
		return scored[i].message.CreatedAt.After(scored[j].message.CreatedAt)
	})
	return scored, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}

	return dot / denom
}
