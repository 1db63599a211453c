package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/connexus-ai/companion-rank/internal/apperr"
	"github.com/connexus-ai/companion-rank/internal/catalog"
	"github.com/connexus-ai/companion-rank/internal/model"
)

// VectorSearcher finds the main product's nearest neighbors by
// embedding similarity.
type VectorSearcher interface {
	Search(ctx context.Context, mainID int64, limit int) ([]model.VectorHit, error)
}

// LLMSource reads precomputed, offline-ranked candidates for a main
// product.
type LLMSource interface {
	Candidates(ctx context.Context, mainID int64) ([]model.LLMHit, error)
}

// FeedbackWriter appends a durable feedback row and returns its
// assigned id.
type FeedbackWriter interface {
	Insert(ctx context.Context, f model.Feedback) (int64, error)
}

// DegradedChannelRecorder observes retrieval channel degradations for
// metrics. Optional: a nil recorder simply means no metric is
// recorded.
type DegradedChannelRecorder interface {
	RecordDegradedChannel(channel string)
}

// Pipeline orchestrates the ranking request path (retrieve, fuse,
// score, rerank) and the feedback write path.
type Pipeline struct {
	catalog    *catalog.Store
	vector     VectorSearcher
	llm        LLMSource
	bandit     *BanditState
	scorer     *Scorer
	mmr        *MMRReranker
	feedback   FeedbackWriter
	armStore   ArmStore
	publisher  ArmPublisher
	metrics    DegradedChannelRecorder
	mmrEnabled bool
	recallSize int
	returnSize int
	rrfK       float64
}

// PipelineConfig carries the tunables that shape pipeline behavior
// rather than any single component's internals.
type PipelineConfig struct {
	MMREnabled bool
	RecallSize int
	ReturnSize int
	RRFK       float64
}

func NewPipeline(
	cat *catalog.Store,
	vector VectorSearcher,
	llm LLMSource,
	bandit *BanditState,
	scorer *Scorer,
	mmr *MMRReranker,
	feedback FeedbackWriter,
	armStore ArmStore,
	publisher ArmPublisher,
	metrics DegradedChannelRecorder,
	cfg PipelineConfig,
) *Pipeline {
	return &Pipeline{
		catalog:    cat,
		vector:     vector,
		llm:        llm,
		bandit:     bandit,
		scorer:     scorer,
		mmr:        mmr,
		feedback:   feedback,
		armStore:   armStore,
		publisher:  publisher,
		metrics:    metrics,
		mmrEnabled: cfg.MMREnabled,
		recallSize: cfg.RecallSize,
		returnSize: cfg.ReturnSize,
		rrfK:       cfg.RRFK,
	}
}

// Recommend runs the full Ranking Pipeline for one main product id.
func (p *Pipeline) Recommend(ctx context.Context, mainID int64) ([]model.RecommendationItem, error) {
	main, ok := p.catalog.Get(mainID)
	if !ok || main.Role != model.RoleMain {
		return nil, fmt.Errorf("service.Recommend: product %d: %w", mainID, apperr.ErrNotFound)
	}

	vectorHits, llmHits, degraded := p.retrieveChannels(ctx, mainID)

	channels := make([]Channel, 0, 2)
	if vectorHits != nil {
		ids := make([]int64, len(vectorHits))
		simByID := make(map[int64]float64, len(vectorHits))
		for i, h := range vectorHits {
			ids[i] = h.ProductID
			simByID[h.ProductID] = h.Similarity
		}
		channels = append(channels, Channel{Kind: ChannelVector, ProductIDs: ids, Similarity: simByID})
	}
	if llmHits != nil {
		// Offline-produced candidates can reference accessories that
		// have since left the catalog; drop them before fusion so they
		// don't occupy fused ranks or count against padding.
		ids := make([]int64, 0, len(llmHits))
		for _, h := range llmHits {
			if acc, ok := p.catalog.Get(h.ProductID); ok && acc.Role == model.RoleAccessory {
				ids = append(ids, h.ProductID)
			}
		}
		channels = append(channels, Channel{Kind: ChannelLLM, ProductIDs: ids})
	}

	fused := FuseRRF(channels, p.rrfK)

	accessories := p.catalog.Accessories()
	if len(fused) == 0 {
		// Both channels degraded or empty: fall back over the full
		// accessory catalog with a default rrf_score.
		if degraded == 2 {
			slog.Warn("ranking: both retrieval channels degraded, falling back to full catalog", "main_id", mainID)
		}
		fused = fallbackAllAccessories(mainID, accessories)
	}

	if len(fused) < p.returnSize {
		fused = padFromAccessories(mainID, main.Type, fused, accessories, p.returnSize)
	}

	mainPrice := main.Price

	scored := make([]RankedCandidate, 0, len(fused))
	for _, c := range fused {
		acc, ok := p.catalog.Get(c.ProductID)
		if !ok || acc.Role != model.RoleAccessory || acc.ID == mainID {
			continue
		}
		sc := p.scorer.Score(mainID, mainPrice, acc.Price, c)
		scored = append(scored, RankedCandidate{ScoredCandidate: sc, Embedding: acc.Embedding})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	var final []RankedCandidate
	switch {
	case p.mmrEnabled && len(scored) > p.returnSize:
		final = p.mmr.Rerank(scored)
	case len(scored) > p.returnSize:
		final = scored[:p.returnSize]
	default:
		final = scored
	}

	now := time.Now().UTC()
	items := make([]model.RecommendationItem, 0, len(final))
	for _, c := range final {
		prod, ok := p.catalog.Get(c.ProductID)
		if !ok {
			continue
		}
		items = append(items, model.RecommendationItem{
			ID:                 c.ProductID,
			SimilarityScore:    c.Score,
			CreatedAt:          now,
			RecommendedProduct: prod,
		})
	}

	return items, nil
}

// retrieveChannels runs vector search and LLM candidate lookup
// concurrently. Each g.Go always returns nil: a channel failure is
// logged and degrades to nil (omitted from fusion) rather than
// failing the whole request via g.Wait().
func (p *Pipeline) retrieveChannels(ctx context.Context, mainID int64) (vectorHits []model.VectorHit, llmHits []model.LLMHit, degradedCount int) {
	var vErr, lErr error

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hits, err := p.vector.Search(gCtx, mainID, p.recallSize)
		if err != nil {
			vErr = err
			return nil
		}
		vectorHits = hits
		return nil
	})

	g.Go(func() error {
		hits, err := p.llm.Candidates(gCtx, mainID)
		if err != nil {
			lErr = err
			return nil
		}
		llmHits = hits
		return nil
	})

	_ = g.Wait()

	if vErr != nil {
		slog.Warn("ranking: vector channel degraded", "main_id", mainID, "channel", "vector", "error", vErr)
		vectorHits = nil
		degradedCount++
		if p.metrics != nil {
			p.metrics.RecordDegradedChannel("vector")
		}
	}
	if lErr != nil {
		slog.Warn("ranking: llm channel degraded", "main_id", mainID, "channel", "llm", "error", lErr)
		llmHits = nil
		degradedCount++
		if p.metrics != nil {
			p.metrics.RecordDegradedChannel("llm")
		}
	}
	return vectorHits, llmHits, degradedCount
}

// fallbackAllAccessories builds a synthetic fused list covering every
// accessory except the main product itself, each at a default
// rrf_score of 0.5.
func fallbackAllAccessories(mainID int64, accessories []model.Product) []model.FusedCandidate {
	out := make([]model.FusedCandidate, 0, len(accessories))
	for _, a := range accessories {
		if a.ID == mainID {
			continue
		}
		out = append(out, model.FusedCandidate{ProductID: a.ID, RRFScore: 0.5})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

// padFromAccessories fills a short fused list up to target length
// using accessories not already present, in deterministic
// hash(main_id, rec_id) order. Accessories sharing the main product's
// type are preferred ahead of other types.
func padFromAccessories(mainID int64, mainType string, fused []model.FusedCandidate, accessories []model.Product, target int) []model.FusedCandidate {
	present := make(map[int64]bool, len(fused))
	for _, c := range fused {
		present[c.ProductID] = true
	}
	present[mainID] = true

	type padCandidate struct {
		id       int64
		sameType bool
		h        uint64
	}

	var candidates []padCandidate
	for _, a := range accessories {
		if present[a.ID] {
			continue
		}
		candidates = append(candidates, padCandidate{
			id:       a.ID,
			sameType: mainType != "" && a.Type == mainType,
			h:        paddingHash(mainID, a.ID),
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].sameType != candidates[j].sameType {
			return candidates[i].sameType
		}
		return candidates[i].h < candidates[j].h
	})

	need := target - len(fused)
	out := make([]model.FusedCandidate, len(fused), target)
	copy(out, fused)
	for i := 0; i < need && i < len(candidates); i++ {
		out = append(out, model.FusedCandidate{ProductID: candidates[i].id, Padded: true})
	}
	return out
}

// paddingHash derives a deterministic ordering key for (main_id,
// rec_id) so that padding order is identical across runs and
// processes.
func paddingHash(mainID, recID int64) uint64 {
	const offset64 = 14695981039346656037
	const prime64 = 1099511628211
	h := uint64(offset64)
	for _, v := range [2]int64{mainID, recID} {
		u := uint64(v)
		for i := 0; i < 8; i++ {
			h ^= u & 0xff
			h *= prime64
			u >>= 8
		}
	}
	return h
}

// Feedback applies one relevance judgment: writes the durable feedback
// row first (so the arm can always be rebuilt from feedback history if
// the upsert below fails), then updates the in-memory bandit arm, then
// persists the new arm and publishes the update. A failure after the
// feedback row is written is reported as ErrPersistencePartial rather
// than failing the whole operation: the caller already has a durable
// record to reconcile from on the next ReloadFromStore.
func (p *Pipeline) Feedback(ctx context.Context, mainID, recID int64, isRelevant bool) (int64, error) {
	if _, ok := p.catalog.Get(mainID); !ok {
		return 0, fmt.Errorf("service.Feedback: product %d: %w", mainID, apperr.ErrInvalidInput)
	}
	if _, ok := p.catalog.Get(recID); !ok {
		return 0, fmt.Errorf("service.Feedback: product %d: %w", recID, apperr.ErrInvalidInput)
	}

	f := model.Feedback{
		ProductID:            mainID,
		RecommendedProductID: recID,
		IsRelevant:           isRelevant,
		CreatedAt:            time.Now().UTC(),
	}
	id, err := p.feedback.Insert(ctx, f)
	if err != nil {
		return 0, fmt.Errorf("service.Feedback: insert: %w", err)
	}

	// similarity_prior is only known from a live retrieval; a cold
	// feedback-only arm uses the neutral s=0.5 prior.
	key := ArmKey{MainID: mainID, RecID: recID}
	arm := p.bandit.Update(key, isRelevant, 0.5)

	if p.armStore != nil {
		if err := p.armStore.Upsert(ctx, arm); err != nil {
			return id, fmt.Errorf("service.Feedback: arm upsert: %w: %w", apperr.ErrPersistencePartial, err)
		}
	}
	if p.publisher != nil {
		if err := p.publisher.PublishArmUpdated(ctx, key); err != nil {
			slog.Warn("feedback: arm update publish failed", "main_id", mainID, "rec_id", recID, "error", err)
		}
	}
	return id, nil
}
