package service

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/connexus-ai/companion-rank/internal/model"
)

// ArmKey identifies one (main, recommended) pair.
type ArmKey struct {
	MainID int64
	RecID  int64
}

// Arm is the learned Beta(alpha, beta) quality estimate for one pair.
type Arm struct {
	MainID    int64
	RecID     int64
	Alpha     float64
	Beta      float64
	UpdatedAt time.Time
}

// ArmStore is the durable backing for Bandit State: read on startup,
// upserted on every feedback.
type ArmStore interface {
	LoadAll(ctx context.Context) ([]Arm, error)
	Upsert(ctx context.Context, a Arm) error
}

// ArmPublisher broadcasts an arm update so other server processes can
// eagerly refresh their copy instead of waiting for a full reload.
// Optional: a nil ArmPublisher simply means no cross-process fan-out.
type ArmPublisher interface {
	PublishArmUpdated(ctx context.Context, key ArmKey) error
}

type armRecord struct {
	mu    sync.Mutex
	alpha float64
	beta  float64
	// n is the authoritative feedback count, tracked directly rather
	// than re-derived, because arms loaded from storage may not match
	// the estimator's assumed initial prior.
	n         int
	updatedAt time.Time
}

// BanditState holds the process-wide (main,rec) -> Beta(alpha,beta)
// mapping. Reads and writes are safe for concurrent use: each arm is
// guarded by its own mutex so a sample of one arm never blocks on an
// update to another, and a sample never observes a torn (alpha,beta)
// pair.
type BanditState struct {
	store     ArmStore
	publisher ArmPublisher

	initStrength   float64
	updateStrength func() float64
	maxTotal       float64

	mu    sync.RWMutex
	arms  map[ArmKey]*armRecord
	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewBanditState creates a BanditState. updateStrength returns U for
// the configured DEMO_MODE (config.Config.UpdateStrength is passed in
// production); it is called on every Update and reload. seed fixes the PRNG for reproducible tests; pass 0 in
// production to seed from the current time.
func NewBanditState(store ArmStore, publisher ArmPublisher, initStrength, maxTotal float64, updateStrength func() float64, seed int64) *BanditState {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &BanditState{
		store:          store,
		publisher:      publisher,
		initStrength:   initStrength,
		maxTotal:       maxTotal,
		updateStrength: updateStrength,
		arms:           make(map[ArmKey]*armRecord),
		rng:            rand.New(rand.NewSource(seed)),
	}
}

// ReloadFromStore repopulates the arm map by scanning the durable Arm
// table. Values from storage override whatever is currently in
// memory.
func (b *BanditState) ReloadFromStore(ctx context.Context) error {
	arms, err := b.store.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("service.ReloadFromStore: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, a := range arms {
		key := ArmKey{MainID: a.MainID, RecID: a.RecID}
		rec, ok := b.arms[key]
		if !ok {
			rec = &armRecord{}
			b.arms[key] = rec
		}
		rec.mu.Lock()
		rec.alpha = a.Alpha
		rec.beta = a.Beta
		rec.n = estimateCount(a.Alpha, a.Beta, b.initStrength, b.updateStrength())
		rec.updatedAt = a.UpdatedAt
		rec.mu.Unlock()
	}
	return nil
}

// getOrInit returns the arm record for key, creating and initializing
// it with an informed prior if this is the first time key is seen.
// prior is the caller-supplied similarity in [0,1]; pass -1 when
// unknown, which falls back to s=0.5.
func (b *BanditState) getOrInit(key ArmKey, prior float64) *armRecord {
	b.mu.RLock()
	rec, ok := b.arms[key]
	b.mu.RUnlock()
	if ok {
		return rec
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if rec, ok := b.arms[key]; ok {
		return rec
	}

	s := prior
	if s < 0 || s > 1 {
		s = 0.5
	}
	I := b.initStrength
	rec = &armRecord{
		alpha:     1 + s*I,
		beta:      1 + (1-s)*I,
		n:         0,
		updatedAt: time.Now().UTC(),
	}
	b.arms[key] = rec
	return rec
}

// Sample draws one value from Beta(alpha, beta) for key, initializing
// the arm with prior if it does not exist yet.
func (b *BanditState) Sample(key ArmKey, prior float64) float64 {
	rec := b.getOrInit(key, prior)

	rec.mu.Lock()
	alpha, beta := rec.alpha, rec.beta
	rec.mu.Unlock()

	b.rngMu.Lock()
	x := sampleBeta(b.rng, alpha, beta)
	b.rngMu.Unlock()
	return x
}

// Expected returns alpha/(alpha+beta) for key, initializing with
// prior=0.5 if the arm does not exist.
func (b *BanditState) Expected(key ArmKey) float64 {
	rec := b.getOrInit(key, -1)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.alpha / (rec.alpha + rec.beta)
}

// Stats returns the current (alpha, beta, feedback count) for key.
func (b *BanditState) Stats(key ArmKey) (alpha, beta float64, n int) {
	rec := b.getOrInit(key, -1)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.alpha, rec.beta, rec.n
}

// Update applies feedback to the arm for key: alpha += U if relevant,
// else beta += U, then rescales both so alpha+beta never exceeds
// maxTotal. It does not touch durable storage; callers persist the
// returned Arm themselves (see Pipeline.Feedback) so the feedback row
// is always written before the arm upsert.
func (b *BanditState) Update(key ArmKey, isRelevant bool, prior float64) Arm {
	rec := b.getOrInit(key, prior)
	U := b.updateStrength()

	rec.mu.Lock()
	defer rec.mu.Unlock()

	if isRelevant {
		rec.alpha += U
	} else {
		rec.beta += U
	}

	if total := rec.alpha + rec.beta; total > b.maxTotal {
		scale := b.maxTotal / total
		rec.alpha *= scale
		rec.beta *= scale
	}
	rec.n++
	rec.updatedAt = time.Now().UTC()

	return Arm{
		MainID:    key.MainID,
		RecID:     key.RecID,
		Alpha:     rec.alpha,
		Beta:      rec.beta,
		UpdatedAt: rec.updatedAt,
	}
}

// FeedbackCount returns the feedback count the normal-mode weighting
// schedule uses for key: the arm's explicit counter, incremented on
// every Update. For arms loaded by ReloadFromStore the counter starts
// from estimateCount, which clamps at zero, since arms loaded from a
// different initialization policy can otherwise produce a negative
// estimate.
func (b *BanditState) FeedbackCount(key ArmKey) int {
	_, _, n := b.Stats(key)
	return n
}

func estimateCount(alpha, beta, initStrength, updateStrength float64) int {
	if updateStrength == 0 {
		return 0
	}
	n := math.Round((alpha + beta - (2 + initStrength)) / updateStrength)
	if n < 0 {
		return 0
	}
	return int(n)
}

// ToModelFeedback is a convenience constructor used by the feedback
// pipeline to build the durable Feedback row alongside the arm
// update.
func ToModelFeedback(id, mainID, recID int64, isRelevant bool, createdAt time.Time) model.Feedback {
	return model.Feedback{
		ID:                   id,
		ProductID:            mainID,
		RecommendedProductID: recID,
		IsRelevant:           isRelevant,
		CreatedAt:            createdAt,
	}
}
