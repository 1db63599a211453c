package service

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
)

type fakeArmStore struct {
	mu      sync.Mutex
	arms    []Arm
	loadErr error
	upserts []Arm
}

func (f *fakeArmStore) LoadAll(ctx context.Context) ([]Arm, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	out := make([]Arm, len(f.arms))
	copy(out, f.arms)
	return out, nil
}

func (f *fakeArmStore) Upsert(ctx context.Context, a Arm) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts = append(f.upserts, a)
	return nil
}

func demoStrength() func() float64 { return func() float64 { return 10.0 } }

func TestBanditState_InformedPriorInit(t *testing.T) {
	b := NewBanditState(&fakeArmStore{}, nil, 4.0, 100.0, demoStrength(), 1)

	key := ArmKey{MainID: 1, RecID: 2}
	alpha := b.Sample(key, 0.8)
	_ = alpha

	gotAlpha, gotBeta, n := b.Stats(key)
	if math.Abs(gotAlpha-(1+0.8*4.0)) > 1e-12 {
		t.Errorf("alpha = %v, want %v", gotAlpha, 1+0.8*4.0)
	}
	if math.Abs(gotBeta-(1+0.2*4.0)) > 1e-12 {
		t.Errorf("beta = %v, want %v", gotBeta, 1+0.2*4.0)
	}
	if n != 0 {
		t.Errorf("n = %d, want 0", n)
	}
}

func TestBanditState_GetOrInit_UnknownPriorUsesHalf(t *testing.T) {
	b := NewBanditState(&fakeArmStore{}, nil, 4.0, 100.0, demoStrength(), 1)
	key := ArmKey{MainID: 1, RecID: 2}

	alpha, beta, _ := b.Stats(key)
	// Stats uses prior=-1 (unknown) since it doesn't thread a
	// similarity value, so the arm initializes at s=0.5.
	wantAlpha := 1 + 0.5*4.0
	wantBeta := 1 + 0.5*4.0
	if alpha != wantAlpha || beta != wantBeta {
		t.Errorf("alpha,beta = %v,%v want %v,%v", alpha, beta, wantAlpha, wantBeta)
	}
}

func TestBanditState_Update_IncreasesAlphaOnRelevant(t *testing.T) {
	b := NewBanditState(&fakeArmStore{}, nil, 4.0, 100.0, demoStrength(), 1)
	key := ArmKey{MainID: 1, RecID: 2}

	before, _, _ := b.Stats(key)
	arm := b.Update(key, true, 0.5)

	if arm.Alpha <= before {
		t.Errorf("alpha did not increase: before=%v after=%v", before, arm.Alpha)
	}
	if arm.Alpha != before+10.0 {
		t.Errorf("alpha = %v, want %v", arm.Alpha, before+10.0)
	}
}

func TestBanditState_Update_IncreasesBetaOnIrrelevant(t *testing.T) {
	b := NewBanditState(&fakeArmStore{}, nil, 4.0, 100.0, demoStrength(), 1)
	key := ArmKey{MainID: 1, RecID: 2}

	_, beforeBeta, _ := b.Stats(key)
	arm := b.Update(key, false, 0.5)

	if arm.Beta != beforeBeta+10.0 {
		t.Errorf("beta = %v, want %v", arm.Beta, beforeBeta+10.0)
	}
}

func TestBanditState_Update_RescalesAtMaxTotal(t *testing.T) {
	b := NewBanditState(&fakeArmStore{}, nil, 4.0, 10.0, demoStrength(), 1)
	key := ArmKey{MainID: 1, RecID: 2}

	var arm Arm
	for i := 0; i < 20; i++ {
		arm = b.Update(key, true, 0.5)
	}

	if total := arm.Alpha + arm.Beta; total > 10.0+1e-9 {
		t.Errorf("alpha+beta = %v, want <= %v", total, 10.0)
	}
}

func TestBanditState_Update_IncrementsFeedbackCount(t *testing.T) {
	b := NewBanditState(&fakeArmStore{}, nil, 4.0, 100.0, demoStrength(), 1)
	key := ArmKey{MainID: 1, RecID: 2}

	b.Update(key, true, 0.5)
	b.Update(key, false, 0.5)
	b.Update(key, true, 0.5)

	if n := b.FeedbackCount(key); n != 3 {
		t.Errorf("FeedbackCount = %d, want 3", n)
	}
}

func TestBanditState_Sample_ReturnsUnitInterval(t *testing.T) {
	b := NewBanditState(&fakeArmStore{}, nil, 4.0, 100.0, demoStrength(), 42)
	key := ArmKey{MainID: 1, RecID: 2}

	for i := 0; i < 100; i++ {
		x := b.Sample(key, 0.7)
		if x < 0 || x > 1 {
			t.Fatalf("Sample() = %v, outside [0,1]", x)
		}
	}
}

func TestBanditState_ReloadFromStore_OverridesMemory(t *testing.T) {
	store := &fakeArmStore{arms: []Arm{
		{MainID: 1, RecID: 2, Alpha: 20, Beta: 5},
	}}
	b := NewBanditState(store, nil, 4.0, 100.0, demoStrength(), 1)

	key := ArmKey{MainID: 1, RecID: 2}
	b.Stats(key) // force lazy init before reload, as a live server would

	if err := b.ReloadFromStore(context.Background()); err != nil {
		t.Fatalf("ReloadFromStore() error: %v", err)
	}

	alpha, beta, _ := b.Stats(key)
	if alpha != 20 || beta != 5 {
		t.Errorf("alpha,beta = %v,%v want 20,5", alpha, beta)
	}
}

func TestBanditState_ReloadFromStore_PropagatesError(t *testing.T) {
	store := &fakeArmStore{loadErr: errors.New("db down")}
	b := NewBanditState(store, nil, 4.0, 100.0, demoStrength(), 1)

	if err := b.ReloadFromStore(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestEstimateCount_ClampsAtZero(t *testing.T) {
	// alpha+beta below the informed-prior floor must not go negative.
	n := estimateCount(1, 1, 4.0, 10.0)
	if n != 0 {
		t.Errorf("estimateCount = %d, want 0", n)
	}
}

func TestEstimateCount_MatchesKnownUpdateCount(t *testing.T) {
	// Three "relevant" updates at U=10 starting from the s=0.5 prior.
	alpha := 1 + 0.5*4.0 + 3*10.0
	beta := 1 + 0.5*4.0
	n := estimateCount(alpha, beta, 4.0, 10.0)
	if n != 3 {
		t.Errorf("estimateCount = %d, want 3", n)
	}
}
