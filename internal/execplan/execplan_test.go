package execplan

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildTrancheSharesSumToOne(t *testing.T) {
	plan := Build(Long, 100, 95, 2, DefaultConfig())
	assert.InDelta(t, 1.0, plan.TrancheShareSum(), 1e-9)
}

func TestBuildLongTargetsAboveEntry(t *testing.T) {
	plan := Build(Long, 100, 95, 2, DefaultConfig())
	r := 5.0
	assert.InDelta(t, 100+1.0*r, plan.Targets[0].Price, 1e-9)
	assert.InDelta(t, 100+2.0*r, plan.Targets[1].Price, 1e-9)
	assert.InDelta(t, 100+3.5*r, plan.Targets[2].Price, 1e-9)
	assert.Equal(t, 0.50, plan.Targets[0].ShareToClose)
	assert.Equal(t, "TP1", plan.Stops.BreakevenAfter)
	assert.Equal(t, "TP2", plan.Stops.TrailingAfter)
}

func TestBuildShortTargetsBelowEntry(t *testing.T) {
	plan := Build(Short, 100, 105, 2, DefaultConfig())
	r := 5.0
	assert.InDelta(t, 100-1.0*r, plan.Targets[0].Price, 1e-9)
	assert.Less(t, plan.Targets[2].Price, plan.Targets[1].Price)
}

func TestAwaitConfirmationFlipsToRejectAborts(t *testing.T) {
	fakeSleep := func(ctx context.Context, d time.Duration) error { return nil }
	reeval := func(ctx context.Context) (bool, error) { return false, nil }
	ok, err := AwaitConfirmation(context.Background(), 30*time.Second, fakeSleep, reeval)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAwaitConfirmationStillAccepted(t *testing.T) {
	fakeSleep := func(ctx context.Context, d time.Duration) error { return nil }
	reeval := func(ctx context.Context) (bool, error) { return true, nil }
	ok, err := AwaitConfirmation(context.Background(), 30*time.Second, fakeSleep, reeval)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAwaitConfirmationPropagatesSleepCancellation(t *testing.T) {
	wantErr := errors.New("cancelled")
	fakeSleep := func(ctx context.Context, d time.Duration) error { return wantErr }
	reeval := func(ctx context.Context) (bool, error) { return true, nil }
	_, err := AwaitConfirmation(context.Background(), 30*time.Second, fakeSleep, reeval)
	assert.ErrorIs(t, err, wantErr)
}

func TestAwaitConfirmationEnforcesMinDelay(t *testing.T) {
	var gotDelay time.Duration
	fakeSleep := func(ctx context.Context, d time.Duration) error { gotDelay = d; return nil }
	reeval := func(ctx context.Context) (bool, error) { return true, nil }
	_, _ = AwaitConfirmation(context.Background(), 1*time.Second, fakeSleep, reeval)
	assert.Equal(t, MinDelay, gotDelay)
}
