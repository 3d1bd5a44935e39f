package logx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateTraceIDIsUniqueAndHex(t *testing.T) {
	a := GenerateTraceID()
	b := GenerateTraceID()
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 32)
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	got := FromContext(context.Background())
	assert.Same(t, Default(), got)
}

func TestNewContextRoundTrips(t *testing.T) {
	l := New(Config{Level: "INFO"}).WithComponent("ctx-test")
	ctx := NewContext(context.Background(), l)
	assert.Same(t, l, FromContext(ctx))
}

func TestWithTraceTagsAndStoresLogger(t *testing.T) {
	ctx, l := WithTrace(context.Background())
	require.NotNil(t, l)
	got := FromContext(ctx)
	assert.Equal(t, got, l)
}
