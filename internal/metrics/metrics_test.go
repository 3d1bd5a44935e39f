package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordCriterionIncrementsPassCounter(t *testing.T) {
	CriterionPass.Reset()
	CriterionFail.Reset()

	RecordCriterion("ELITE", "trend_alignment", true)
	RecordCriterion("ELITE", "trend_alignment", false)

	assert.Equal(t, float64(1), testutil.ToFloat64(CriterionPass.WithLabelValues("ELITE", "trend_alignment")))
	assert.Equal(t, float64(1), testutil.ToFloat64(CriterionFail.WithLabelValues("ELITE", "trend_alignment")))
}

func TestCacheCountersAreRegisteredAndIncrementable(t *testing.T) {
	CacheHits.Reset()
	CacheHits.WithLabelValues("market").Inc()
	assert.Equal(t, float64(1), testutil.ToFloat64(CacheHits.WithLabelValues("market")))
}
