package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersIncrement(t *testing.T) {
	before := testutil.ToFloat64(ReactionUpserts.WithLabelValues("inserted"))
	ReactionUpserts.WithLabelValues("inserted").Inc()
	if got := testutil.ToFloat64(ReactionUpserts.WithLabelValues("inserted")); got != before+1 {
		t.Errorf("expected %v, got %v", before+1, got)
	}

	before = testutil.ToFloat64(ThreadCacheHits)
	ThreadCacheHits.Inc()
	if got := testutil.ToFloat64(ThreadCacheHits); got != before+1 {
		t.Errorf("expected %v, got %v", before+1, got)
	}
}
