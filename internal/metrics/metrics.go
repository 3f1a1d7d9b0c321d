package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CommentsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discussion_comments_created_total",
			Help: "Total number of comments created",
		},
		[]string{"kind"}, // "root" or "reply"
	)

	ReactionUpserts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discussion_reaction_upserts_total",
			Help: "Total number of reaction upserts by outcome",
		},
		[]string{"outcome"}, // "inserted" or "updated"
	)

	ReactionConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "discussion_reaction_conflicts_total",
			Help: "Reaction upserts that lost a race and were retried",
		},
	)

	ThreadExpansionLevels = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "discussion_thread_expansion_levels",
			Help:    "Storage round trips spent expanding replies for one thread page",
			Buckets: []float64{0, 1, 2, 3, 4, 5, 6, 8, 10, 12},
		},
	)

	ThreadRepliesTruncated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "discussion_thread_replies_truncated_total",
			Help: "Thread pages whose reply expansion stopped at the reply cap",
		},
	)

	ThreadCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "discussion_thread_cache_hits_total",
			Help: "Thread page cache hits",
		},
	)

	ThreadCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "discussion_thread_cache_misses_total",
			Help: "Thread page cache misses",
		},
	)

	EngineErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discussion_errors_total",
			Help: "Errors returned by the discussion engine by kind",
		},
		[]string{"kind"},
	)
)
