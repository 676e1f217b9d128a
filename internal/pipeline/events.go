package pipeline

import "time"

// Stage names a pipeline stage for progress-event reporting.
type Stage string

const (
	StageIngest     Stage = "ingest"
	StageAdjust     Stage = "adjust"
	StageRank       Stage = "rank"
	StageCumulative Stage = "cumulative"
	StageUniverse   Stage = "universe"
)

// Event is a single progress notification emitted at stage boundaries
// and, for per-date work, after each date's partition is published.
// Date is zero for whole-stage events.
type Event struct {
	CorrelationID string
	Stage         Stage
	Date          int
	RowsWritten   int
	Elapsed       time.Duration
}

// Reporter receives progress events. A nil Reporter is valid — events
// are simply dropped.
type Reporter func(Event)

func report(r Reporter, e Event) {
	if r != nil {
		r(e)
	}
}
