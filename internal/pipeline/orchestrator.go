// Package pipeline implements the orchestrator (C9): the prepare(window)
// contract that sweeps S1 across a date range, then runs S2, S3, S4a,
// and S4b in sequence, under the store's single-writer advisory lock.
package pipeline

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"krxdb/internal/cumulative"
	"krxdb/internal/enrich"
	"krxdb/internal/ingest"
	"krxdb/internal/metrics"
	"krxdb/internal/store"
	"krxdb/internal/universe"
)

// DateFailure pairs a date with the fatal error the S1 sweep
// encountered for it. Fatal errors are isolated per date; they do not
// halt the sweep.
type DateFailure struct {
	Date int
	Err  error
}

// Summary is the prepare() result: the (succeeded, skipped-non-trading,
// failed) partition of the requested window.
type Summary struct {
	Succeeded         []int
	SkippedNonTrading []int
	Failed            []DateFailure
}

// Roots names the three on-disk locations prepare operates on: the
// persistent snapshot/enrichment store, the persistent universe table,
// and the ephemeral cumulative-multiplier cache for this window.
type Roots struct {
	SnapshotRoot            string
	UniverseRoot            string
	EphemeralCumulativeRoot string
}

// Options carries the partitioning and concurrency knobs prepare needs.
type Options struct {
	RowGroupSize int
	Compression  string
	MaxWorkers   int
	SkipExisting bool
}

// Prepare runs the full orchestrator contract for window [start, end]:
// an S1 sweep (fan-out bounded by Options.MaxWorkers, one worker per
// date, each date published by exactly one worker), then S2, S3, S4a,
// S4b in sequence. It acquires storeRoot's advisory lock on entry and
// releases it on exit. ephemeralRoot is the writer's staging/backup
// scratch area (§6), distinct from storeRoot itself.
func Prepare(storeRoot, ephemeralRoot string, roots Roots, fetcher ingest.Fetcher, start, end int, opts Options, reporter Reporter) (Summary, error) {
	lock, err := store.Acquire(storeRoot)
	if err != nil {
		return Summary{}, err
	}
	defer lock.Release()

	correlationID := uuid.NewString()
	w := store.NewWriter(ephemeralRoot)

	// Restore any table left mid-write by a crashed prior run before
	// touching it: a crash between backup and publish must be repaired
	// here, or the S1 sweep below would see the partition as absent
	// and mistake a crash for a holiday.
	if err := w.Reconcile("snapshots", roots.SnapshotRoot); err != nil {
		return Summary{}, err
	}
	if err := w.Reconcile("universes", roots.UniverseRoot); err != nil {
		return Summary{}, err
	}
	if err := w.Reconcile("cumulative_adjustments", roots.EphemeralCumulativeRoot); err != nil {
		return Summary{}, err
	}

	dates := dateRange(start, end)
	if dates == nil {
		return Summary{}, fmt.Errorf("invalid window [%d, %d]", start, end)
	}

	summary := Summary{}
	var mu sync.Mutex

	workers := opts.MaxWorkers
	if workers < 1 {
		workers = 1
	}

	g := new(errgroup.Group)
	g.SetLimit(workers)
	for _, date := range dates {
		date := date
		g.Go(func() error {
			begin := time.Now()
			res, ingestErr := ingest.Day(w, roots.SnapshotRoot, fetcher, date, opts.RowGroupSize, opts.Compression, opts.SkipExisting)
			elapsed := time.Since(begin)

			mu.Lock()
			switch {
			case ingestErr != nil:
				summary.Failed = append(summary.Failed, DateFailure{Date: date, Err: ingestErr})
				metrics.DateFailures.Inc()
			case res.NonTrading:
				summary.SkippedNonTrading = append(summary.SkippedNonTrading, date)
			default:
				summary.Succeeded = append(summary.Succeeded, date)
				metrics.RowsIngested.Add(float64(res.RowCount))
			}
			mu.Unlock()

			report(reporter, Event{CorrelationID: correlationID, Stage: StageIngest, Date: date, RowsWritten: res.RowCount, Elapsed: elapsed})
			// Per-date failures are collected into the summary, never
			// propagated through the group — one bad date must not
			// cancel the rest of the sweep (C12).
			return nil
		})
	}
	_ = g.Wait()

	stageStart := time.Now()
	if err := enrich.Adjustments(roots.SnapshotRoot, w, start, end, opts.RowGroupSize, opts.Compression); err != nil {
		return summary, err
	}
	adjustElapsed := time.Since(stageStart)
	metrics.EnrichmentDuration.WithLabelValues(string(StageAdjust)).Observe(adjustElapsed.Seconds())
	report(reporter, Event{CorrelationID: correlationID, Stage: StageAdjust, Elapsed: adjustElapsed})

	stageStart = time.Now()
	if err := enrich.LiquidityRanks(roots.SnapshotRoot, w, start, end, opts.RowGroupSize, opts.Compression); err != nil {
		return summary, err
	}
	rankElapsed := time.Since(stageStart)
	metrics.EnrichmentDuration.WithLabelValues(string(StageRank)).Observe(rankElapsed.Seconds())
	report(reporter, Event{CorrelationID: correlationID, Stage: StageRank, Elapsed: rankElapsed})

	stageStart = time.Now()
	if err := cumulative.Build(roots.SnapshotRoot, w, roots.EphemeralCumulativeRoot, start, end, opts.Compression); err != nil {
		return summary, err
	}
	cumElapsed := time.Since(stageStart)
	metrics.CacheRebuildDuration.Observe(cumElapsed.Seconds())
	report(reporter, Event{CorrelationID: correlationID, Stage: StageCumulative, Elapsed: cumElapsed})

	stageStart = time.Now()
	if err := universe.Build(roots.SnapshotRoot, w, roots.UniverseRoot, start, end, opts.Compression); err != nil {
		return summary, err
	}
	report(reporter, Event{CorrelationID: correlationID, Stage: StageUniverse, Elapsed: time.Since(stageStart)})

	return summary, nil
}

// dateRange enumerates every calendar date in [start, end] inclusive,
// encoded as YYYYMMDD integers. Non-trading days are included in the
// sweep; the fetcher is what reports a date empty.
func dateRange(start, end int) []int {
	cur, err := parseDate(start)
	if err != nil {
		return nil
	}
	last, err := parseDate(end)
	if err != nil {
		return nil
	}
	if cur.After(last) {
		return nil
	}

	var out []int
	for !cur.After(last) {
		out = append(out, encodeDate(cur))
		cur = cur.AddDate(0, 0, 1)
	}
	return out
}

func parseDate(date int) (time.Time, error) {
	return time.Parse("20060102", fmt.Sprintf("%08d", date))
}

func encodeDate(t time.Time) int {
	year, month, day := t.Date()
	return year*10000 + int(month)*100 + day
}
