package fetch

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"card/internal/api"
	"card/internal/log"
	"card/internal/ui"
)

const summaryKey = "summary"

// SummaryFetcher loads the monthly total into its store.
type SummaryFetcher struct {
	ctx      context.Context
	source   api.SummaryReader
	store    *ui.Store[SummaryState]
	group    singleflight.Group
	logger   *log.Logger
	observer Observer
}

// NewSummaryFetcher creates a fetcher whose requests live as long as ctx.
func NewSummaryFetcher(ctx context.Context, loop *ui.Loop, source api.SummaryReader, logger *log.Logger, observer Observer) *SummaryFetcher {
	if logger == nil {
		logger = log.Discard()
	}
	if observer == nil {
		observer = nopObserver{}
	}
	return &SummaryFetcher{
		ctx:      ctx,
		source:   source,
		store:    ui.NewStore(loop, InitialSummary()),
		logger:   logger.WithComponent(log.ComponentFetch),
		observer: observer,
	}
}

// Store exposes the summary state for rendering and subscriptions.
func (f *SummaryFetcher) Store() *ui.Store[SummaryState] {
	return f.store
}

// Trigger starts a fetch, or joins the one in flight. The returned channel is
// closed once the result has been applied to the store.
func (f *SummaryFetcher) Trigger() <-chan struct{} {
	done := make(chan struct{})
	var leader bool
	results := f.group.DoChan(summaryKey, func() (any, error) {
		leader = true
		<-f.fetch()
		return nil, nil
	})
	go func() {
		<-results
		if !leader {
			f.observer.FetchCoalesced(log.OpFetchSummary)
		}
		close(done)
	}()
	return done
}

func (f *SummaryFetcher) fetch() <-chan struct{} {
	start := time.Now()
	summary, err := f.source.ReadSummary(f.ctx)
	elapsed := time.Since(start)
	kind := api.KindOf(err)
	f.observer.FetchCompleted(log.OpFetchSummary, kind, err, elapsed)

	if err != nil {
		log.NewStructuredLogger(f.logger).LogFetchFailed(f.ctx, log.OpFetchSummary, err, kind.String())
		msg := summaryMessage(err)
		return f.store.Update(func(s *SummaryState) {
			s.Display = msg
			s.OK = false
			s.FetchedAt = time.Now()
		})
	}

	f.logger.DebugContext(f.ctx, "Summary updated", log.FieldTotal, summary.Total, log.FieldDuration, elapsed.Milliseconds())
	display := summary.Display()
	return f.store.Update(func(s *SummaryState) {
		s.Display = display
		s.Total = summary.Total
		s.OK = true
		s.FetchedAt = time.Now()
	})
}
