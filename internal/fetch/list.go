package fetch

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"card/internal/api"
	"card/internal/log"
	"card/internal/ui"
)

const usagesKey = "usages"

// ListFetcher loads the itemized usages into its store.
type ListFetcher struct {
	ctx      context.Context
	source   api.UsageLister
	store    *ui.Store[ListState]
	group    singleflight.Group
	logger   *log.Logger
	observer Observer
}

// NewListFetcher creates a fetcher whose requests live as long as ctx.
func NewListFetcher(ctx context.Context, loop *ui.Loop, source api.UsageLister, logger *log.Logger, observer Observer) *ListFetcher {
	if logger == nil {
		logger = log.Discard()
	}
	if observer == nil {
		observer = nopObserver{}
	}
	return &ListFetcher{
		ctx:      ctx,
		source:   source,
		store:    ui.NewStore(loop, InitialList()),
		logger:   logger.WithComponent(log.ComponentFetch),
		observer: observer,
	}
}

// Store exposes the list state for rendering and subscriptions.
func (f *ListFetcher) Store() *ui.Store[ListState] {
	return f.store
}

// Trigger sets loading, starts a fetch (or joins the one in flight) and
// returns a channel closed once the outcome has been applied.
func (f *ListFetcher) Trigger() <-chan struct{} {
	done := make(chan struct{})
	var leader bool
	results := f.group.DoChan(usagesKey, func() (any, error) {
		leader = true
		f.store.Update(func(s *ListState) { s.Loading = true })
		<-f.fetch()
		return nil, nil
	})
	go func() {
		<-results
		if !leader {
			f.observer.FetchCoalesced(log.OpFetchUsages)
		}
		close(done)
	}()
	return done
}

func (f *ListFetcher) fetch() <-chan struct{} {
	start := time.Now()
	usages, err := f.source.ListUsages(f.ctx)
	elapsed := time.Since(start)
	kind := api.KindOf(err)
	f.observer.FetchCompleted(log.OpFetchUsages, kind, err, elapsed)

	if err != nil {
		log.NewStructuredLogger(f.logger).LogFetchFailed(f.ctx, log.OpFetchUsages, err, kind.String())
		return f.store.Update(func(s *ListState) {
			s.Err = ListErrorMessage
			s.Loading = false
		})
	}

	f.logger.DebugContext(f.ctx, "Usages updated", log.FieldCount, len(usages), log.FieldDuration, elapsed.Milliseconds())
	return f.store.Update(func(s *ListState) {
		s.Usages = usages
		s.Err = ""
		s.Loading = false
		s.FetchedAt = time.Now()
	})
}
