package service

import (
	"context"
	"time"

	"github.com/docgate/docgate/internal/collection"
	"github.com/docgate/docgate/pkg/logger"
	"github.com/docgate/docgate/pkg/metrics"
)

const (
	OpListCollections  = "list_collections"
	OpCreateCollection = "create_collection"
	OpInsert           = "insert"
	OpPatch            = "patch"
	OpQuery            = "query"
	OpSearch           = "search"
	OpGet              = "get"
	OpDeleteByFilter   = "delete_by_filter"
	OpDeleteByID       = "delete_by_id"
)

// Outcome describes one finished operation. Affected counts documents
// inserted, updated or soft-deleted.
type Outcome struct {
	Operation  string
	Collection string
	Principal  string
	Affected   int64
	Duration   time.Duration
	Err        error
}

// Kind is "ok" for a success, otherwise the error kind.
func (o Outcome) Kind() string {
	if o.Err == nil {
		return "ok"
	}
	if k := collection.KindOf(o.Err); k != "" {
		return string(k)
	}
	return string(collection.StoreUnavailable)
}

// Observer is called after every operation returns. Observers must not block.
type Observer interface {
	Observe(ctx context.Context, o Outcome)
}

type ObserverFunc func(ctx context.Context, o Outcome)

func (f ObserverFunc) Observe(ctx context.Context, o Outcome) { f(ctx, o) }

// LogObserver logs successes at debug and failures at warn.
func LogObserver() Observer {
	log := logger.Named("collections")
	return ObserverFunc(func(_ context.Context, o Outcome) {
		if o.Err != nil {
			log.Warnf("%s %s by %s failed (%s): %v", o.Operation, o.Collection, o.Principal, o.Kind(), o.Err)
			return
		}
		log.Debugf("%s %s by %s affected=%d in %s", o.Operation, o.Collection, o.Principal, o.Affected, o.Duration)
	})
}

// MetricsObserver feeds the operation counters and latency histogram.
func MetricsObserver() Observer {
	return ObserverFunc(func(_ context.Context, o Outcome) {
		metrics.ObserveOperation(o.Operation, o.Kind(), o.Affected, o.Duration)
	})
}

func (s *Service) track(ctx context.Context, op, name string, p *collection.Principal, start time.Time, affected func() int64, errp *error) {
	if len(s.observers) == 0 {
		return
	}
	o := Outcome{
		Operation:  op,
		Collection: name,
		Principal:  p.Name(),
		Affected:   affected(),
		Duration:   time.Since(start),
		Err:        *errp,
	}
	for _, obs := range s.observers {
		obs.Observe(ctx, o)
	}
}
