package board

import (
	"context"
	"fmt"
	"log/slog"

	"taskboard/internal/changefeed"
)

// Loader fetches the joined rows a store holds.
type Loader[T any] struct {
	// All returns the full listing used as the baseline.
	All func(ctx context.Context) ([]T, error)
	// One re-fetches a single row by id after an insert or update notification.
	One func(ctx context.Context, id string) (T, error)
	// Accept filters re-fetched rows. Nil accepts everything.
	Accept func(T) bool
}

// Resync replaces the store contents with a fresh listing.
func Resync[T any](ctx context.Context, store *RowStore[T], loader Loader[T]) error {
	rows, err := loader.All(ctx)
	if err != nil {
		return fmt.Errorf("baseline fetch: %w", err)
	}
	store.ReplaceAll(rows)
	return nil
}

// Apply translates one change event into a store mutation. Inserts and
// updates re-fetch the row; a failed or empty re-fetch is dropped.
func Apply[T any](ctx context.Context, store *RowStore[T], ev changefeed.Event, loader Loader[T], logger *slog.Logger) {
	if ev.Kind == changefeed.KindDelete {
		store.ApplyDelete(ev.Row.ID)
		return
	}
	if !ev.NeedsFetch() {
		return
	}

	row, err := loader.One(ctx, ev.Row.ID)
	if err != nil {
		logger.Debug("dropping change after failed re-fetch",
			slog.String("table", ev.Table),
			slog.String("id", ev.Row.ID),
			slog.String("error", err.Error()))
		return
	}
	if loader.Accept != nil && !loader.Accept(row) {
		return
	}
	if ev.Kind == changefeed.KindInsert {
		store.ApplyInsert(row)
		return
	}
	store.ApplyUpdate(row)
}

// consume applies events from ch in arrival order until ch closes or ctx is
// cancelled. ch must be subscribed before the baseline is loaded so that
// changes racing the baseline are replayed on top of it.
func consume[T any](ctx context.Context, store *RowStore[T], ch changefeed.Channel, loader Loader[T], logger *slog.Logger) {
	events := ch.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			Apply(ctx, store, ev, loader, logger)
		}
	}
}
