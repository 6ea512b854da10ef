// Package worker keeps external mirrors of the bill store up to date.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"billtracker/internal/amqp"
	"billtracker/internal/backup"
	"billtracker/internal/core"
	applog "billtracker/internal/log"
	"billtracker/internal/sheets"
)

// Source is the bill store as seen by the worker: reloaded from the shared
// blob backend before each mirror.
type Source interface {
	Load(ctx context.Context) error
	Snapshot() ([]core.Bill, []string)
}

// Consumer delivers change events until ctx is done.
type Consumer interface {
	ConsumeBillsChanged(ctx context.Context, handler amqp.Handler) error
}

type Options struct {
	// SyncInterval is how often the full snapshot is re-mirrored even
	// without events. Zero disables the periodic resync.
	SyncInterval time.Duration
	// BackupInterval is how often a backup is shared. Zero disables it.
	BackupInterval time.Duration
	// Share receives backups first; Download is the fallback.
	Share    backup.Target
	Download backup.Target
	Now      func() time.Time
}

// SyncWorker mirrors the bill store into a spreadsheet and ships periodic
// backups.
type SyncWorker struct {
	source Source
	mirror sheets.BillMirror
	opts   Options
	logger *slog.Logger

	mu sync.Mutex
}

func NewSyncWorker(source Source, mirror sheets.BillMirror, opts Options, logger *slog.Logger) *SyncWorker {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &SyncWorker{
		source: source,
		mirror: mirror,
		opts:   opts,
		logger: applog.WithComponent(logger, applog.ComponentWorker),
	}
}

// HandleBillsChanged processes a single change message from AMQP.
func (w *SyncWorker) HandleBillsChanged(ctx context.Context, msg *amqp.BillsChangedMessage) error {
	w.logger.InfoContext(ctx, "Processing bills changed message",
		applog.FieldOperation, msg.Op,
		applog.FieldBillCount, msg.BillCount,
		"timestamp", msg.Timestamp)
	return w.Sync(ctx)
}

// Sync reloads the store and mirrors the whole snapshot. Calls are
// serialised so two mirrors never interleave their clear and write.
func (w *SyncWorker) Sync(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.source.Load(ctx); err != nil {
		return fmt.Errorf("reload bill store: %w", err)
	}
	bills, types := w.source.Snapshot()
	if err := w.mirror.Mirror(ctx, bills, types); err != nil {
		return fmt.Errorf("mirror bills: %w", err)
	}

	w.logger.InfoContext(ctx, "Successfully mirrored bills",
		applog.FieldBillCount, len(bills),
		applog.FieldTypeCount, len(types))
	return nil
}

// Backup exports the current snapshot and hands it to the share target,
// falling back to the download target.
func (w *SyncWorker) Backup(ctx context.Context) (backup.Delivery, error) {
	if w.opts.Download == nil && w.opts.Share == nil {
		return backup.Delivery{}, errors.New("no backup target configured")
	}

	w.mu.Lock()
	err := w.source.Load(ctx)
	env := backup.Export(w.source, w.opts.Now())
	w.mu.Unlock()
	if err != nil {
		return backup.Delivery{}, fmt.Errorf("reload bill store: %w", err)
	}

	data, err := backup.Serialize(env)
	if err != nil {
		return backup.Delivery{}, fmt.Errorf("serialize backup: %w", err)
	}

	today := core.DateOf(w.opts.Now())
	download := w.opts.Download
	if download == nil {
		download = backup.TargetFunc(func(context.Context, string, []byte) error {
			return errors.New("no download target configured")
		})
	}
	return backup.Share(applog.IntoContext(ctx, w.logger), w.opts.Share, download, data, today)
}

// StartupSync mirrors once at startup to recover from missed events.
func (w *SyncWorker) StartupSync(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Performing startup sync")
	return w.Sync(ctx)
}

// Run consumes events and runs the periodic loops until ctx is done or one
// of them fails.
func (w *SyncWorker) Run(ctx context.Context, consumer Consumer) error {
	g, ctx := errgroup.WithContext(ctx)

	if consumer != nil {
		g.Go(func() error {
			return consumer.ConsumeBillsChanged(ctx, w.HandleBillsChanged)
		})
	}
	if w.opts.SyncInterval > 0 {
		g.Go(func() error {
			return w.every(ctx, w.opts.SyncInterval, "Periodic sync failed", w.Sync)
		})
	}
	if w.opts.BackupInterval > 0 {
		g.Go(func() error {
			return w.every(ctx, w.opts.BackupInterval, "Periodic backup failed", func(ctx context.Context) error {
				d, err := w.Backup(ctx)
				if err == nil {
					w.logger.InfoContext(ctx, "Periodic backup delivered",
						applog.FieldFilename, d.Filename, "shared", d.Shared)
				}
				return err
			})
		})
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// every runs fn on each tick. fn errors are logged, not returned.
func (w *SyncWorker) every(ctx context.Context, d time.Duration, failMsg string, fn func(context.Context) error) error {
	ticker := time.NewTicker(d)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := fn(ctx); err != nil {
				w.logger.ErrorContext(ctx, failMsg, applog.FieldError, err)
			}
		}
	}
}
