package backup

import (
	"context"
	"fmt"
	"log/slog"

	"billtracker/internal/core"
	applog "billtracker/internal/log"
)

// Target hands a finished backup file to the user or to another system.
type Target interface {
	Deliver(ctx context.Context, filename string, data []byte) error
}

// TargetFunc adapts a function to Target.
type TargetFunc func(ctx context.Context, filename string, data []byte) error

func (f TargetFunc) Deliver(ctx context.Context, filename string, data []byte) error {
	return f(ctx, filename, data)
}

// ExportFilename is used for explicit exports.
func ExportFilename(today core.Date) string {
	return fmt.Sprintf("bills-backup-%s.json", today)
}

// ShareFilename is used when a share target accepts the file.
func ShareFilename(today core.Date) string {
	return fmt.Sprintf("bills-%s.json", today)
}

// ShareFallbackFilename is used when sharing falls back to a download.
func ShareFallbackFilename(today core.Date) string {
	return fmt.Sprintf("bills-share-%s.json", today)
}

// Delivery reports where a share ended up.
type Delivery struct {
	Filename string
	Shared   bool
}

// DeliverExport sends data to the download target as a backup export.
func DeliverExport(ctx context.Context, download Target, data []byte, today core.Date) (Delivery, error) {
	name := ExportFilename(today)
	if err := download.Deliver(ctx, name, data); err != nil {
		return Delivery{}, fmt.Errorf("deliver export: %w", err)
	}
	return Delivery{Filename: name}, nil
}

// Share tries the share target first. Any share error, or a nil share
// target, falls back to the download target; the share error is logged and
// not returned because download is always available.
func Share(ctx context.Context, share, download Target, data []byte, today core.Date) (Delivery, error) {
	logger := applog.WithComponent(applog.FromContext(ctx), applog.ComponentShare)

	if share != nil {
		name := ShareFilename(today)
		err := share.Deliver(ctx, name, data)
		if err == nil {
			logger.InfoContext(ctx, "Backup shared", applog.FieldFilename, name)
			return Delivery{Filename: name, Shared: true}, nil
		}
		logger.WarnContext(ctx, "Share failed, falling back to download",
			applog.FieldFilename, name, applog.FieldError, err)
	}

	name := ShareFallbackFilename(today)
	if err := download.Deliver(ctx, name, data); err != nil {
		return Delivery{}, fmt.Errorf("deliver share download: %w", err)
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "Backup downloaded for sharing", slog.String(applog.FieldFilename, name))
	return Delivery{Filename: name}, nil
}
