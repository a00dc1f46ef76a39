// Package audit keeps the per-file audit trail of the upload pipeline.
package audit

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/dharsanguruparan/StreetPass/internal/model"
)

// Store persists upload logs, replacing any entry with the same file name.
type Store interface {
	UpsertUploadLog(ctx context.Context, entry model.UploadLog) error
	UploadLog(ctx context.Context, fileName string) (model.UploadLog, error)
}

// Logger writes audit entries. Writes are best effort: a failing store is
// logged and otherwise ignored so that auditing never changes a run's outcome.
type Logger struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

// NewLogger constructs a Logger.
func NewLogger(store Store, logger *zap.Logger) *Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Logger{store: store, logger: logger, now: time.Now}
}

// Record upserts entry under fileName, stamping FileName and LoggedTime.
func (l *Logger) Record(ctx context.Context, fileName string, entry model.UploadLog) {
	entry.FileName = fileName
	entry.LoggedTime = l.now().UTC()
	if err := l.store.UpsertUploadLog(ctx, entry); err != nil {
		l.logger.Warn("store upload log",
			zap.String("fileName", fileName),
			zap.String("status", string(entry.Status)),
			zap.Error(err))
	}
}

// Last returns the current entry for fileName. A missing entry and a failing
// store both report false.
func (l *Logger) Last(ctx context.Context, fileName string) (model.UploadLog, bool) {
	entry, err := l.store.UploadLog(ctx, fileName)
	if err != nil {
		l.logger.Debug("no upload log", zap.String("fileName", fileName), zap.Error(err))
		return model.UploadLog{}, false
	}
	return entry, true
}
