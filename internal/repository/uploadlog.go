// Package repository wraps the SQL used by the pipeline, the API and the CLI.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dharsanguruparan/StreetPass/internal/model"
)

// ErrNotFound is returned when no row matches.
var ErrNotFound = errors.New("not found")

// UploadLogRepository stores one audit row per uploaded file.
type UploadLogRepository struct {
	pool *pgxpool.Pool
}

// NewUploadLogRepository constructs a repository.
func NewUploadLogRepository(pool *pgxpool.Pool) *UploadLogRepository {
	return &UploadLogRepository{pool: pool}
}

// UpsertUploadLog writes entry, replacing any previous row for its file.
func (r *UploadLogRepository) UpsertUploadLog(ctx context.Context, entry model.UploadLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO upload_logs (file_name, id, status, step, upload_code, records_received, validated_records,
			records_sent, error_message, error_stack_trace, logged_time)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (file_name) DO UPDATE SET
			id = EXCLUDED.id,
			status = EXCLUDED.status,
			step = EXCLUDED.step,
			upload_code = EXCLUDED.upload_code,
			records_received = EXCLUDED.records_received,
			validated_records = EXCLUDED.validated_records,
			records_sent = EXCLUDED.records_sent,
			error_message = EXCLUDED.error_message,
			error_stack_trace = EXCLUDED.error_stack_trace,
			logged_time = EXCLUDED.logged_time
	`, entry.FileName, entry.ID, entry.Status, nullable(entry.Step), nullable(entry.UploadCode),
		entry.RecordsReceived, entry.ValidatedRecords, entry.RecordsSent,
		nullable(entry.ErrorMessage), nullable(entry.ErrorStackTrace), entry.LoggedTime)
	if err != nil {
		return fmt.Errorf("upsert upload log: %w", err)
	}
	return nil
}

// UploadLog returns the row for fileName.
func (r *UploadLogRepository) UploadLog(ctx context.Context, fileName string) (model.UploadLog, error) {
	var (
		entry                     model.UploadLog
		step, code, errMsg, stack sql.NullString
		received, validated, sent *int
	)
	row := r.pool.QueryRow(ctx, `
		SELECT file_name, id, status, step, upload_code, records_received, validated_records, records_sent,
			error_message, error_stack_trace, logged_time
		FROM upload_logs WHERE file_name=$1
	`, fileName)
	if err := row.Scan(&entry.FileName, &entry.ID, &entry.Status, &step, &code, &received, &validated, &sent,
		&errMsg, &stack, &entry.LoggedTime); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.UploadLog{}, fmt.Errorf("upload log %s: %w", fileName, ErrNotFound)
		}
		return model.UploadLog{}, fmt.Errorf("select upload log: %w", err)
	}
	entry.Step = step.String
	entry.UploadCode = code.String
	entry.ErrorMessage = errMsg.String
	entry.ErrorStackTrace = stack.String
	entry.RecordsReceived = received
	entry.ValidatedRecords = validated
	entry.RecordsSent = sent
	return entry, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
