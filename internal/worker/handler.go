// Package worker runs the pipeline for tasks delivered by asynq.
package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/dharsanguruparan/StreetPass/internal/pipeline"
	"github.com/dharsanguruparan/StreetPass/internal/queue"
)

// Runner is the part of *pipeline.Pipeline the worker drives.
type Runner interface {
	HandleObject(ctx context.Context, obj pipeline.ObjectEvent) pipeline.Result
	Reprocess(ctx context.Context, filePath string, checkTokenExpiry bool) pipeline.Result
}

// Handler is plugged into the asynq worker loop. Pipeline failures are
// already audited, so they are acknowledged instead of retried; only
// undecodable payloads are reported back to asynq, and never retried.
type Handler struct {
	runner Runner
	logger *zap.Logger
}

// NewHandler constructs a Handler.
func NewHandler(runner Runner, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{runner: runner, logger: logger}
}

// Mux registers the task handlers.
func (h *Handler) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.ProcessUploadTask, h.handleProcess)
	mux.HandleFunc(queue.ReprocessUploadTask, h.handleReprocess)
	return mux
}

func (h *Handler) handleProcess(ctx context.Context, task *asynq.Task) error {
	var payload queue.ProcessPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	res := h.runner.HandleObject(ctx, pipeline.ObjectEvent{
		Bucket:      payload.Bucket,
		Name:        payload.ObjectName,
		ContentType: payload.ContentType,
		MD5:         payload.MD5,
	})
	h.report(payload.ObjectName, res)
	return nil
}

func (h *Handler) handleReprocess(ctx context.Context, task *asynq.Task) error {
	var payload queue.ReprocessPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	res := h.runner.Reprocess(ctx, payload.FilePath, payload.CheckTokenExpiry)
	h.report(payload.FilePath, res)
	return nil
}

func (h *Handler) report(name string, res pipeline.Result) {
	fields := []zap.Field{zap.String("object", name), zap.String("status", string(res.Status))}
	if res.Status == pipeline.StatusError {
		h.logger.Warn("upload processing failed", append(fields, zap.String("message", res.Message))...)
		return
	}
	h.logger.Info("upload processed", fields...)
}
