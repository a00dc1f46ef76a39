// Package queue defines the asynq tasks that trigger the pipeline.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// ProcessUploadTask is scheduled each time a records file is uploaded.
	ProcessUploadTask = "upload:process"
	// ReprocessUploadTask replays an already archived file.
	ReprocessUploadTask = "upload:reprocess"

	// ProcessRetention keeps finished process tasks, and with them their task
	// IDs, so late duplicate deliveries are still rejected.
	ProcessRetention = 24 * time.Hour
)

// ProcessPayload names the uploaded object the worker should pick up.
type ProcessPayload struct {
	Bucket      string `json:"bucket"`
	ObjectName  string `json:"object_name"`
	ContentType string `json:"content_type,omitempty"`
	MD5         string `json:"md5,omitempty"`
}

// ReprocessPayload names an archived file to run again.
type ReprocessPayload struct {
	FilePath         string `json:"file_path"`
	CheckTokenExpiry bool   `json:"check_token_expiry"`
}

// Enqueuer is the subset of *asynq.Client used to schedule tasks.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// EnqueueProcess schedules processing of an uploaded object. The task ID is
// derived from the object name and kept for ProcessRetention after the task
// finishes, so a second delivery for the same upload is dropped rather than
// processed twice.
func EnqueueProcess(ctx context.Context, client Enqueuer, payload ProcessPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	task := asynq.NewTask(ProcessUploadTask, data)
	_, err = client.EnqueueContext(ctx, task,
		asynq.MaxRetry(5),
		asynq.TaskID(ProcessUploadTask+":"+payload.ObjectName),
		asynq.Retention(ProcessRetention),
	)
	if err != nil && !errors.Is(err, asynq.ErrTaskIDConflict) {
		return fmt.Errorf("enqueue process task: %w", err)
	}
	return nil
}

// EnqueueReprocess schedules a replay of an archived file.
func EnqueueReprocess(ctx context.Context, client Enqueuer, payload ReprocessPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	task := asynq.NewTask(ReprocessUploadTask, data)
	if _, err := client.EnqueueContext(ctx, task, asynq.MaxRetry(3)); err != nil {
		return fmt.Errorf("enqueue reprocess task: %w", err)
	}
	return nil
}
