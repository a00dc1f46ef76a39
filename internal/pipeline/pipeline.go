// Package pipeline turns an uploaded records file into validated,
// aggregated contact summaries and hands them to a forwarder, keeping an
// audit entry per file.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dharsanguruparan/StreetPass/internal/aggregate"
	"github.com/dharsanguruparan/StreetPass/internal/model"
	"github.com/dharsanguruparan/StreetPass/internal/token"
)

// ObjectStore moves uploads into the archive and reads them back.
type ObjectStore interface {
	Archive(ctx context.Context, srcKey, dstKey string) error
	LoadArchived(ctx context.Context, key string) ([]byte, error)
}

// TokenValidator resolves an upload token to the uploader.
type TokenValidator interface {
	Validate(ctx context.Context, raw string, checkExpiry bool) (token.Identity, error)
}

// RecordValidator classifies every record of an upload.
type RecordValidator interface {
	ValidateBatch(ctx context.Context, records []model.RawRecord) ([]model.ValidatedRecord, error)
}

// Forwarder persists or publishes a processed batch.
type Forwarder interface {
	Forward(ctx context.Context, batch model.Batch) error
}

// AuditLogger records progress per file. It must not fail the run.
type AuditLogger interface {
	Record(ctx context.Context, fileName string, entry model.UploadLog)
}

// UploadHistory returns the current audit entry of a file, if any.
type UploadHistory interface {
	Last(ctx context.Context, fileName string) (model.UploadLog, bool)
}

// Deps are the collaborators of a Pipeline. History is optional; without it
// redelivered uploads are not detected.
type Deps struct {
	Objects    ObjectStore
	Tokens     TokenValidator
	Validator  RecordValidator
	Aggregator *aggregate.Aggregator
	Forwarder  Forwarder
	Audit      AuditLogger
	History    UploadHistory
	Logger     *zap.Logger
}

// Options control which objects are processed and how long a run may take.
type Options struct {
	RecordsDir string
	Extension  string
	// Timeout bounds one run; zero means no limit beyond the caller's context.
	Timeout time.Duration
}

// Pipeline processes one uploaded file per call. Calls for different files
// may run concurrently.
type Pipeline struct {
	deps Deps
	opts Options
	now  func() time.Time
}

// New constructs a Pipeline.
func New(deps Deps, opts Options) (*Pipeline, error) {
	switch {
	case deps.Objects == nil:
		return nil, errors.New("object store is required")
	case deps.Tokens == nil:
		return nil, errors.New("token validator is required")
	case deps.Validator == nil:
		return nil, errors.New("record validator is required")
	case deps.Forwarder == nil:
		return nil, errors.New("forwarder is required")
	case deps.Audit == nil:
		return nil, errors.New("audit logger is required")
	case opts.RecordsDir == "" || opts.Extension == "":
		return nil, errors.New("records dir and extension are required")
	}
	if deps.Aggregator == nil {
		deps.Aggregator = aggregate.New(aggregate.DefaultWindow)
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Pipeline{deps: deps, opts: opts, now: time.Now}, nil
}

// HandleObject is the entry point for a newly uploaded object. Objects
// outside the records folder or with another extension are ignored with
// StatusNone and leave no audit entry, as are redeliveries of uploads that
// were already moved to the archive.
func (p *Pipeline) HandleObject(ctx context.Context, obj ObjectEvent) Result {
	logger := p.deps.Logger.With(zap.String("object", obj.Name))
	logger.Info("detected new file", zap.String("bucket", obj.Bucket), zap.String("md5", obj.MD5))
	if !matches(p.opts.RecordsDir, p.opts.Extension, obj.Name) {
		logger.Info("file is not a records upload, ignoring")
		runsTotal.WithLabelValues(string(StatusNone)).Inc()
		return Result{Status: StatusNone}
	}

	fileName := fileNameOf(obj.Name, p.opts.Extension)
	if prev, ok := p.previous(ctx, fileName); ok && archived(prev) {
		logger.Info("upload was already processed, ignoring redelivery",
			zap.String("status", string(prev.Status)),
			zap.String("step", prev.Step))
		runsTotal.WithLabelValues(string(StatusNone)).Inc()
		return Result{Status: StatusNone}
	}

	return p.run(ctx, fileName, job{
		object:           obj.Name,
		filePath:         ArchivePath(p.opts.RecordsDir, obj.Name, p.now()),
		checkTokenExpiry: true,
	})
}

// Reprocess runs an archived file through the pipeline again. checkTokenExpiry
// false lets backfills accept uploads whose token has since expired.
func (p *Pipeline) Reprocess(ctx context.Context, filePath string, checkTokenExpiry bool) Result {
	fileName := fileNameOf(filePath, p.opts.Extension)
	return p.run(ctx, fileName, job{filePath: filePath, checkTokenExpiry: checkTokenExpiry})
}

func (p *Pipeline) previous(ctx context.Context, fileName string) (model.UploadLog, bool) {
	if p.deps.History == nil {
		return model.UploadLog{}, false
	}
	return p.deps.History.Last(ctx, fileName)
}

// archived reports whether entry proves the upload has left the upload bucket:
// every terminal outcome except a failed move.
func archived(entry model.UploadLog) bool {
	switch entry.Status {
	case model.LogSuccess:
		return true
	case model.LogError:
		return entry.Step != StepMoveFile.String()
	default:
		return false
	}
}

// job is one file to run. object is empty for archived files.
type job struct {
	object           string
	filePath         string
	checkTokenExpiry bool
}

// state carries what earlier steps learned so failures can be audited with it.
type state struct {
	step      Step
	identity  token.Identity
	received  int
	valid     int
	summaries int
}

func (p *Pipeline) run(ctx context.Context, fileName string, j job) Result {
	if p.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.Timeout)
		defer cancel()
	}
	start := time.Now()
	defer func() { runDuration.Observe(time.Since(start).Seconds()) }()

	p.deps.Audit.Record(ctx, fileName, model.UploadLog{Status: model.LogStarted})

	st := &state{}
	if err := p.execute(ctx, j, st); err != nil {
		return p.fail(ctx, fileName, st, err)
	}

	p.deps.Audit.Record(ctx, fileName, model.UploadLog{
		ID:               st.identity.UID,
		Status:           model.LogSuccess,
		UploadCode:       st.identity.UploadCode,
		RecordsReceived:  &st.received,
		ValidatedRecords: &st.valid,
		RecordsSent:      &st.summaries,
	})
	runsTotal.WithLabelValues(string(StatusSuccess)).Inc()
	return Result{Status: StatusSuccess, FilePath: j.filePath}
}

func (p *Pipeline) execute(ctx context.Context, j job, st *state) (stepErr *StepError) {
	defer func() {
		if v := recover(); v != nil {
			stepErr = failAt(st.step, fmt.Errorf("panic: %v", v))
		}
	}()
	logger := p.deps.Logger.With(zap.String("filePath", j.filePath))

	if j.object != "" {
		st.step = StepMoveFile
		if err := ctx.Err(); err != nil {
			return failAt(st.step, err)
		}
		if err := p.deps.Objects.Archive(ctx, j.object, j.filePath); err != nil {
			return failAt(st.step, err)
		}
		logger.Info("moved upload to archive", zap.String("step", st.step.String()), zap.String("object", j.object))
	}

	st.step = StepLoadFile
	if err := ctx.Err(); err != nil {
		return failAt(st.step, err)
	}
	data, err := p.deps.Objects.LoadArchived(ctx, j.filePath)
	if err != nil {
		return failAt(st.step, err)
	}
	var upload model.Upload
	if err := json.Unmarshal(data, &upload); err != nil {
		return failAt(st.step, fmt.Errorf("decode upload: %w", err))
	}
	st.received = len(upload.Records)
	logger.Info("file is loaded", zap.String("step", st.step.String()), zap.Int("records", st.received))

	st.step = StepValidateToken
	if err := ctx.Err(); err != nil {
		return failAt(st.step, err)
	}
	identity, err := p.deps.Tokens.Validate(ctx, upload.Token, j.checkTokenExpiry)
	if err != nil {
		return failAt(st.step, err)
	}
	st.identity = identity
	logger.Info("upload token is valid", zap.String("step", st.step.String()), zap.String("id", identity.UID))

	st.step = StepValidateRecords
	if err := ctx.Err(); err != nil {
		return failAt(st.step, err)
	}
	validated, err := p.deps.Validator.ValidateBatch(ctx, upload.Records)
	if err != nil {
		return failAt(st.step, err)
	}
	summaries := p.deps.Aggregator.Summarize(validated)
	for _, rec := range validated {
		if rec.IsValid {
			st.valid++
		}
	}
	st.summaries = len(summaries)
	logger.Info("records validated",
		zap.String("step", st.step.String()),
		zap.Int("received", st.received),
		zap.Int("valid", st.valid),
		zap.Int("summaries", st.summaries))

	st.step = StepForwardData
	if err := ctx.Err(); err != nil {
		return failAt(st.step, err)
	}
	batch := model.Batch{
		FilePath:   j.filePath,
		Identity:   identity.UID,
		UploadCode: identity.UploadCode,
		Records:    validated,
		Summaries:  summaries,
		Events:     upload.Events,
	}
	if err := p.deps.Forwarder.Forward(ctx, batch); err != nil {
		return failAt(st.step, err)
	}
	summariesTotal.Add(float64(st.summaries))
	logger.Info("data forwarded", zap.String("step", st.step.String()))
	return nil
}

func (p *Pipeline) fail(ctx context.Context, fileName string, st *state, err *StepError) Result {
	p.deps.Logger.Error("pipeline step failed",
		zap.String("fileName", fileName),
		zap.String("step", err.Step.String()),
		zap.Error(err.Err),
		zap.String("stack", err.StackTrace()))
	// The failure entry must be written even when ctx is what failed.
	p.deps.Audit.Record(context.WithoutCancel(ctx), fileName, model.UploadLog{
		ID:              st.identity.UID,
		Status:          model.LogError,
		Step:            err.Step.String(),
		UploadCode:      st.identity.UploadCode,
		ErrorMessage:    err.Message(),
		ErrorStackTrace: err.StackTrace(),
	})
	failuresTotal.WithLabelValues(err.Step.String()).Inc()
	runsTotal.WithLabelValues(string(StatusError)).Inc()
	return Result{Status: StatusError, Message: err.Message()}
}
