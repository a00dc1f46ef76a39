package pipeline

//go:generate mockgen -source=pipeline.go -destination=mocks/mocks.go -package=mocks ObjectStore,TokenValidator,RecordValidator,Forwarder,AuditLogger,UploadHistory

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/dharsanguruparan/StreetPass/internal/aggregate"
	"github.com/dharsanguruparan/StreetPass/internal/model"
	"github.com/dharsanguruparan/StreetPass/internal/pipeline/mocks"
	"github.com/dharsanguruparan/StreetPass/internal/tempid"
	"github.com/dharsanguruparan/StreetPass/internal/token"
	"github.com/dharsanguruparan/StreetPass/internal/validation"
)

const (
	recordsDir = "records"
	extension  = ".json"
	objectName = "records/device-42.json"
)

var fixedNow = time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)

type PipelineSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	objects   *mocks.MockObjectStore
	tokens    *mocks.MockTokenValidator
	forwarder *mocks.MockForwarder
	audit     *mocks.MockAuditLogger
	entries   []model.UploadLog
	key       []byte
	pipeline  *Pipeline
}

func TestPipelineSuite(t *testing.T) {
	suite.Run(t, new(PipelineSuite))
}

func (s *PipelineSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.objects = mocks.NewMockObjectStore(s.ctrl)
	s.tokens = mocks.NewMockTokenValidator(s.ctrl)
	s.forwarder = mocks.NewMockForwarder(s.ctrl)
	s.audit = mocks.NewMockAuditLogger(s.ctrl)
	s.entries = nil
	s.audit.EXPECT().Record(gomock.Any(), "device-42", gomock.Any()).
		Do(func(_ context.Context, _ string, entry model.UploadLog) {
			s.entries = append(s.entries, entry)
		}).AnyTimes()

	s.key = make([]byte, tempid.KeySize)
	for i := range s.key {
		s.key[i] = byte(i + 1)
	}
	validator, err := validation.New(tempid.Codec{}, tempid.StaticKeys{s.key})
	s.Require().NoError(err)

	s.pipeline, err = New(Deps{
		Objects:    s.objects,
		Tokens:     s.tokens,
		Validator:  validator,
		Aggregator: aggregate.New(aggregate.DefaultWindow),
		Forwarder:  s.forwarder,
		Audit:      s.audit,
	}, Options{RecordsDir: recordsDir, Extension: extension})
	s.Require().NoError(err)
	s.pipeline.now = func() time.Time { return fixedNow }
}

func (s *PipelineSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *PipelineSuite) blob(uid string) string {
	b, err := tempid.Codec{}.Encrypt(tempid.TempID{UID: uid, ValidFrom: 0, ValidTo: 100_000}, s.key, rand.Reader)
	s.Require().NoError(err)
	return b
}

func (s *PipelineSuite) upload(records ...model.RawRecord) []byte {
	data, err := json.Marshal(model.Upload{Token: "upload-token", Records: records})
	s.Require().NoError(err)
	return data
}

func (s *PipelineSuite) expectArchiveAndLoad(data []byte) {
	s.objects.EXPECT().Archive(gomock.Any(), objectName, "records/20240305/device-42.json").Return(nil)
	s.objects.EXPECT().LoadArchived(gomock.Any(), "records/20240305/device-42.json").Return(data, nil)
}

func (s *PipelineSuite) expectToken() {
	s.tokens.EXPECT().Validate(gomock.Any(), "upload-token", true).
		Return(token.Identity{UID: "uploader-1", UploadCode: "ABC123"}, nil)
}

func (s *PipelineSuite) captureForward() *model.Batch {
	var got model.Batch
	s.forwarder.EXPECT().Forward(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, b model.Batch) error {
			got = b
			return nil
		})
	return &got
}

func (s *PipelineSuite) TestNew() {
	s.Run("missing collaborators are rejected", func() {
		_, err := New(Deps{}, Options{RecordsDir: recordsDir, Extension: extension})
		s.Error(err)
	})
	s.Run("records dir is required", func() {
		_, err := New(Deps{
			Objects:   s.objects,
			Tokens:    s.tokens,
			Validator: &validation.Validator{},
			Forwarder: s.forwarder,
			Audit:     s.audit,
		}, Options{})
		s.Error(err)
	})
}

func (s *PipelineSuite) TestContinuousEncounterIsSummed() {
	blob := s.blob("contact-1")
	s.expectArchiveAndLoad(s.upload(
		model.RawRecord{Msg: blob, Timestamp: 1000, Extra: map[string]json.RawMessage{"rssi": json.RawMessage(`-60`)}},
		model.RawRecord{Msg: blob, Timestamp: 1300},
	))
	s.expectToken()
	batch := s.captureForward()

	res := s.pipeline.HandleObject(context.Background(), ObjectEvent{Bucket: "uploads", Name: objectName})

	s.Equal(Result{Status: StatusSuccess, FilePath: "records/20240305/device-42.json"}, res)
	s.Require().Len(batch.Records, 2)
	for _, rec := range batch.Records {
		s.True(rec.IsValid)
	}
	s.Require().Len(batch.Summaries, 1)
	s.Equal(int64(300), batch.Summaries[0].ContactTime)
	s.Equal(int64(1000), batch.Summaries[0].Record.Timestamp)
	s.Equal(json.RawMessage(`-60`), batch.Summaries[0].Record.Extra["rssi"])
	s.Equal("uploader-1", batch.Identity)
	s.Equal("ABC123", batch.UploadCode)

	s.Require().Len(s.entries, 2)
	s.Equal(model.LogStarted, s.entries[0].Status)
	done := s.entries[1]
	s.Equal(model.LogSuccess, done.Status)
	s.Equal("uploader-1", done.ID)
	s.Equal(2, *done.RecordsReceived)
	s.Equal(2, *done.ValidatedRecords)
	s.Equal(1, *done.RecordsSent)
}

func (s *PipelineSuite) TestLongGapIsNotCounted() {
	blob := s.blob("contact-1")
	s.expectArchiveAndLoad(s.upload(
		model.RawRecord{Msg: blob, Timestamp: 1000},
		model.RawRecord{Msg: blob, Timestamp: 1900},
	))
	s.expectToken()
	batch := s.captureForward()

	res := s.pipeline.HandleObject(context.Background(), ObjectEvent{Name: objectName})

	s.Equal(StatusSuccess, res.Status)
	s.Require().Len(batch.Summaries, 1)
	s.Zero(batch.Summaries[0].ContactTime)
}

func (s *PipelineSuite) TestEmptyMsgIsInvalid() {
	s.expectArchiveAndLoad(s.upload(model.RawRecord{Msg: "", Timestamp: 1000}))
	s.expectToken()
	batch := s.captureForward()

	res := s.pipeline.HandleObject(context.Background(), ObjectEvent{Name: objectName})

	s.Equal(StatusSuccess, res.Status)
	s.Require().Len(batch.Records, 1)
	s.False(batch.Records[0].IsValid)
	s.Equal(model.ReasonNoMsg, batch.Records[0].InvalidReason)
	s.Equal(0, *s.entries[1].ValidatedRecords)
}

func (s *PipelineSuite) TestUnrelatedObjectIsIgnored() {
	for _, name := range []string{"records/device-42.txt", "images/device-42.json", "recordsx/a.json"} {
		res := s.pipeline.HandleObject(context.Background(), ObjectEvent{Name: name})
		s.Equal(Result{Status: StatusNone}, res, name)
	}
	s.Empty(s.entries)
}

func (s *PipelineSuite) TestTokenFailure() {
	s.expectArchiveAndLoad(s.upload(model.RawRecord{Msg: "x", Timestamp: 1}))
	s.tokens.EXPECT().Validate(gomock.Any(), "upload-token", true).Return(token.Identity{}, token.ErrExpired)

	res := s.pipeline.HandleObject(context.Background(), ObjectEvent{Name: objectName})

	s.Equal(StatusError, res.Status)
	s.Equal(token.ErrExpired.Error(), res.Message)
	s.Require().Len(s.entries, 2)
	failed := s.entries[1]
	s.Equal(model.LogError, failed.Status)
	s.Equal("2 - validate upload token", failed.Step)
	s.Equal(token.ErrExpired.Error(), failed.ErrorMessage)
	s.Contains(failed.ErrorStackTrace, "pipeline")
	s.Nil(failed.RecordsReceived)
}

func (s *PipelineSuite) TestMoveFailure() {
	s.objects.EXPECT().Archive(gomock.Any(), objectName, gomock.Any()).Return(errors.New("bucket unavailable"))

	res := s.pipeline.HandleObject(context.Background(), ObjectEvent{Name: objectName})

	s.Equal(Result{Status: StatusError, Message: "bucket unavailable"}, res)
	s.Require().Len(s.entries, 2)
	s.Equal("0 - move file", s.entries[1].Step)
	s.Empty(s.entries[1].ID)
}

func (s *PipelineSuite) TestLoadFailures() {
	s.Run("storage error", func() {
		s.entries = nil
		s.objects.EXPECT().Archive(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
		s.objects.EXPECT().LoadArchived(gomock.Any(), gomock.Any()).Return(nil, errors.New("not found"))
		res := s.pipeline.HandleObject(context.Background(), ObjectEvent{Name: objectName})
		s.Equal(StatusError, res.Status)
		s.Equal("1 - load file", s.entries[1].Step)
	})
	s.Run("malformed json", func() {
		s.entries = nil
		s.objects.EXPECT().Archive(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
		s.objects.EXPECT().LoadArchived(gomock.Any(), gomock.Any()).Return([]byte(`{"token":`), nil)
		res := s.pipeline.HandleObject(context.Background(), ObjectEvent{Name: objectName})
		s.Equal(StatusError, res.Status)
		s.Contains(res.Message, "decode upload")
		s.Equal("1 - load file", s.entries[1].Step)
	})
}

func (s *PipelineSuite) TestForwardFailureKeepsIdentity() {
	s.expectArchiveAndLoad(s.upload(model.RawRecord{Msg: s.blob("c"), Timestamp: 10}))
	s.expectToken()
	s.forwarder.EXPECT().Forward(gomock.Any(), gomock.Any()).Return(errors.New("db down"))

	res := s.pipeline.HandleObject(context.Background(), ObjectEvent{Name: objectName})

	s.Equal(Result{Status: StatusError, Message: "db down"}, res)
	failed := s.entries[len(s.entries)-1]
	s.Equal("4 - forward data", failed.Step)
	s.Equal("uploader-1", failed.ID)
	s.Equal("ABC123", failed.UploadCode)
}

func (s *PipelineSuite) TestReprocessSkipsMoveAndExpiry() {
	path := "records/20240101/device-42.json"
	s.objects.EXPECT().LoadArchived(gomock.Any(), path).Return(s.upload(), nil)
	s.tokens.EXPECT().Validate(gomock.Any(), "upload-token", false).
		Return(token.Identity{UID: "uploader-1"}, nil)
	batch := s.captureForward()

	res := s.pipeline.Reprocess(context.Background(), path, false)

	s.Equal(Result{Status: StatusSuccess, FilePath: path}, res)
	s.Empty(batch.Summaries)
	s.Equal(path, batch.FilePath)
	s.Equal(model.LogSuccess, s.entries[1].Status)
}

func (s *PipelineSuite) TestTimeoutFailsAtRunningStep() {
	s.pipeline.opts.Timeout = 20 * time.Millisecond
	slow := mocks.NewMockRecordValidator(s.ctrl)
	slow.EXPECT().ValidateBatch(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ []model.RawRecord) ([]model.ValidatedRecord, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})
	s.pipeline.deps.Validator = slow
	s.expectArchiveAndLoad(s.upload(model.RawRecord{Msg: "x", Timestamp: 1}))
	s.expectToken()

	res := s.pipeline.HandleObject(context.Background(), ObjectEvent{Name: objectName})

	s.Equal(StatusError, res.Status)
	s.Equal("3 - post-process records", s.entries[len(s.entries)-1].Step)
}

func (s *PipelineSuite) TestCancelledContextStopsBeforeLoad() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := s.pipeline.Reprocess(ctx, "records/20240101/device-42.json", true)

	s.Equal(StatusError, res.Status)
	s.Equal("1 - load file", s.entries[len(s.entries)-1].Step)
}

func (s *PipelineSuite) TestRedeliveryOfArchivedUploadIsIgnored() {
	history := mocks.NewMockUploadHistory(s.ctrl)
	s.pipeline.deps.History = history
	received := 3

	for _, prev := range []model.UploadLog{
		{Status: model.LogSuccess, RecordsReceived: &received},
		{Status: model.LogError, Step: "4 - forward data"},
	} {
		history.EXPECT().Last(gomock.Any(), "device-42").Return(prev, true)

		res := s.pipeline.HandleObject(context.Background(), ObjectEvent{Name: objectName})

		s.Equal(Result{Status: StatusNone}, res, prev.Status)
	}
	s.Empty(s.entries)
}

func (s *PipelineSuite) TestUploadAfterFailedMoveRunsAgain() {
	history := mocks.NewMockUploadHistory(s.ctrl)
	s.pipeline.deps.History = history
	history.EXPECT().Last(gomock.Any(), "device-42").
		Return(model.UploadLog{Status: model.LogError, Step: "0 - move file"}, true)
	s.expectArchiveAndLoad(s.upload())
	s.expectToken()
	s.captureForward()

	res := s.pipeline.HandleObject(context.Background(), ObjectEvent{Name: objectName})

	s.Equal(StatusSuccess, res.Status)
	s.Require().Len(s.entries, 2)
	s.Equal(model.LogStarted, s.entries[0].Status)
}

func (s *PipelineSuite) TestTimeoutCoversMove() {
	s.pipeline.opts.Timeout = 20 * time.Millisecond
	s.objects.EXPECT().Archive(gomock.Any(), objectName, gomock.Any()).
		DoAndReturn(func(ctx context.Context, _, _ string) error {
			<-ctx.Done()
			return ctx.Err()
		})

	res := s.pipeline.HandleObject(context.Background(), ObjectEvent{Name: objectName})

	s.Equal(StatusError, res.Status)
	s.Equal(context.DeadlineExceeded.Error(), res.Message)
	s.Equal("0 - move file", s.entries[len(s.entries)-1].Step)
}

func (s *PipelineSuite) TestPanicIsReportedAtRunningStep() {
	s.expectArchiveAndLoad(s.upload(model.RawRecord{Msg: s.blob("c"), Timestamp: 10}))
	s.expectToken()
	s.forwarder.EXPECT().Forward(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, model.Batch) error {
			panic("nil document")
		})

	var res Result
	s.NotPanics(func() {
		res = s.pipeline.HandleObject(context.Background(), ObjectEvent{Name: objectName})
	})

	s.Equal(Result{Status: StatusError, Message: "panic: nil document"}, res)
	failed := s.entries[len(s.entries)-1]
	s.Equal(model.LogError, failed.Status)
	s.Equal("4 - forward data", failed.Step)
	s.Equal("uploader-1", failed.ID)
	s.NotEmpty(failed.ErrorStackTrace)
}

func TestStepError(t *testing.T) {
	err := failAt(StepValidateToken, token.ErrExpired)
	require.ErrorIs(t, err, ErrToken)
	require.ErrorIs(t, err, token.ErrExpired)
	require.NotErrorIs(t, err, ErrForward)
	require.Equal(t, token.ErrExpired.Error(), err.Message())
	require.Contains(t, err.Error(), "2 - validate upload token")

	var stepErr *StepError
	require.True(t, errors.As(error(err), &stepErr))
	require.Equal(t, StepValidateToken, stepErr.Step)
	require.Equal(t, "step(42)", Step(42).String())
}

func TestArchivePath(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"undated upload gets day folder", "records/abc.json", "records/20240305/abc.json"},
		{"nested upload", "records/sub/abc.json", "records/20240305/sub/abc.json"},
		{"already archived", "records/20231231/abc.json", "records/20231231/abc.json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ArchivePath("records", tt.in, fixedNow))
		})
	}
}

func TestMatchesAndFileName(t *testing.T) {
	require.True(t, matches("records", ".json", "records/a.json"))
	require.False(t, matches("records", ".json", "records/a.json.tmp"))
	require.False(t, matches("records", ".json", "other/records/a.json"))
	require.Equal(t, "a", fileNameOf("records/20240101/a.json", ".json"))
}
