// Package validation decrypts the temp ID in each uploaded record and checks
// that the observation falls inside the ID's validity window.
package validation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/dharsanguruparan/StreetPass/internal/model"
	"github.com/dharsanguruparan/StreetPass/internal/tempid"
)

// millisecondThreshold separates epoch seconds from epoch milliseconds.
const millisecondThreshold = 10_000_000_000

// TimestampLayout renders timestamps for humans.
const TimestampLayout = "2 Jan 2006, 15:04:05 MST"

var recordsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "streetpass_records_validated_total",
	Help: "Validated records by outcome.",
}, []string{"outcome"})

// Decrypter opens a temp ID blob with one key.
type Decrypter interface {
	Decrypt(blob string, key []byte) (tempid.TempID, error)
}

// KeyProvider returns all candidate keys, most likely first.
type KeyProvider interface {
	Keys(ctx context.Context) ([][]byte, error)
}

// Validator classifies records. It keeps no state between calls.
type Validator struct {
	decrypter      Decrypter
	keys           KeyProvider
	enforceValidTo bool
	logger         *zap.Logger
}

// Option configures a Validator.
type Option func(*Validator)

// WithValidToCheck also rejects records observed after the ID expired.
func WithValidToCheck(enabled bool) Option {
	return func(v *Validator) { v.enforceValidTo = enabled }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(v *Validator) { v.logger = logger }
}

// New constructs a Validator.
func New(decrypter Decrypter, keys KeyProvider, opts ...Option) (*Validator, error) {
	if decrypter == nil {
		return nil, errors.New("decrypter is required")
	}
	if keys == nil {
		return nil, errors.New("key provider is required")
	}
	v := &Validator{decrypter: decrypter, keys: keys, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// ValidateBatch loads the key ring once and validates records in order.
func (v *Validator) ValidateBatch(ctx context.Context, records []model.RawRecord) ([]model.ValidatedRecord, error) {
	if len(records) == 0 {
		return []model.ValidatedRecord{}, nil
	}
	keys, err := v.keys.Keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("load encryption keys: %w", err)
	}
	out := make([]model.ValidatedRecord, 0, len(records))
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		validated := v.Validate(rec, keys)
		recordsTotal.WithLabelValues(outcome(validated)).Inc()
		out = append(out, validated)
	}
	return out, nil
}

// Validate classifies one record, trying keys in the given order.
func (v *Validator) Validate(rec model.RawRecord, keys [][]byte) model.ValidatedRecord {
	ts := NormalizeTimestamp(rec.Timestamp)
	out := model.ValidatedRecord{
		Msg:             rec.Msg,
		Timestamp:       ts,
		TimestampString: FormatTimestamp(ts),
		Extra:           rec.Extra,
	}
	if rec.Msg == "" {
		out.InvalidReason = model.ReasonNoMsg
		return out
	}

	for i, key := range keys {
		id, err := v.decrypter.Decrypt(rec.Msg, key)
		if err != nil {
			v.logger.Debug("temp id decryption failed", zap.Int("key", i), zap.Error(err))
			continue
		}
		out.ContactID = id.UID
		out.ContactIDValidFrom = id.ValidFrom
		out.ContactIDValidTo = id.ValidTo
		if ts < id.ValidFrom || (v.enforceValidTo && ts > id.ValidTo) {
			v.logger.Warn("temp id not valid at observation time",
				zap.String("validFrom", FormatTimestamp(id.ValidFrom)),
				zap.String("validTo", FormatTimestamp(id.ValidTo)),
				zap.String("timestamp", out.TimestampString))
			out.InvalidReason = model.ReasonExpiredID
			return out
		}
		out.IsValid = true
		return out
	}

	// Keep the blob so it can still be traced downstream.
	out.ContactID = rec.Msg
	out.InvalidReason = model.ReasonFailedDecryption
	return out
}

// NormalizeTimestamp converts epoch milliseconds to epoch seconds. Values at
// or below the threshold are already seconds.
func NormalizeTimestamp(ts float64) int64 {
	if ts > millisecondThreshold {
		ts /= 1000
	}
	return int64(ts)
}

// FormatTimestamp renders epoch seconds in UTC.
func FormatTimestamp(ts int64) string {
	return time.Unix(ts, 0).UTC().Format(TimestampLayout)
}

func outcome(rec model.ValidatedRecord) string {
	if rec.IsValid {
		return "valid"
	}
	return string(rec.InvalidReason)
}
