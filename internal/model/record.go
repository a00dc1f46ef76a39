// Package model contains the record types shared by the pipeline stages.
package model

import (
	"encoding/json"
	"fmt"
)

// InvalidReason explains why a record failed validation. The empty value
// means the record is valid.
type InvalidReason string

const (
	ReasonNone             InvalidReason = ""
	ReasonNoMsg            InvalidReason = "no_msg"
	ReasonExpiredID        InvalidReason = "expired_id"
	ReasonFailedDecryption InvalidReason = "failed_decryption"
)

// RawRecord is one beacon observation exactly as uploaded. Fields other than
// msg and timestamp are kept in Extra and written back out untouched.
type RawRecord struct {
	Msg       string
	Timestamp float64
	Extra     map[string]json.RawMessage
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *RawRecord) UnmarshalJSON(data []byte) error {
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	var out RawRecord
	if err := take(fields, "msg", &out.Msg); err != nil {
		return err
	}
	if err := take(fields, "timestamp", &out.Timestamp); err != nil {
		return err
	}
	if len(fields) > 0 {
		out.Extra = fields
	}
	*r = out
	return nil
}

// MarshalJSON implements json.Marshaler.
func (r RawRecord) MarshalJSON() ([]byte, error) {
	fields := withExtra(r.Extra)
	fields["msg"] = r.Msg
	fields["timestamp"] = r.Timestamp
	return json.Marshal(fields)
}

// ValidatedRecord is a RawRecord after decryption and validation. It is
// created once per raw record and not modified afterwards.
type ValidatedRecord struct {
	Msg                string
	Timestamp          int64
	TimestampString    string
	ContactID          string
	ContactIDValidFrom int64
	ContactIDValidTo   int64
	IsValid            bool
	InvalidReason      InvalidReason
	Extra              map[string]json.RawMessage
}

func (r ValidatedRecord) fields() map[string]any {
	fields := withExtra(r.Extra)
	fields["msg"] = r.Msg
	fields["timestamp"] = r.Timestamp
	fields["timestampString"] = r.TimestampString
	fields["contactId"] = r.ContactID
	fields["contactIdValidFrom"] = r.ContactIDValidFrom
	fields["contactIdValidTo"] = r.ContactIDValidTo
	fields["isValid"] = r.IsValid
	if r.InvalidReason != ReasonNone {
		fields["invalidReason"] = r.InvalidReason
	}
	return fields
}

// MarshalJSON implements json.Marshaler.
func (r ValidatedRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.fields())
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *ValidatedRecord) UnmarshalJSON(data []byte) error {
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	out, err := validatedFromFields(fields)
	if err != nil {
		return err
	}
	*r = out
	return nil
}

func validatedFromFields(fields map[string]json.RawMessage) (ValidatedRecord, error) {
	var (
		out    ValidatedRecord
		ts     float64
		from   float64
		to     float64
		reason string
	)
	steps := []error{
		take(fields, "msg", &out.Msg),
		take(fields, "timestamp", &ts),
		take(fields, "timestampString", &out.TimestampString),
		take(fields, "contactId", &out.ContactID),
		take(fields, "contactIdValidFrom", &from),
		take(fields, "contactIdValidTo", &to),
		take(fields, "isValid", &out.IsValid),
		take(fields, "invalidReason", &reason),
	}
	for _, err := range steps {
		if err != nil {
			return ValidatedRecord{}, err
		}
	}
	out.Timestamp = int64(ts)
	out.ContactIDValidFrom = int64(from)
	out.ContactIDValidTo = int64(to)
	out.InvalidReason = InvalidReason(reason)
	if len(fields) > 0 {
		out.Extra = fields
	}
	return out, nil
}

// ContactSummary is the earliest record seen for one contact in a batch,
// annotated with the accumulated exposure in seconds.
type ContactSummary struct {
	Record      ValidatedRecord
	ContactTime int64
}

// MarshalJSON flattens the record and adds contactTime.
func (s ContactSummary) MarshalJSON() ([]byte, error) {
	fields := s.Record.fields()
	fields["contactTime"] = s.ContactTime
	return json.Marshal(fields)
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *ContactSummary) UnmarshalJSON(data []byte) error {
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	var contactTime float64
	if err := take(fields, "contactTime", &contactTime); err != nil {
		return err
	}
	rec, err := validatedFromFields(fields)
	if err != nil {
		return err
	}
	*s = ContactSummary{Record: rec, ContactTime: int64(contactTime)}
	return nil
}

// HeartBeatEvent is a device heartbeat uploaded next to the records. The
// pipeline only passes events through to the forwarder.
type HeartBeatEvent struct {
	Timestamp float64 `json:"timestamp"`
	Msg       string  `json:"msg,omitempty"`
}

// Upload is the body of an uploaded records file.
type Upload struct {
	Token   string           `json:"token"`
	Records []RawRecord      `json:"records"`
	Events  []HeartBeatEvent `json:"events"`
}

// Batch is what the pipeline hands to a forwarder once records are
// validated and aggregated.
type Batch struct {
	FilePath   string            `json:"filePath"`
	Identity   string            `json:"id"`
	UploadCode string            `json:"uploadCode"`
	Records    []ValidatedRecord `json:"records"`
	Summaries  []ContactSummary  `json:"summaries"`
	Events     []HeartBeatEvent  `json:"events"`
}

func withExtra(extra map[string]json.RawMessage) map[string]any {
	fields := make(map[string]any, len(extra)+9)
	for k, v := range extra {
		fields[k] = v
	}
	return fields
}

// take removes a known key from fields so that whatever is left over ends
// up in Extra. A JSON null leaves dst untouched.
func take(fields map[string]json.RawMessage, key string, dst any) error {
	raw, ok := fields[key]
	if !ok {
		return nil
	}
	delete(fields, key)
	if string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}
