package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRawRecordKeepsUnknownFields(t *testing.T) {
	in := `{"msg":"abc","timestamp":1600000000123,"rssi":-67,"modelP":"Pixel 4"}`
	var rec RawRecord
	require.NoError(t, json.Unmarshal([]byte(in), &rec))
	assert.Equal(t, "abc", rec.Msg)
	assert.Equal(t, float64(1600000000123), rec.Timestamp)
	require.Contains(t, rec.Extra, "rssi")
	assert.NotContains(t, rec.Extra, "msg")

	out, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t, in, string(out))
}

func TestRawRecordMissingMsg(t *testing.T) {
	var rec RawRecord
	require.NoError(t, json.Unmarshal([]byte(`{"timestamp":5,"msg":null}`), &rec))
	assert.Empty(t, rec.Msg)
	assert.Nil(t, rec.Extra)
}

func TestContactSummaryFlattensRecord(t *testing.T) {
	s := ContactSummary{
		Record: ValidatedRecord{
			Msg:                "blob",
			Timestamp:          1000,
			TimestampString:    "1 Jan 1970, 00:16:40 UTC",
			ContactID:          "uid-1",
			ContactIDValidFrom: 900,
			ContactIDValidTo:   1800,
			IsValid:            true,
			Extra:              map[string]json.RawMessage{"rssi": json.RawMessage(`-70`)},
		},
		ContactTime: 300,
	}
	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"msg":"blob","timestamp":1000,"timestampString":"1 Jan 1970, 00:16:40 UTC",
		"contactId":"uid-1","contactIdValidFrom":900,"contactIdValidTo":1800,
		"isValid":true,"contactTime":300,"rssi":-70
	}`, string(data))

	var back ContactSummary
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, s.ContactTime, back.ContactTime)
	assert.Equal(t, s.Record.ContactID, back.Record.ContactID)
	assert.Equal(t, s.Record.Timestamp, back.Record.Timestamp)
	assert.JSONEq(t, `-70`, string(back.Record.Extra["rssi"]))
}

func TestInvalidReasonOmittedWhenValid(t *testing.T) {
	data, err := json.Marshal(ValidatedRecord{ContactID: "x", IsValid: true})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "invalidReason")

	data, err = json.Marshal(ValidatedRecord{Msg: "x", InvalidReason: ReasonNoMsg})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"invalidReason":"no_msg"`)
}
