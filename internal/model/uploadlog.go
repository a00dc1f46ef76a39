package model

import "time"

// LogStatus is the lifecycle of one uploaded file in the audit trail.
type LogStatus string

const (
	LogStarted LogStatus = "STARTED"
	LogSuccess LogStatus = "SUCCESS"
	LogError   LogStatus = "ERROR"
)

// UploadLog is the audit entry for one uploaded file, keyed by FileName.
// Counts are pointers so that STARTED and ERROR entries leave them out.
type UploadLog struct {
	FileName         string    `json:"fileName"`
	ID               string    `json:"id"`
	Status           LogStatus `json:"status"`
	Step             string    `json:"step,omitempty"`
	UploadCode       string    `json:"uploadCode,omitempty"`
	RecordsReceived  *int      `json:"recordsReceived,omitempty"`
	ValidatedRecords *int      `json:"validatedRecords,omitempty"`
	RecordsSent      *int      `json:"recordsSent,omitempty"`
	ErrorMessage     string    `json:"errorMessage,omitempty"`
	ErrorStackTrace  string    `json:"errorStackTrace,omitempty"`
	LoggedTime       time.Time `json:"loggedTime"`
}
