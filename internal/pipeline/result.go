package pipeline

// Status is the outcome reported back to whatever triggered a run.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusError   Status = "ERROR"
	StatusNone    Status = "NONE"
)

// Result is returned for every run. The pipeline never returns an error to
// its trigger; failures are reported here and in the audit log.
type Result struct {
	Status   Status `json:"status"`
	Message  string `json:"message,omitempty"`
	FilePath string `json:"filePath,omitempty"`
}

// ObjectEvent describes a newly uploaded object.
type ObjectEvent struct {
	Bucket      string `json:"bucket"`
	Name        string `json:"name"`
	ContentType string `json:"contentType,omitempty"`
	MD5         string `json:"md5,omitempty"`
}
