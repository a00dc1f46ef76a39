package pipeline

import (
	"path"
	"strings"
	"time"
)

// matches reports whether name is a records upload the pipeline handles.
func matches(recordsDir, ext, name string) bool {
	return strings.HasPrefix(name, recordsDir+"/") && strings.HasSuffix(name, ext)
}

// fileNameOf is the audit key for an object: its base name without extension.
func fileNameOf(name, ext string) string {
	return strings.TrimSuffix(path.Base(name), ext)
}

// ArchivePath returns where an upload is kept once processed. Uploads that
// are not yet inside a dated folder (records/20...) go under
// records/<YYYYMMDD>/ for the processing day.
func ArchivePath(recordsDir, name string, now time.Time) string {
	if strings.HasPrefix(name, recordsDir+"/20") {
		return name
	}
	dated := recordsDir + "/" + now.UTC().Format("20060102")
	return strings.Replace(name, recordsDir, dated, 1)
}
