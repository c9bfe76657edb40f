package extract

import (
	"path/filepath"
	"strconv"
	"time"
)

// FileFacts describes what the ingestion already knows about a file before
// any extractor runs.
type FileFacts struct {
	OriginalFilename string
	MimeType         string
	SizeBytes        int64
	ModTime          time.Time
}

// Generic returns the metadata recorded for every file regardless of kind.
func Generic(facts FileFacts) map[string]string {
	values := map[string]string{
		"file.name":      facts.OriginalFilename,
		"file.extension": filepath.Ext(facts.OriginalFilename),
		"file.size":      strconv.FormatInt(facts.SizeBytes, 10),
	}

	if facts.MimeType != "" {
		values["file.mime_type"] = facts.MimeType
	}
	if !facts.ModTime.IsZero() {
		values["file.modified_at"] = facts.ModTime.UTC().Format(time.RFC3339)
		// Creation time is not portably available, the modification time is
		// the best stand-in we have.
		values["file.created_at"] = facts.ModTime.UTC().Format(time.RFC3339)
	}

	return values
}
