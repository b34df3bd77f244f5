package workplan

import (
	"context"
	"unicode/utf8"
)

// ProgressFunc is called once after every processed item.
type ProgressFunc func(completed, total int)

// BulkSuccess is one successfully filled item.
type BulkSuccess struct {
	Index    int                `json:"index"`
	ID       string             `json:"id"`
	Metadata *GeneratedMetadata `json:"metadata"`
}

// BulkFailure is one item that could not be filled.
type BulkFailure struct {
	Index           int       `json:"index"`
	ID              string    `json:"id"`
	ActivitySnippet string    `json:"activity"`
	Error           string    `json:"error"`
	Kind            ErrorKind `json:"kind"`
	Code            string    `json:"error_code"`
}

// BulkRunReport aggregates a bulk run. Succeeded and Failed are each in
// submission order and together cover every submitted item.
type BulkRunReport struct {
	Total     int           `json:"total"`
	Succeeded []BulkSuccess `json:"succeeded"`
	Failed    []BulkFailure `json:"failed"`
}

// RunBulk processes requests strictly one at a time in submission order.
// An item failure never stops the run, and onProgress (if set) fires exactly
// once per item with completed counting up from 1.
func (o *Orchestrator) RunBulk(ctx context.Context, requests []GenerationRequest, refs *ReferenceSnapshot, onProgress ProgressFunc) *BulkRunReport {
	report := &BulkRunReport{
		Total:     len(requests),
		Succeeded: make([]BulkSuccess, 0, len(requests)),
		Failed:    []BulkFailure{},
	}

	for i, req := range requests {
		metadata, err := o.GenerateOne(ctx, req, refs)
		if err != nil {
			genErr := AsGenerationError(err)
			report.Failed = append(report.Failed, BulkFailure{
				Index:           i,
				ID:              req.ID,
				ActivitySnippet: Snippet(req.ActivityText, ActivitySnippetLength),
				Error:           genErr.Message(),
				Kind:            genErr.Kind,
				Code:            genErr.Code(),
			})
		} else {
			report.Succeeded = append(report.Succeeded, BulkSuccess{
				Index:    i,
				ID:       req.ID,
				Metadata: metadata,
			})
		}

		if onProgress != nil {
			onProgress(i+1, len(requests))
		}
	}

	return report
}

// Snippet returns at most n characters of s.
func Snippet(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
