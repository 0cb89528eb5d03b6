// Package schema defines the wire types shared by the queue consumer, the
// pipeline, and downstream event listeners.
package schema

// WorkItem is one unit of requested processing. It arrives either as the
// JSON body of a queue message or from a manual API call; both paths feed
// the same pipeline entry point.
type WorkItem struct {
	SourceKey   string `json:"sourceKey"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Email       string `json:"email,omitempty"`
}

// DisplayTitle returns the title or a default label when absent.
func (w WorkItem) DisplayTitle() string {
	if w.Title == "" {
		return "Unknown"
	}
	return w.Title
}

type ProcessingStatus string

const (
	StatusCompleted ProcessingStatus = "completed"
	StatusFailed    ProcessingStatus = "failed"
)

type FailureType string

const (
	FailureTypeValidation FailureType = "validation"
	FailureTypeNotFound   FailureType = "not_found"
	FailureTypeTransfer   FailureType = "transfer"
	FailureTypeContent    FailureType = "content"
)

// ProcessingResult is the terminal outcome of one pipeline run. It is created
// when the run starts, returned once, and never persisted beyond its caller.
type ProcessingResult struct {
	ID          string            `json:"id"`
	Status      ProcessingStatus  `json:"status"`
	OutputKey   string            `json:"output_key,omitempty"`
	FrameCount  int               `json:"frame_count,omitempty"`
	Error       string            `json:"error,omitempty"`
	FailureType FailureType       `json:"failure_type,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

func (r ProcessingResult) Completed() bool { return r.Status == StatusCompleted }

// ProcessingDone is the event published on the result subject after every
// finished run, mirroring the ProcessingResult for downstream listeners.
type ProcessingDone struct {
	ID               string           `json:"id"`
	SourceKey        string           `json:"source_key"`
	OutputKey        string           `json:"output_key,omitempty"`
	FrameCount       int              `json:"frame_count,omitempty"`
	Status           ProcessingStatus `json:"status"`
	Error            string           `json:"error,omitempty"`
	FailureType      FailureType      `json:"failure_type,omitempty"`
	ProcessingTimeMs int64            `json:"processing_time_ms"`
	HappenedAt       int64            `json:"happened_at"`
}
