package models

import "time"

// ComposeRequest is the body of POST /api/compose
type ComposeRequest struct {
	Images            []string `json:"images"`
	Captions          []string `json:"captions"`
	VoiceoverURLs     []string `json:"voiceoverUrls"`
	DurationsInFrames []int    `json:"durationsInFrames,omitempty"`
}

// ComposeResponse returns the job ID of an accepted composition
type ComposeResponse struct {
	JobID  string `json:"jobId"`
	Status string `json:"status"`
}

// StatusRequest is the body of POST /api/compose/status
type StatusRequest struct {
	JobID string `json:"jobId"`
}

// StatusResponse reports the state of a composition job
type StatusResponse struct {
	Status   string   `json:"status"` // "queued", "processing", "done", "error"
	VideoURL *string  `json:"videoUrl,omitempty"`
	Error    *string  `json:"error,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// ErrorResponse is returned with every non-2xx status
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// GenerateRequest asks for images and narration for a list of segments
type GenerateRequest struct {
	Segments []GenerateSegment `json:"segments"`
}

// GenerateSegment is one item of a GenerateRequest
type GenerateSegment struct {
	ImagePrompt string `json:"imagePrompt"`
	Narration   string `json:"narration"`
}

// GeneratedSegment is one result slot of a generation batch
type GeneratedSegment struct {
	ImageURL     string `json:"imageUrl,omitempty"`
	VoiceoverURL string `json:"voiceoverUrl,omitempty"`
	Caption      string `json:"caption,omitempty"`
	Error        string `json:"error,omitempty"`
}

// GenerateResponse keeps the order of the request segments
type GenerateResponse struct {
	BatchID  string             `json:"batchId"`
	Segments []GeneratedSegment `json:"segments"`
}

// JobState is the lifecycle state of a composition job
type JobState string

const (
	JobQueued     JobState = "queued"
	JobProcessing JobState = "processing"
	JobDone       JobState = "done"
	JobError      JobState = "error"
)

// Terminal reports whether no further transition is allowed
func (s JobState) Terminal() bool {
	return s == JobDone || s == JobError
}

// Job tracks an asynchronous composition request
type Job struct {
	ID             string
	State          JobState
	ResultLocation string
	ErrorDetail    string
	Warnings       []string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Clone returns a copy that does not share the warnings slice
func (j Job) Clone() Job {
	if j.Warnings != nil {
		j.Warnings = append([]string(nil), j.Warnings...)
	}
	return j
}
