package processor

import (
	"time"

	"batchconv/internal/failure"
	"batchconv/internal/media"
	"batchconv/internal/settings"
)

type Status int

const (
	StatusFailed Status = iota
	StatusSucceeded
)

func (s Status) String() string {
	if s == StatusSucceeded {
		return "succeeded"
	}
	return "failed"
}

// Outcome is the terminal result of converting one source file.
type Outcome struct {
	Index  int
	Source media.SourceFile
	Status Status

	// Set on success. Name is assigned by the collector in input order.
	Data     []byte
	MIME     string
	Size     int64
	Name     string
	Width    int
	Height   int
	Metadata map[string]string

	// Set on failure.
	Kind    failure.Kind
	Message string
	Err     error

	Duration time.Duration
}

func (o Outcome) Succeeded() bool { return o.Status == StatusSucceeded }

func (o *Outcome) fail(err error) {
	o.Status = StatusFailed
	o.Err = err
	o.Kind = failure.KindOf(err)
	o.Message = err.Error()
	o.Data = nil
	o.Size = 0
}

// BatchRun holds one outcome per source file, in input order.
type BatchRun struct {
	ID         string
	Settings   settings.Settings
	Params     settings.EncodeParameters
	Outcomes   []Outcome
	StartedAt  time.Time
	FinishedAt time.Time
}

func (b *BatchRun) Succeeded() []Outcome { return b.filter(StatusSucceeded) }

func (b *BatchRun) Failed() []Outcome { return b.filter(StatusFailed) }

// BytesSaved is the total source size minus output size over successful files.
// It is negative when the outputs grew.
func (b *BatchRun) BytesSaved() int64 {
	var saved int64
	for _, o := range b.Outcomes {
		if o.Succeeded() {
			saved += o.Source.Size - o.Size
		}
	}
	return saved
}

func (b *BatchRun) filter(status Status) []Outcome {
	out := []Outcome{}
	for _, o := range b.Outcomes {
		if o.Status == status {
			out = append(out, o)
		}
	}
	return out
}

// ProgressUpdate is streamed while a batch runs. Counter fields are deltas;
// Outcome is set once a file's outcome is committed, which happens in input
// order.
type ProgressUpdate struct {
	TotalDelta      int
	ProcessedDelta  int
	ErrorDelta      int
	BytesSavedDelta int64
	Current         string
	Outcome         *Outcome
}
