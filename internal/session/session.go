// Package session keeps the state of one interactive batch: the files the
// user has added, each file's conversion status and the latest outcomes.
package session

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"batchconv/internal/media"
	"batchconv/internal/processor"
	"batchconv/internal/settings"
)

// ErrAbandoned is returned by Convert when the session was cleared or a newer
// run started before the batch finished. Its results were discarded.
var ErrAbandoned = errors.New("batch abandoned")

type FileStatus int

const (
	StatusWaiting FileStatus = iota
	StatusConverting
	StatusCompleted
	StatusError
)

func (s FileStatus) String() string {
	switch s {
	case StatusConverting:
		return "converting"
	case StatusCompleted:
		return "completed"
	case StatusError:
		return "error"
	default:
		return "waiting"
	}
}

// Session is safe for concurrent use. Outcomes are written only by the
// commit path of the current run; Clear and Remove are the only other
// writers.
type Session struct {
	proc   *processor.Processor
	logger *zap.Logger

	mu         sync.Mutex
	files      []media.SourceFile
	status     map[string]FileStatus
	outcomes   map[string]processor.Outcome
	generation uint64
	cancel     context.CancelFunc
}

func New(proc *processor.Processor, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		proc:     proc,
		logger:   logger,
		status:   make(map[string]FileStatus),
		outcomes: make(map[string]processor.Outcome),
	}
}

// Add appends files not already present (by ID) and returns how many were
// added.
func (s *Session) Add(files ...media.SourceFile) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for _, f := range files {
		if _, ok := s.status[f.ID]; ok {
			continue
		}
		s.files = append(s.files, f)
		s.status[f.ID] = StatusWaiting
		added++
	}
	return added
}

// Remove drops a file and its outcome. A run already converting it keeps
// going, but its result for this file is discarded.
func (s *Session) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, f := range s.files {
		if f.ID != id {
			continue
		}
		s.files = append(s.files[:i:i], s.files[i+1:]...)
		delete(s.status, id)
		delete(s.outcomes, id)
		return true
	}
	return false
}

// Clear empties the session and abandons any running batch.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.files = nil
	s.status = make(map[string]FileStatus)
	s.outcomes = make(map[string]processor.Outcome)
}

func (s *Session) Files() []media.SourceFile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]media.SourceFile(nil), s.files...)
}

func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files)
}

func (s *Session) Status(id string) (FileStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.status[id]
	return st, ok
}

func (s *Session) Outcome(id string) (processor.Outcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.outcomes[id]
	return o, ok
}

// Outcomes returns the recorded outcomes in file order.
func (s *Session) Outcomes() []processor.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]processor.Outcome, 0, len(s.outcomes))
	for _, f := range s.files {
		if o, ok := s.outcomes[f.ID]; ok {
			out = append(out, o)
		}
	}
	return out
}

// Convert runs every file in the session through the processor. Starting a
// new run abandons the previous one. Updates from the run are forwarded to
// updates (which may be nil) until the run is abandoned; Convert never
// closes it.
//
// A settings error is returned as is and leaves every file waiting, so the
// batch can be retried with corrected settings.
func (s *Session) Convert(ctx context.Context, st settings.Settings, updates chan<- processor.ProgressUpdate) (*processor.BatchRun, error) {
	s.mu.Lock()
	s.generation++
	gen := s.generation
	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	files := append([]media.SourceFile(nil), s.files...)
	for _, f := range files {
		s.status[f.ID] = StatusConverting
		delete(s.outcomes, f.ID)
	}
	s.mu.Unlock()
	defer cancel()

	log := s.logger.With(zap.Uint64("generation", gen))
	log.Debug("session convert", zap.Int("files", len(files)))

	inner := make(chan processor.ProgressUpdate, 16)
	forwarded := make(chan struct{})
	go func() {
		defer close(forwarded)
		for u := range inner {
			if u.Outcome != nil {
				s.commit(gen, *u.Outcome)
			}
			if updates != nil && s.current(gen) {
				updates <- u
			}
		}
	}()

	run, err := s.proc.RunBatch(ctx, files, st, inner)
	close(inner)
	<-forwarded

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		log.Debug("discarding abandoned run")
		return run, ErrAbandoned
	}
	s.cancel = nil
	if err != nil {
		for _, f := range files {
			if _, ok := s.status[f.ID]; ok {
				s.status[f.ID] = StatusWaiting
			}
		}
		return nil, err
	}
	return run, nil
}

func (s *Session) current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gen == s.generation
}

func (s *Session) commit(gen uint64, o processor.Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		return
	}
	id := o.Source.ID
	if _, ok := s.status[id]; !ok {
		return
	}
	s.outcomes[id] = o
	if o.Succeeded() {
		s.status[id] = StatusCompleted
	} else {
		s.status[id] = StatusError
	}
}
