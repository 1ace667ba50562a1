// Package processor runs conversion batches: every source file is decoded,
// optionally stripped and resized, and encoded on a worker pool, and the
// outcomes are committed in input order.
package processor

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"batchconv/internal/codec"
	"batchconv/internal/failure"
	"batchconv/internal/media"
	"batchconv/internal/metadata"
	"batchconv/internal/raster"
	"batchconv/internal/settings"
)

type Options struct {
	Codecs      *codec.Registry
	Logger      *zap.Logger
	Workers     int
	PreserveICC bool
}

type Processor struct {
	codecs   *codec.Registry
	stripper *metadata.Stripper
	logger   *zap.Logger
	workers  int
}

func New(opts Options) *Processor {
	codecs := opts.Codecs
	if codecs == nil {
		codecs = codec.NewDefaultRegistry()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	stripper := metadata.NewStripper(codecs)
	stripper.PreserveICC = opts.PreserveICC

	return &Processor{
		codecs:   codecs,
		stripper: stripper,
		logger:   logger,
		workers:  workers,
	}
}

// RunBatch converts files with s and returns once every file has a terminal
// outcome. Settings that cannot be translated abort the run before any file
// is touched; every other failure is recorded on that file's outcome.
//
// Cancelling ctx abandons the batch: files that have not started are marked
// failed with failure.KindCanceled, files already in a codec finish normally.
// updates may be nil; RunBatch never closes it.
func (p *Processor) RunBatch(ctx context.Context, files []media.SourceFile, s settings.Settings, updates chan<- ProgressUpdate) (*BatchRun, error) {
	params, err := settings.Translate(s)
	if err != nil {
		return nil, err
	}

	run := &BatchRun{
		ID:        uuid.NewString(),
		Settings:  s,
		Params:    params,
		Outcomes:  make([]Outcome, len(files)),
		StartedAt: time.Now(),
	}
	log := p.logger.With(zap.String("run", run.ID), zap.Stringer("settings", s))
	log.Debug("batch started", zap.Int("files", len(files)))

	send := func(u ProgressUpdate) {
		if updates != nil {
			updates <- u
		}
	}
	if len(files) > 0 {
		send(ProgressUpdate{TotalDelta: len(files)})
	}

	jobs := make(chan int)
	results := make(chan Outcome)

	workers := min(p.workers, max(len(files), 1))
	var wg sync.WaitGroup
	wg.Add(workers + 1)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for idx := range jobs {
				if err := ctx.Err(); err != nil {
					results <- canceled(idx, files[idx], err)
					continue
				}
				results <- p.convert(idx, files[idx], s, params, log)
			}
		}()
	}

	go func() {
		defer wg.Done()
		defer close(jobs)
		for idx := range files {
			if err := ctx.Err(); err != nil {
				for rest := idx; rest < len(files); rest++ {
					results <- canceled(rest, files[rest], err)
				}
				return
			}
			select {
			case jobs <- idx:
			case <-ctx.Done():
				for rest := idx; rest < len(files); rest++ {
					results <- canceled(rest, files[rest], ctx.Err())
				}
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	names := newNamer()
	done := make([]bool, len(files))
	next := 0
	for res := range results {
		run.Outcomes[res.Index] = res
		done[res.Index] = true

		u := ProgressUpdate{ProcessedDelta: 1, Current: res.Source.Name}
		if res.Succeeded() {
			u.BytesSavedDelta = res.Source.Size - res.Size
		} else {
			u.ErrorDelta = 1
			log.Warn("file failed",
				zap.String("file", res.Source.Name),
				zap.Stringer("kind", res.Kind),
				zap.Error(res.Err),
			)
		}
		send(u)

		for next < len(files) && done[next] {
			o := &run.Outcomes[next]
			if o.Succeeded() {
				o.Name = names.assign(o.Source.Name, s.Format, s.Rename)
				log.Debug("file converted",
					zap.String("file", o.Source.Name),
					zap.String("output", o.Name),
					zap.Int64("size", o.Size),
					zap.Duration("took", o.Duration),
				)
			}
			committed := *o
			send(ProgressUpdate{Outcome: &committed})
			next++
		}
	}

	run.FinishedAt = time.Now()
	log.Debug("batch finished",
		zap.Int("succeeded", len(run.Succeeded())),
		zap.Int("failed", len(run.Failed())),
		zap.Duration("took", run.FinishedAt.Sub(run.StartedAt)),
	)
	return run, nil
}

func canceled(idx int, f media.SourceFile, cause error) Outcome {
	out := Outcome{Index: idx, Source: f}
	out.fail(failure.New(failure.KindCanceled, "convert "+f.Name, cause))
	return out
}

// stageKinds classifies a panic by the step it escaped from.
var stageKinds = map[string]failure.Kind{
	"decode": failure.KindDecode,
	"strip":  failure.KindMetadataStrip,
	"resize": failure.KindInvalidDimension,
	"encode": failure.KindEncode,
}

func (p *Processor) convert(idx int, f media.SourceFile, s settings.Settings, params settings.EncodeParameters, log *zap.Logger) (out Outcome) {
	started := time.Now()
	out = Outcome{Index: idx, Source: f}
	op := "convert " + f.Name
	stage := "decode"

	var held []*raster.Raster
	defer func() {
		if rec := recover(); rec != nil {
			log.Error("panic during conversion", zap.String("file", f.Name), zap.String("stage", stage), zap.Any("panic", rec))
			out.fail(failure.Errorf(stageKinds[stage], op, "%s panicked: %v", stage, rec))
		}
		for _, r := range held {
			r.Release()
		}
		out.Duration = time.Since(started)
	}()

	ras, err := p.codecs.Decode(f.Data, f.MIME)
	if err != nil {
		out.fail(err)
		return out
	}
	held = append(held, ras)

	view := f
	if s.RemoveMetadata {
		stage = "strip"
		stripped, err := p.stripper.Strip(f)
		if err != nil {
			out.fail(err)
			return out
		}
		// The stripped bytes become the authoritative input.
		clean, err := p.codecs.Decode(stripped.Data, stripped.MIME)
		if err != nil {
			out.fail(failure.New(failure.KindMetadataStrip, op, err))
			return out
		}
		ras.Release()
		ras = clean
		held = append(held, clean)
		view = stripped
	}

	stage = "resize"
	resized, err := raster.Resize(ras, s.Width)
	if err != nil {
		out.fail(err)
		return out
	}
	if resized != ras {
		ras.Release()
		ras = resized
		held = append(held, resized)
	}

	stage = "encode"
	data, err := p.codecs.Encode(ras, params)
	if err != nil {
		out.fail(err)
		return out
	}

	out.Status = StatusSucceeded
	out.Data = data
	out.Size = int64(len(data))
	out.MIME = s.Format.MIME()
	out.Width = ras.Width()
	out.Height = ras.Height()
	out.Metadata = metadata.Extract(view)
	return out
}
