package compiler

import (
	"context"
	"fmt"

	"mini-track/internal/config"
	"mini-track/internal/ctxlog"
	"mini-track/internal/export"
	"mini-track/internal/profiling"
	"mini-track/internal/registry"
	"mini-track/internal/track"

	"github.com/alitto/pond/v2"
)

// Report describes a finished export.
type Report struct {
	Dir     string
	Forward *export.Artifacts
	// Reverse is nil when reverse export was off or failed.
	Reverse *export.Artifacts
	// ReverseErr is why the reverse lap was skipped, if it failed.
	ReverseErr error
	Timings    string
}

// Exporter compiles a grid in both lap directions and writes every
// configured variant to the profile's output directory.
type Exporter struct {
	Lib      *registry.Library
	Profile  config.Profile
	Recorder *profiling.Recorder
	Progress ProgressFunc
}

// Check runs both gates for the forward lap without writing anything.
func (e *Exporter) Check(ctx context.Context, g *track.Grid) (*export.Artifacts, error) {
	pool := NewWorkerPool(e.Profile.Workers, 2)
	defer pool.Shutdown()
	c := New(e.Lib, e.Profile, WithPool(pool), WithRecorder(e.Recorder), WithProgress(e.Progress))
	return c.Compile(ctx, g, false)
}

// Export compiles and writes. A forward failure fails the export; a reverse
// failure is logged and the forward lap is still written.
func (e *Exporter) Export(ctx context.Context, g *track.Grid) (*Report, error) {
	logger := ctxlog.FromContext(ctx).With("track", g.Name)
	ctx = ctxlog.WithLogger(ctx, logger)

	geometry := NewWorkerPool(e.Profile.Workers, 4)
	defer geometry.Shutdown()
	c := New(e.Lib, e.Profile, WithPool(geometry), WithRecorder(e.Recorder), WithProgress(e.Progress))

	directions := []bool{false}
	if e.Profile.Reverse {
		directions = append(directions, true)
	}
	results := make([]*export.Artifacts, len(directions))
	errs := make([]error, len(directions))

	pool := pond.NewPool(len(directions))
	defer pool.StopAndWait()
	laps := pool.NewGroup()
	for i, reverse := range directions {
		laps.Submit(func() {
			results[i], errs[i] = c.Compile(ctx, g, reverse)
		})
	}
	// Only a panicking compile fails the group itself.
	if err := laps.Wait(); err != nil {
		return nil, fmt.Errorf("compile laps: %w", err)
	}

	if errs[0] != nil {
		return nil, errs[0]
	}
	report := &Report{Dir: e.Profile.OutputDir, Forward: results[0]}
	if len(directions) > 1 {
		if errs[1] != nil {
			logger.Warn("Reverse lap failed; exporting forward only.", "error", errs[1])
			report.ReverseErr = errs[1]
		} else {
			report.Reverse = results[1]
		}
	}

	out := export.Directory{Root: e.Profile.OutputDir}
	stop := e.Recorder.Track("export.Write")
	err := out.Write(ctx, report.Forward, report.Reverse, e.Profile.Variants, e.Lib, e.Profile.Geometry.PageSize)
	stop()
	if err != nil {
		return nil, fmt.Errorf("write export: %w", err)
	}
	if e.Recorder != nil {
		report.Timings = e.Recorder.TopN(8)
		logger.Debug("Export timings.", "top", report.Timings)
	}
	logger.Info("Export finished.", "dir", out.Root, "variants", len(e.Profile.Variants), "reverse", report.Reverse != nil)
	return report, nil
}
