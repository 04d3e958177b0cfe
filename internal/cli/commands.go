package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"mini-track/internal/compiler"
	"mini-track/internal/config"
	"mini-track/internal/ctxlog"
	"mini-track/internal/export"
	"mini-track/internal/profiling"
	"mini-track/internal/registry"
	"mini-track/internal/track"
	"mini-track/pkg/moduledef"

	"github.com/spf13/cobra"
)

// session is what every compiling command needs once flags are parsed.
type session struct {
	ctx      context.Context
	profile  config.Profile
	lib      *registry.Library
	grid     *track.Grid
	recorder *profiling.Recorder
}

func (s *session) exporter() *compiler.Exporter {
	logger := ctxlog.FromContext(s.ctx)
	return &compiler.Exporter{
		Lib:      s.lib,
		Profile:  s.profile,
		Recorder: s.recorder,
		Progress: func(p compiler.Progress) {
			logger.Debug("Stage done.", "stage", p.Stage, "done", p.Done, "total", p.Total, "reverse", p.Reverse)
		},
	}
}

// open validates flags and loads the profile, the module library and the
// track, in that order.
func open(cmd *cobra.Command, cfg *Config, outW io.Writer) (*session, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(cmd.Context(), logger)

	prof := config.Default()
	if cfg.ProfilePath != "" {
		var err error
		if prof, err = config.LoadProfile(cfg.ProfilePath); err != nil {
			return nil, &ExitError{Code: ExitUsage, Message: err.Error()}
		}
	}
	if cfg.OutputDir != "" {
		prof.OutputDir = cfg.OutputDir
	}
	if cfg.Workers > 0 {
		prof.Workers = cfg.Workers
	}
	if cfg.NoReverse {
		prof.Reverse = false
	}
	logger.Debug("Profile ready.", "output_dir", prof.OutputDir, "variants", len(prof.Variants), "reverse", prof.Reverse, "workers", prof.Workers)

	lib, err := registry.LoadLibrary(cfg.ModulesPath)
	if err != nil {
		return nil, err
	}
	footprint := func(id moduledef.ID) ([][2]int, error) {
		m, err := lib.Module(id)
		if err != nil {
			return nil, err
		}
		return m.Footprint(), nil
	}
	g, err := track.Load(cfg.TrackPath, footprint)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &ExitError{Code: ExitNotFound, Message: err.Error()}
		}
		return nil, err
	}
	if g.Name == "" {
		g.Name = trimExt(filepath.Base(cfg.TrackPath))
	}
	logger.Info("Track loaded.", "track", g.Name, "width", g.Width, "height", g.Height, "placements", len(g.Placements()))
	return &session{ctx: ctx, profile: prof, lib: lib, grid: g, recorder: profiling.NewRecorder()}, nil
}

func trimExt(name string) string {
	return name[:len(name)-len(filepath.Ext(name))]
}

func compileCmd(cfg *Config, outW io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compile [TRACK]",
		Short: "compile a track and write every variant",
		Long:  "Compiles the track in both lap directions and writes every profile variant to the output directory.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := trackArg(cfg, args); err != nil {
				return err
			}
			s, err := open(cmd, cfg, outW)
			if err != nil {
				return err
			}
			report, err := s.exporter().Export(s.ctx, s.grid)
			if err != nil {
				return err
			}
			directions := "forward"
			if report.Reverse != nil {
				directions = "forward, reverse"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%s)\n", report.Dir, directions)
			if report.ReverseErr != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "reverse skipped: %v\n", report.ReverseErr)
			}
			return nil
		},
	}
	addTrackFlag(cmd, cfg)
	cmd.Flags().StringVarP(&cfg.OutputDir, "out", "o", "", "Output directory. Overrides the profile.")
	cmd.Flags().BoolVar(&cfg.NoReverse, "no-reverse", false, "Skip the reverse lap.")
	return cmd
}

func checkCmd(cfg *Config, outW io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [TRACK]",
		Short: "validate a track without writing anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := trackArg(cfg, args); err != nil {
				return err
			}
			s, err := open(cmd, cfg, outW)
			if err != nil {
				return err
			}
			a, err := s.exporter().Check(s.ctx, s.grid)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %s, %d zones, %d AI nodes, lap %.1f\n",
				a.Name, len(a.Zones), len(a.AI.Nodes), a.Positions.Length)
			return nil
		},
	}
	addTrackFlag(cmd, cfg)
	return cmd
}

func inspectCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect DIR",
		Short: "summarise an exported variant directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			dir := args[0]
			dirs := []string{dir}
			if st, err := os.Stat(filepath.Join(dir, export.ReverseDir)); err == nil && st.IsDir() {
				dirs = append(dirs, filepath.Join(dir, export.ReverseDir))
			}
			for _, d := range dirs {
				c, err := export.ReadDir(d)
				if err != nil {
					if errors.Is(err, fs.ErrNotExist) {
						return &ExitError{Code: ExitNotFound, Message: err.Error()}
					}
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", d, c.Summary())
			}
			return nil
		},
	}
}
