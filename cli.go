package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/chazu/lignin-solve/pkg/diagram"
	"github.com/chazu/lignin-solve/pkg/solver"
)

// errFailed is returned after a report has been printed for a run that did
// not succeed, so the process exits non-zero without repeating the report.
var errFailed = errors.New("assembly did not solve")

// newLogger creates a logger with timestamp formatting.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

type ctxKey int

const loggerKey ctxKey = 0

func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext returns the command logger, or log.Default() when none
// is attached.
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}

func newRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:          "lignin-solve",
		Short:        "Solve assembly constraint scripts",
		Long:         `lignin-solve evaluates assembly scripts, checks the constraint system, positions the components and reports constraint status and overlaps.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := log.InfoLevel
			if verbose {
				level = log.DebugLevel
			}
			cmd.SetContext(withLogger(cmd.Context(), newLogger(cmd.ErrOrStderr(), level)))
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(newSolveCmd())
	root.AddCommand(newValidateCmd())
	root.AddCommand(newGraphCmd())
	return root
}

// loadApp reads the script and builds an App from the optional config file.
func loadApp(ctx context.Context, script, configPath string) (*App, string, error) {
	source, err := os.ReadFile(script)
	if err != nil {
		return nil, "", fmt.Errorf("read script: %w", err)
	}
	cfg, err := solver.LoadConfig(configPath)
	if err != nil {
		return nil, "", err
	}
	app, err := NewApp(cfg, loggerFromContext(ctx))
	if err != nil {
		return nil, "", err
	}
	return app, string(source), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newSolveCmd() *cobra.Command {
	var (
		configPath string
		asJSON     bool
	)
	cmd := &cobra.Command{
		Use:   "solve FILE",
		Short: "Evaluate, validate and solve an assembly script",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, source, err := loadApp(cmd.Context(), args[0], configPath)
			if err != nil {
				return err
			}
			report, asm := app.Evaluate(source)

			if asJSON {
				if err := writeJSON(cmd.OutOrStdout(), report); err != nil {
					return err
				}
			} else {
				fmt.Fprint(cmd.OutOrStdout(), renderReport(report, asm))
			}
			if !succeeded(report) {
				return errFailed
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "solver config file (.toml, .yaml)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

func newValidateCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "validate FILE",
		Short: "Check an assembly script's constraint system without solving",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, source, err := loadApp(cmd.Context(), args[0], "")
			if err != nil {
				return err
			}
			report, asm := app.Validate(source)

			if asJSON {
				if err := writeJSON(cmd.OutOrStdout(), report); err != nil {
					return err
				}
			} else {
				fmt.Fprint(cmd.OutOrStdout(), renderReport(report, asm))
			}
			if len(report.Errors) > 0 || !report.Validation.Valid {
				return errors.New("constraint system is invalid")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

func newGraphCmd() *cobra.Command {
	var (
		output     string
		configPath string
		detailed   bool
	)
	cmd := &cobra.Command{
		Use:   "graph FILE",
		Short: "Render the constraint graph as DOT or SVG",
		Long:  `Solves the script and renders its constraint graph, coloring each constraint by its post-solve status. The format follows the output extension (.dot or .svg); without -o, DOT is written to stdout.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			app, source, err := loadApp(ctx, args[0], configPath)
			if err != nil {
				return err
			}
			report, asm := app.Evaluate(source)
			if asm == nil {
				for _, e := range report.Errors {
					logger.Error(e.Message, "line", e.Line)
				}
				return errors.New("script failed to evaluate")
			}

			dot := diagram.ToDOT(asm, diagram.Options{Detailed: detailed})
			if output == "" {
				_, err := io.WriteString(cmd.OutOrStdout(), dot)
				return err
			}

			data := []byte(dot)
			switch ext := strings.ToLower(filepath.Ext(output)); ext {
			case ".dot", ".gv":
			case ".svg":
				if data, err = diagram.RenderSVG(ctx, dot); err != nil {
					return err
				}
			default:
				return fmt.Errorf("unsupported graph format %q", ext)
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("write graph: %w", err)
			}
			logger.Info("wrote graph", "path", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (.dot or .svg)")
	cmd.Flags().StringVar(&configPath, "config", "", "solver config file (.toml, .yaml)")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "include values and errors in labels")
	return cmd
}

// succeeded reports whether the script evaluated, validated and solved.
func succeeded(r Report) bool {
	return len(r.Errors) == 0 && r.Validation.Valid && r.Solve != nil && r.Solve.Success
}
