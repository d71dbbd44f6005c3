package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/rota/app"
	"github.com/kilianp07/rota/core/model"
	"github.com/kilianp07/rota/core/roster"
	"github.com/kilianp07/rota/infra/logger"
	"github.com/kilianp07/rota/pkg/export"
	"github.com/kilianp07/rota/pkg/input"
)

type generateOptions struct {
	roster string
	from   string
	to     string
	out    string
	format string
}

func newGenerateCmd(root *rootOptions) *cobra.Command {
	o := &generateOptions{}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate the roster for a range of months",
		Example: `  rota generate -r roster.yaml --from 2026-03 --to 2026-06
  rota generate -r roster.json --from 2026-03 -f json -o run.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.run(cmd, root)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&o.roster, "roster", "r", "", "roster file (yaml or json)")
	f.StringVar(&o.from, "from", "", "first month, YYYY-MM")
	f.StringVar(&o.to, "to", "", "last month, YYYY-MM (defaults to --from)")
	f.StringVarP(&o.out, "out", "o", "", "output file (defaults to stdout)")
	f.StringVarP(&o.format, "format", "f", "csv", "output format: csv, summary or json")
	_ = cmd.MarkFlagRequired("roster")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}

func (o *generateOptions) run(cmd *cobra.Command, root *rootOptions) error {
	if err := checkFormat(o.format); err != nil {
		return err
	}
	from, err := model.ParseYearMonth(o.from)
	if err != nil {
		return fmt.Errorf("--from: %w", err)
	}
	to := from
	if o.to != "" {
		if to, err = model.ParseYearMonth(o.to); err != nil {
			return fmt.Errorf("--to: %w", err)
		}
	}
	r, err := input.Load(o.roster)
	if err != nil {
		return fmt.Errorf("load roster: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	svc, err := app.New(ctx, root.cfg, app.Options{})
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()

	run, genErr := svc.Generate(ctx, r, from, to)
	if run == nil {
		return genErr
	}
	report(cmd.ErrOrStderr(), run)
	w, err := createOutput(cmd, o.out)
	if err != nil {
		return err
	}
	if err := writeRun(w, o.format, run); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return genErr
}

func checkFormat(f string) error {
	switch f {
	case "csv", "summary", "json":
		return nil
	}
	return fmt.Errorf("unknown format %q", f)
}

func writeRun(w io.Writer, format string, run *roster.Run) error {
	switch format {
	case "json":
		return export.WriteJSON(w, run)
	case "summary":
		return export.WriteSummaryCSV(w, run.Assignments())
	default:
		return export.WriteCSV(w, run.Assignments())
	}
}

// report prints one line per month.
func report(w io.Writer, run *roster.Run) {
	for _, m := range run.Months {
		if m.Status == roster.MonthSolved {
			fmt.Fprintf(w, "%s solved: %s phase, separation %d\n", m.Month, m.Phase, m.Separation)
			continue
		}
		fmt.Fprintf(w, "%s infeasible\n", m.Month)
		if m.Diagnostics == nil {
			continue
		}
		for _, c := range m.Diagnostics.Conflicts {
			fmt.Fprintf(w, "  %s is both mandatory and unavailable on %s\n", c.WorkerID, c.Date)
		}
	}
	fmt.Fprintf(w, "run %s: %d of %d months solved\n", run.ID, run.Solved(), len(run.Months))
}
