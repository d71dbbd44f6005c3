package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kilianp07/rota/infra/store"
	"github.com/kilianp07/rota/pkg/export"
)

type exportOptions struct {
	run    string
	out    string
	format string
}

func newExportCmd(root *rootOptions) *cobra.Command {
	o := &exportOptions{}
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export an archived run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.export(cmd, root)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.run, "run", "", "run id (defaults to the latest run)")
	f.StringVarP(&o.out, "out", "o", "", "output file (defaults to stdout)")
	f.StringVarP(&o.format, "format", "f", "csv", "output format: csv, summary or json")
	return cmd
}

func (o *exportOptions) export(cmd *cobra.Command, root *rootOptions) error {
	if err := checkFormat(o.format); err != nil {
		return err
	}
	st, err := root.openStore()
	if err != nil {
		return err
	}
	defer st.Close()
	ctx := cmd.Context()

	id := o.run
	if id == "" {
		latest, err := st.Latest(ctx)
		if err != nil {
			return err
		}
		id = latest.ID
	}
	d, err := st.Detail(ctx, id)
	if err != nil {
		return err
	}

	w, err := createOutput(cmd, o.out)
	if err != nil {
		return err
	}
	defer w.Close()
	switch o.format {
	case "json":
		return writeDetail(w, d)
	case "summary":
		return export.WriteSummaryCSV(w, d.Shifts)
	default:
		return export.WriteCSV(w, d.Shifts)
	}
}

func writeDetail(w io.Writer, d store.RunDetail) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("encode run: %w", err)
	}
	return nil
}
