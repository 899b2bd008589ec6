package history

import (
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Alijeyrad/cogniscreen/config"
	"github.com/Alijeyrad/cogniscreen/internal/app"
	"github.com/Alijeyrad/cogniscreen/internal/history"
	"github.com/Alijeyrad/cogniscreen/internal/terminal"
	"github.com/Alijeyrad/cogniscreen/pkg/logs"
)

type options struct {
	client string
}

func NewHistoryCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect, export and clear past assessments",
	}
	cmd.PersistentFlags().StringVar(&opts.client, "client", "", "client id (default client.id from config)")

	cmd.AddCommand(newListCommand(opts))
	cmd.AddCommand(newShowCommand(opts))
	cmd.AddCommand(newExportCommand(opts))
	cmd.AddCommand(newClearCommand(opts))

	return cmd
}

// open reads config and builds the services for a history subcommand.
func open(cmd *cobra.Command, opts *options) (app.Services, string, func() error, error) {
	cfgPath, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return app.Services{}, "", nil, err
	}
	cfg, err := config.ReadConfig(filepath.Dir(cfgPath))
	if err != nil {
		return app.Services{}, "", nil, err
	}
	slog.SetDefault(logs.NewCLI(cfg))

	client := opts.client
	if client == "" {
		client = cfg.Client.ID
	}

	svcs, release, err := app.OpenServices(cmd.Context(), cfg)
	if err != nil {
		return app.Services{}, "", nil, err
	}
	return svcs, client, release, nil
}

func newListCommand(opts *options) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded assessments, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			svcs, client, release, err := open(cmd, opts)
			if err != nil {
				return err
			}
			defer release()

			records, err := svcs.History.List(cmd.Context(), client, limit)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No assessments recorded yet.")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tWHEN\tRISK\tCONFIDENCE\tSOURCE")
			for _, rec := range records {
				row := history.Rows([]history.Record{rec}, nil)[0]
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					rec.ID, humanize.Time(rec.Time()), row[1], row[2], rec.Source)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "maximum records to show (0 = all)")
	return cmd
}

func newShowCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one recorded assessment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svcs, client, release, err := open(cmd, opts)
			if err != nil {
				return err
			}
			defer release()

			rec, err := svcs.History.Get(cmd.Context(), client, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Recorded %s (%s)\n", rec.Time().Local().Format("Jan 2, 2006, 03:04 PM"), humanize.Time(rec.Time()))
			for _, name := range sortedKeys(rec.Data) {
				fmt.Fprintf(out, "  %-16s %s\n", name, rec.Data[name])
			}
			terminal.PrintResult(out, rec.Result)
			return nil
		},
	}
}

func newExportCommand(opts *options) *cobra.Command {
	var (
		format string
		out    string
		upload bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the history as CSV or XLSX",
		Long: `Export the history as CSV or XLSX.

The file is written to --out, or to the default dated file name in the
current directory. With --upload it is stored in S3 instead and a
presigned download URL is printed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			svcs, client, release, err := open(cmd, opts)
			if err != nil {
				return err
			}
			defer release()

			if upload {
				up, err := svcs.History.Upload(cmd.Context(), client, format)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %s\n%s\n", up.Key, up.URL)
				return nil
			}

			return writeExport(cmd, svcs, client, format, out)
		},
	}

	cmd.Flags().StringVar(&format, "format", history.FormatCSV, "export format: csv or xlsx")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default dementia_assessment_history_<date>.<format>)")
	cmd.Flags().BoolVar(&upload, "upload", false, "upload to S3 and print a download URL")
	return cmd
}

func writeExport(cmd *cobra.Command, svcs app.Services, client, format, out string) error {
	exp, err := svcs.History.Export(cmd.Context(), client, format)
	if err != nil {
		return err
	}
	if out == "" {
		out = exp.Name
	}
	if out == "-" {
		_, err := cmd.OutOrStdout().Write(exp.Body)
		return err
	}
	if err := os.WriteFile(out, exp.Body, 0o644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%s)\n", out, humanize.Bytes(uint64(len(exp.Body))))
	return nil
}

func newClearCommand(opts *options) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all recorded assessments",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to clear history without --yes")
			}
			svcs, client, release, err := open(cmd, opts)
			if err != nil {
				return err
			}
			defer release()

			if err := svcs.History.Clear(cmd.Context(), client); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "History cleared.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deletion")
	return cmd
}

func sortedKeys(m map[string]string) []string {
	return slices.Sorted(maps.Keys(m))
}
