package assess

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Alijeyrad/cogniscreen/config"
	"github.com/Alijeyrad/cogniscreen/internal/app"
	"github.com/Alijeyrad/cogniscreen/internal/terminal"
	"github.com/Alijeyrad/cogniscreen/pkg/logs"
	"github.com/Alijeyrad/cogniscreen/pkg/reqctx"
)

func NewAssessCommand() *cobra.Command {
	var client string

	cmd := &cobra.Command{
		Use:   "assess",
		Short: "Fill in an assessment interactively",
		Long: `Walk through the assessment one field at a time.

Enter "<" to go back a section and "q" to quit. Progress is saved as a
draft after every answer and offered again on the next run for 24 hours.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, err := cmd.Root().PersistentFlags().GetString("config")
			if err != nil {
				return err
			}
			cfg, err := config.ReadConfig(filepath.Dir(cfgPath))
			if err != nil {
				return err
			}
			slog.SetDefault(logs.NewCLI(cfg))

			if client == "" {
				client = cfg.Client.ID
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			ctx = reqctx.WithClientID(ctx, client)

			svcs, release, err := app.OpenServices(ctx, cfg)
			if err != nil {
				return err
			}
			defer release()

			_, err = terminal.NewRunner(svcs.Assessment, client, cmd.InOrStdin(), cmd.OutOrStdout()).Run(ctx)
			if errors.Is(err, terminal.ErrQuit) {
				fmt.Fprintln(cmd.OutOrStdout(), "\nDraft saved. Run this command again to resume.")
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVar(&client, "client", "", "client id to store the assessment under (default client.id from config)")

	return cmd
}
