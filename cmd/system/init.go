package system

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/Alijeyrad/cogniscreen/config"
	"github.com/Alijeyrad/cogniscreen/internal/app"
	"github.com/Alijeyrad/cogniscreen/pkg/database"
)

func NewInitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Prepare the configured storage backend",
		Long: `Prepare the storage backend selected by storage.driver.

postgres: create the database if missing and the kv_entries table.
sqlite:   create the database file and the kv_entries table.
redis:    check the connection.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, err := cmd.Root().PersistentFlags().GetString("config")
			if err != nil {
				return fmt.Errorf("failed to get config flag: %w", err)
			}
			cfg, err := config.ReadConfig(filepath.Dir(cfgPath))
			if err != nil {
				return fmt.Errorf("failed to read config: %w", err)
			}

			timeout := time.Duration(cfg.Server.TimeoutSeconds) * time.Second
			if timeout <= 0 {
				timeout = 30 * time.Second
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			fmt.Printf("Initializing %s storage...\n", cfg.Storage.Driver)
			if cfg.Storage.Driver == config.DriverPostgres {
				if err := database.CreateDatabase(ctx, cfg.Database); err != nil {
					return fmt.Errorf("failed to create database: %w", err)
				}
			}

			st, release, err := app.OpenStore(ctx, cfg)
			if err != nil {
				return fmt.Errorf("failed to open storage: %w", err)
			}
			defer release()

			if err := st.Ping(ctx); err != nil {
				return fmt.Errorf("storage not reachable: %w", err)
			}
			fmt.Println("Storage initialized successfully.")
			return nil
		},
	}

	return cmd
}
