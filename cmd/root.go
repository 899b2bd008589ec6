package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	assesscmd "github.com/Alijeyrad/cogniscreen/cmd/assess"
	historycmd "github.com/Alijeyrad/cogniscreen/cmd/history"
	httpcmd "github.com/Alijeyrad/cogniscreen/cmd/http"
	systemcmd "github.com/Alijeyrad/cogniscreen/cmd/system"
)

var (
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "cogniscreen",
	Short: "Dementia risk screening intake: assessment form, prediction and history.",
	Long: `Cogniscreen collects a three-section dementia risk assessment (cognitive,
brain imaging, demographics), validates it field by field, autosaves drafts,
submits it to a prediction service with a local fallback estimate, and keeps
a capped history that can be exported as CSV or XLSX.

It runs as an HTTP API for a browser frontend or interactively in a terminal.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global config flag, available for all commands.
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file path")

	// Attach top-level command trees.
	rootCmd.AddCommand(systemcmd.NewSystemCommand())
	rootCmd.AddCommand(httpcmd.NewHTTPCommand())
	rootCmd.AddCommand(assesscmd.NewAssessCommand())
	rootCmd.AddCommand(historycmd.NewHistoryCommand())
}
