package http

import "github.com/spf13/cobra"

// NewHTTPCommand groups the commands that serve the assessment API.
func NewHTTPCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "http",
		Short: "Serve the assessment and history API",
		Long: `Serve the assessment form, submission and history endpoints over HTTP.

Every /api/v1/assessment/sessions and /api/v1/history route is scoped by the
X-Client-Id header. Health probes live at /livez, /readyz and /startupz.`,
	}

	cmd.AddCommand(NewStartCommand())

	return cmd
}
