package system

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"
)

const (
	formatMarkdown = "markdown"
	formatMan      = "man"
)

func NewGenDocsCommand() *cobra.Command {
	var (
		outDir string
		format string
	)

	cmd := &cobra.Command{
		Use:   "gendocs",
		Short: "Generate reference docs for the cogniscreen CLI",
		Long: `Generate reference pages for every cogniscreen command, including the
assess and history trees used by clinicians at the terminal.

Markdown pages carry front matter (title, command, weight) so they can be
dropped into a static site; man pages are written to section 1.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			root := cmd.Root()
			root.DisableAutoGenTag = true

			dir, err := filepath.Abs(outDir)
			if err != nil {
				return fmt.Errorf("resolve %q: %w", outDir, err)
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create docs directory %q: %w", dir, err)
			}

			switch format {
			case formatMarkdown:
				err = doc.GenMarkdownTreeCustom(root, dir, frontMatter(root.Name()), pageLink)
			case formatMan:
				err = doc.GenManTree(root, &doc.GenManHeader{
					Title:   strings.ToUpper(root.Name()),
					Section: "1",
					Source:  root.Name(),
					Manual:  "Cogniscreen Manual",
				}, dir)
			default:
				return fmt.Errorf("unsupported docs format %q (want %s or %s)", format, formatMarkdown, formatMan)
			}
			if err != nil {
				return fmt.Errorf("generate %s docs: %w", format, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s docs for %d commands written to %s\n", format, countCommands(root), dir)
			return nil
		},
	}

	cmd.Flags().StringVar(&outDir, "outdir", "docs/cli", "output directory")
	cmd.Flags().StringVar(&format, "format", formatMarkdown, "docs format: markdown or man")

	return cmd
}

// frontMatter names each page after its command path. Top-level commands
// sort before their subcommands.
func frontMatter(rootName string) func(string) string {
	return func(filename string) string {
		slug := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
		path := strings.ReplaceAll(slug, "_", " ")
		title := strings.TrimSpace(strings.TrimPrefix(path, rootName))
		if title == "" {
			title = rootName
		}
		weight := 10 * strings.Count(slug, "_")
		return fmt.Sprintf("---\ntitle: %q\ncommand: %q\nweight: %d\n---\n\n", title, path, weight)
	}
}

func pageLink(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name)) + "/"
}

func countCommands(c *cobra.Command) int {
	n := 1
	for _, sub := range c.Commands() {
		if sub.IsAvailableCommand() && !sub.IsAdditionalHelpTopicCommand() {
			n += countCommands(sub)
		}
	}
	return n
}
