// Package cli implements invoicectl, the operator tool for rendering invoice
// drafts, converting them to PDF and running maintenance tasks.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"invoice-studio/internal/app"
	"invoice-studio/internal/invoice"
	"invoice-studio/internal/logger"

	"github.com/spf13/cobra"
)

var version = "1.0.0"

// Deps are what the commands need. Migrate and JWTSecret are only used by
// the migrate and token commands, so a local render-only setup may leave
// them empty.
type Deps struct {
	Service   app.ApplicationService
	Migrate   func(ctx context.Context) ([]string, error)
	JWTSecret string
}

// NewRootCommand builds the invoicectl command tree.
func NewRootCommand(deps Deps) *cobra.Command {
	root := &cobra.Command{
		Use:   "invoicectl",
		Short: "Render, total and convert invoices from JSON drafts",
		Long: `invoicectl works on invoice drafts stored as JSON files, the same shape
the HTTP API accepts. Pass "-" or omit the file to read the draft from stdin.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newTotalsCommand(deps),
		newRenderCommand(deps),
		newPDFCommand(deps),
		newTemplatesCommand(deps),
		newCurrenciesCommand(deps),
		newMigrateCommand(deps),
		newTokenCommand(deps),
	)
	return root
}

// Execute runs the command tree against os.Args and exits non-zero on failure.
func Execute(ctx context.Context, deps Deps) {
	log := logger.WithComponent("cli")
	if err := NewRootCommand(deps).ExecuteContext(ctx); err != nil {
		log.Debug().Err(err).Msg("command failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// readDraft decodes a draft from path, or from stdin for "" and "-".
func readDraft(cmd *cobra.Command, args []string) (invoice.Record, error) {
	var r io.Reader = cmd.InOrStdin()
	if len(args) > 0 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return invoice.Record{}, err
		}
		defer f.Close()
		r = f
	}

	var draft invoice.Record
	if err := json.NewDecoder(r).Decode(&draft); err != nil {
		return invoice.Record{}, fmt.Errorf("invalid draft JSON: %w", err)
	}
	return draft, nil
}

// writeOutput writes data to --out, or to stdout when --out is empty.
func writeOutput(cmd *cobra.Command, out string, data []byte) error {
	if out == "" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s (%d bytes)\n", out, len(data))
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
