package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"invoice-studio/internal/adapters/web"
	"invoice-studio/internal/app"
	"invoice-studio/internal/invoice"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func newTotalsCommand(deps Deps) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "totals [draft.json]",
		Short: "Compute line amounts and totals for a draft",
		Example: `  invoicectl totals draft.json
  cat draft.json | invoicectl totals --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			draft, err := readDraft(cmd, args)
			if err != nil {
				return err
			}
			result, err := deps.Service.PreviewTotals(cmd.Context(), draft)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), result)
			}
			printTotals(cmd.OutOrStdout(), result)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full result as JSON")
	return cmd
}

func newRenderCommand(deps Deps) *cobra.Command {
	var out, template string
	cmd := &cobra.Command{
		Use:   "render [draft.json]",
		Short: "Render a draft to HTML",
		Example: `  invoicectl render draft.json --out invoice.html
  invoicectl render draft.json --template Sharp`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			draft, err := readDraft(cmd, args)
			if err != nil {
				return err
			}
			if template != "" {
				draft.Template = template
			}
			doc, err := deps.Service.RenderDraft(cmd.Context(), draft)
			if err != nil {
				return err
			}
			return writeOutput(cmd, out, []byte(doc.HTML))
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write to file instead of stdout")
	cmd.Flags().StringVarP(&template, "template", "t", "", "override the draft's template")
	return cmd
}

func newPDFCommand(deps Deps) *cobra.Command {
	var out, template string
	cmd := &cobra.Command{
		Use:   "pdf [draft.json]",
		Short: "Render a draft and convert it to PDF",
		Long: `Render a draft and convert it with the configured PDF backend
(PDF_BACKEND=fpdf or chrome). Without --out the file is named after the
invoice number.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			draft, err := readDraft(cmd, args)
			if err != nil {
				return err
			}
			if template != "" {
				draft.Template = template
			}
			result, err := deps.Service.GenerateDraftPDF(cmd.Context(), draft)
			if err != nil {
				return err
			}
			if out == "" {
				out = result.Filename
			}
			return writeOutput(cmd, out, result.Content)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default: <invoice number>.pdf)")
	cmd.Flags().StringVarP(&template, "template", "t", "", "override the draft's template")
	return cmd
}

func newTemplatesCommand(deps Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "templates",
		Short: "List the registered invoice templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			result := deps.Service.ListTemplates(cmd.Context())
			w := cmd.OutOrStdout()
			for _, name := range result.Templates {
				marker := ""
				if name == result.Default {
					marker = "  (default)"
				}
				fmt.Fprintf(w, "%s%s\n", name, marker)
			}
			return nil
		},
	}
}

func newCurrenciesCommand(deps Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "currencies",
		Short: "List supported currencies with a formatting sample",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			result := deps.Service.ListCurrencies(cmd.Context())
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%-6s %-8s %s\n", "CODE", "SYMBOL", "EXAMPLE")
			for _, c := range result.Currencies {
				fmt.Fprintf(w, "%-6s %-8s %s\n", c.Code, c.Symbol, c.Example)
			}
			return nil
		},
	}
}

func newMigrateCommand(deps Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations (needs DATABASE_URL)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if deps.Migrate == nil {
				return fmt.Errorf("%w: DATABASE_URL is not set", app.ErrNotConfigured)
			}
			applied, err := deps.Migrate(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if len(applied) == 0 {
				fmt.Fprintln(w, "Schema is up to date.")
				return nil
			}
			for _, name := range applied {
				fmt.Fprintf(w, "applied %s\n", name)
			}
			return nil
		},
	}
}

func newTokenCommand(deps Deps) *cobra.Command {
	var (
		userID int
		role   string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an API token signed with JWT_SECRET",
		Example: `  invoicectl token --user 7
  invoicectl token --user 1 --role admin --ttl 1h`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if deps.JWTSecret == "" {
				return fmt.Errorf("%w: JWT_SECRET is not set", app.ErrNotConfigured)
			}
			if userID <= 0 {
				return errors.New("--user must be a positive id")
			}
			tok, err := web.IssueToken(deps.JWTSecret, userID, role, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().IntVar(&userID, "user", 0, "user id the token is issued for")
	cmd.Flags().StringVar(&role, "role", "", "role claim (admin sees every invoice)")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}

func printTotals(w io.Writer, result *app.TotalsResult) {
	amount := func(d decimal.Decimal) string { return d.StringFixed(2) }
	if c, err := invoice.LookupCurrency(result.Currency); err == nil {
		amount = c.Format
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintf(w, "  %-40s %8s %20s\n", "ITEM", "QTY", "AMOUNT")
	fmt.Fprintln(w, strings.Repeat("-", 72))
	for _, it := range result.Items {
		fmt.Fprintf(w, "  %-40s %8s %20s\n", truncate(it.Description, 40), it.Quantity.String(), amount(it.Amount))
	}
	fmt.Fprintln(w, strings.Repeat("-", 72))
	rows := []struct{ label, value string }{
		{"Subtotal", result.Formatted.Subtotal},
		{"Discount", result.Formatted.Discount},
		{"Tax", result.Formatted.Tax},
		{"Total", result.Formatted.Total},
		{"Balance Due", result.Formatted.BalanceDue},
	}
	for _, row := range rows {
		fmt.Fprintf(w, "  %-40s %29s\n", row.label, row.value)
	}
	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintf(w, "  Currency : %s\n", result.Currency)
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
