package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"peptide-scraper/internal/catalog"
	"peptide-scraper/internal/models"
	"peptide-scraper/internal/monitor"
)

// --- run ---

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Executa o scraping uma vez e imprime o resumo",
	Long: `Executa o scraping uma vez e imprime o resumo.

Exemplos:
  scraper run
  scraper run --vendor acme`,
	RunE: func(cmd *cobra.Command, args []string) error {
		vendor, _ := cmd.Flags().GetString("vendor")

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		summary, err := a.monitor.Run(ctx, strings.ToLower(strings.TrimSpace(vendor)))
		if err != nil {
			return err
		}
		printSummary(cmd.OutOrStdout(), summary)
		return nil
	},
}

// --- seed ---

var seedCmd = &cobra.Command{
	Use:   "seed <file>",
	Short: "Cria ou atualiza fornecedores a partir de um arquivo YAML",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		n, err := a.registry.Seed(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d fornecedor(es) gravado(s)\n", n)
		return nil
	},
}

// --- prices ---

var pricesCmd = &cobra.Command{
	Use:   "prices <peptide>",
	Short: "Lista os preços atuais de um peptídeo",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		peptide, ok := catalog.BySlug(strings.ToLower(query))
		if !ok {
			peptide, ok = catalog.FindMatchingPeptide(query)
		}
		if !ok {
			return fmt.Errorf("unknown peptide: %s", query)
		}

		ctx := context.Background()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		prices, err := a.store.PricesForPeptide(ctx, peptide.Slug)
		if err != nil {
			return fmt.Errorf("load prices: %w", err)
		}
		printPrices(cmd.OutOrStdout(), peptide, prices)
		return nil
	},
}

// --- logs ---

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Mostra os registros de execução mais recentes",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		ctx := context.Background()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		logs, err := a.store.RecentScrapeLogs(ctx, limit)
		if err != nil {
			return fmt.Errorf("load logs: %w", err)
		}
		printLogs(cmd.OutOrStdout(), logs)
		return nil
	},
}

func init() {
	runCmd.Flags().String("vendor", "", "slug do fornecedor (padrão: todos os ativos)")
	logsCmd.Flags().Int("limit", 20, "número máximo de registros")
}

func printSummary(w io.Writer, summary *monitor.RunSummary) {
	fmt.Fprintf(w, "run %s\n", summary.RunID)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "VENDOR\tSTATUS\tFOUND\tUPDATED\tERRORS")
	for _, r := range summary.Results {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", r.Vendor, models.DeriveStatus(r.Found, r.Errors), r.Found, r.Updated, models.JoinErrors(r.Errors))
	}
	tw.Flush()
}

func printPrices(w io.Writer, peptide catalog.TargetPeptide, prices []models.PeptidePrice) {
	if len(prices) == 0 {
		fmt.Fprintf(w, "Nenhum preço registrado para %s.\n", peptide.Name)
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "VENDOR\tPRICE\tSTOCK\tVERIFIED")
	for _, p := range prices {
		stock := "in stock"
		if !p.InStock {
			stock = "out of stock"
		}
		fmt.Fprintf(tw, "%s\t$%s\t%s\t%s\n", p.VendorName, p.Price.StringFixed(2), stock, p.LastVerifiedAt.Format("2006-01-02 15:04"))
	}
	tw.Flush()
}

func printLogs(w io.Writer, logs []models.ScrapeLog) {
	if len(logs) == 0 {
		fmt.Fprintln(w, "Nenhuma execução registrada.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tVENDOR\tSTATUS\tFOUND\tUPDATED\tDURATION\tERROR")
	for _, l := range logs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%dms\t%s\n",
			l.CreatedAt.Format("2006-01-02 15:04"), l.VendorName, l.Status, l.ProductsFound, l.ProductsUpdated, l.DurationMS, l.ErrorMessage)
	}
	tw.Flush()
}
