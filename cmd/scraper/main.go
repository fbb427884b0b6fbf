package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "scraper",
	Short:         "Coleta preços de peptídeos nas vitrines dos fornecedores",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(serveCmd, runCmd, seedCmd, pricesCmd, logsCmd)
}

func main() {
	// Carregar variáveis de ambiente
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "Arquivo .env não encontrado, usando variáveis de ambiente do sistema")
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
