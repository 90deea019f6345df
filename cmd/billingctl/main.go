package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Developmizer/Rental-Gates-sub002/internal/utils"
)

const appName = "billingctl"

func main() {
	_ = godotenv.Load()
	utils.InitLogger(appName)

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &clientOptions{}
	rootCmd := &cobra.Command{
		Use:          appName,
		Short:        "Operator tool for billing-service scheduler triggers",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.baseURL, "url", envOr("BILLING_SERVICE_URL", "http://localhost:8080"), "billing-service base URL")
	rootCmd.PersistentFlags().StringVar(&opts.caller, "caller", envOr("USER", appName), "caller recorded in the trigger token")

	rootCmd.AddCommand(
		runDailyCmd(opts),
		generateRentCmd(opts),
		tickCmd(opts),
		tokenCmd(opts),
	)
	return rootCmd
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
