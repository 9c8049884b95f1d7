package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	// .env para desarrollo local; los deployments reales setean el entorno.
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:   "authbroker",
		Short: "Multi-tenant social login broker",
	}

	var cfgPath string
	root.PersistentFlags().StringVar(&cfgPath, "config", envOr("AUTHBROKER_CONFIG", "config.yaml"), "path to the YAML config (env AUTHBROKER_CONFIG)")

	root.AddCommand(serveCmd(&cfgPath))
	root.AddCommand(clientCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
