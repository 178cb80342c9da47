package main

import (
	"fmt"
	"os"

	"github.com/politicianfinder/edge-gate/cmd/configure/commands"
	"github.com/spf13/cobra"
)

func main() {
	env := commands.DefaultEnv()

	var rootCmd = &cobra.Command{
		Use:           "edge-gate-configure",
		Short:         "Configuration tool for the PoliticianFinder edge gate",
		Long:          "CLI tool for managing the rate limit and CORS settings running gates reload, and for checking tokens",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(commands.NewListCmd(env))
	rootCmd.AddCommand(commands.NewRatelimitCmd(env))
	rootCmd.AddCommand(commands.NewCorsCmd(env))
	rootCmd.AddCommand(commands.NewTokenCmd(env))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
