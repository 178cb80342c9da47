package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewListCmd prints the effective gate configuration: environment settings
// plus whatever the database overrides.
func NewListCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show the effective gate configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := env.LoadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Environment:")
			fmt.Fprintf(out, "  Path prefixes: %s\n", strings.Join(cfg.PathPrefixes, ", "))
			fmt.Fprintf(out, "  Rate policy: %s\n", cfg.RatePolicy())
			fmt.Fprintf(out, "  Rate store: %s\n", cfg.RateLimitStore)
			fmt.Fprintf(out, "  CORS origins: %s\n", strings.Join(cfg.CORSAllowedOrigins, ", "))
			fmt.Fprintf(out, "  Verifier: %s\n", cfg.AuthVerifier)

			if cfg.DatabaseURL == "" {
				fmt.Fprintln(out, "Database: not configured")
				return nil
			}
			return env.withStores(cmd.Context(), func(s *Stores) error {
				fmt.Fprintln(out, "Database overrides:")
				rl, err := s.Ratelimit.Get(cmd.Context())
				if err != nil {
					return fmt.Errorf("get ratelimit config: %w", err)
				}
				if rl != nil {
					fmt.Fprintf(out, "  Rate: %s (fail closed: %v)\n", rl.Rate, rl.FailClosed)
				} else {
					fmt.Fprintln(out, "  Rate: (none)")
				}
				cc, err := s.Cors.Get(cmd.Context())
				if err != nil {
					return fmt.Errorf("get cors config: %w", err)
				}
				if cc != nil {
					fmt.Fprintf(out, "  CORS origins: %s\n", cc.AllowedOrigins)
				} else {
					fmt.Fprintln(out, "  CORS origins: (none)")
				}
				return nil
			})
		},
	}
}
