package commands

import (
	"fmt"

	"github.com/politicianfinder/edge-gate/internal/models"
	"github.com/politicianfinder/edge-gate/internal/ratelimit"
	"github.com/politicianfinder/edge-gate/internal/validation"
	"github.com/spf13/cobra"
)

// NewRatelimitCmd creates the ratelimit configuration command with list and set subcommands.
func NewRatelimitCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ratelimit",
		Short: "Manage the per-client rate limit",
		Long:  "List or update the per-client rate (e.g. 10-M, 100-H). Running gates pick it up on their next reload.",
	}
	cmd.AddCommand(newRatelimitListCmd(env))
	cmd.AddCommand(newRatelimitSetCmd(env))
	return cmd
}

func newRatelimitListCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List current rate limit configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.withStores(cmd.Context(), func(s *Stores) error {
				c, err := s.Ratelimit.Get(cmd.Context())
				if err != nil {
					return fmt.Errorf("get ratelimit config: %w", err)
				}
				out := cmd.OutOrStdout()
				if c == nil {
					fmt.Fprintln(out, "No rate limit configuration in database. Use 'ratelimit set' to add one.")
					return nil
				}
				policy, err := ratelimit.PolicyFromRate(c.Rate)
				if err != nil {
					return fmt.Errorf("stored rate %q is invalid: %w", c.Rate, err)
				}
				fmt.Fprintln(out, "Rate limit configuration:")
				fmt.Fprintf(out, "  Rate: %s (%s)\n", c.Rate, policy)
				fmt.Fprintf(out, "  Fail closed: %v\n", c.FailClosed)
				return nil
			})
		},
	}
}

func newRatelimitSetCmd(env *Env) *cobra.Command {
	var rate string
	var failClosed bool
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set rate limit configuration",
		Long:  "Update the per-client rate (e.g. 10-M, 100-M, 1000-H).",
		RunE: func(cmd *cobra.Command, args []string) error {
			rate = validation.SanitizeText(rate)
			if rate == "" {
				return fmt.Errorf("--rate is required (e.g. 10-M, 100-H)")
			}
			if err := validation.ValidateRate(rate); err != nil {
				return err
			}
			return env.withStores(cmd.Context(), func(s *Stores) error {
				if err := s.Ratelimit.Set(cmd.Context(), &models.RatelimitConfig{Rate: rate, FailClosed: failClosed}); err != nil {
					return fmt.Errorf("set ratelimit config: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Rate limit configuration updated.")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&rate, "rate", "", "Rate (e.g. 10-M, 100-H) (required)")
	cmd.Flags().BoolVar(&failClosed, "fail-closed", false, "Reject requests with 503 when the rate store is unreachable")
	return cmd
}
