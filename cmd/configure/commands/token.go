package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/politicianfinder/edge-gate/internal/services/auth"
	"github.com/spf13/cobra"
)

// NewTokenCmd creates the token command for checking credentials against the configured verifier.
func NewTokenCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Inspect bearer tokens",
	}
	cmd.AddCommand(newTokenCheckCmd(env))
	return cmd
}

func newTokenCheckCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "check <token>",
		Short: "Verify a token the way the gate would",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := env.LoadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			verifier, err := auth.New(cfg.VerifierSettings(), &http.Client{Timeout: cfg.AuthTimeout})
			if err != nil {
				return fmt.Errorf("build verifier: %w", err)
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			identity, err := auth.Guard(verifier, cfg.AuthTimeout).Verify(ctx, args[0])
			out := cmd.OutOrStdout()
			if err != nil {
				var verr *auth.ValidationError
				if errors.As(err, &verr) {
					return fmt.Errorf("verifier failed: %w", verr.Err)
				}
				fmt.Fprintf(out, "Token rejected (%s verifier): %v\n", cfg.AuthVerifier, err)
				return err
			}

			fmt.Fprintf(out, "Token accepted (%s verifier)\n", cfg.AuthVerifier)
			if identity.Anonymous() {
				fmt.Fprintln(out, "  Subject: (none, placeholder verification)")
				return nil
			}
			fmt.Fprintf(out, "  Subject: %s\n", identity.Subject)
			if identity.Email != "" {
				fmt.Fprintf(out, "  Email: %s\n", identity.Email)
			}
			if identity.Role != "" {
				fmt.Fprintf(out, "  Role: %s\n", identity.Role)
			}
			if !identity.ExpiresAt.IsZero() {
				fmt.Fprintf(out, "  Expires: %s\n", identity.ExpiresAt.UTC().Format("2006-01-02T15:04:05Z07:00"))
			}
			return nil
		},
	}
}
