package commands

import (
	"fmt"
	"strings"

	"github.com/politicianfinder/edge-gate/internal/database"
	"github.com/politicianfinder/edge-gate/internal/models"
	"github.com/politicianfinder/edge-gate/internal/validation"
	"github.com/spf13/cobra"
)

// NewCorsCmd creates the cors configuration command with list and set subcommands.
func NewCorsCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cors",
		Short: "Manage CORS configuration",
		Long:  "List or update the origins advertised in Access-Control-Allow-Origin.",
	}
	cmd.AddCommand(newCorsListCmd(env))
	cmd.AddCommand(newCorsSetCmd(env))
	return cmd
}

func newCorsListCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List current CORS configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.withStores(cmd.Context(), func(s *Stores) error {
				c, err := s.Cors.Get(cmd.Context())
				if err != nil {
					return fmt.Errorf("get cors config: %w", err)
				}
				out := cmd.OutOrStdout()
				if c == nil {
					fmt.Fprintln(out, "No CORS configuration in database. Use 'cors set' to add one.")
					return nil
				}
				fmt.Fprintln(out, "CORS configuration:")
				for _, o := range database.AllowedOriginsSlice(c.AllowedOrigins) {
					fmt.Fprintf(out, "  Origin: %s\n", o)
				}
				fmt.Fprintf(out, "  Max-Age: %d\n", c.MaxAge)
				return nil
			})
		},
	}
}

func newCorsSetCmd(env *Env) *cobra.Command {
	var origins string
	var maxAge int
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set CORS configuration",
		Long:  "Update allowed origins (comma-separated, \"*\" for any).",
		RunE: func(cmd *cobra.Command, args []string) error {
			list := database.AllowedOriginsSlice(validation.SanitizeText(origins))
			if len(list) == 0 {
				return fmt.Errorf("--origins is required (comma-separated list)")
			}
			for _, o := range list {
				if err := validation.ValidateOrigin(o); err != nil {
					return err
				}
			}
			if maxAge < 0 {
				return fmt.Errorf("--max-age cannot be negative")
			}
			return env.withStores(cmd.Context(), func(s *Stores) error {
				c := &models.CorsConfig{AllowedOrigins: strings.Join(list, ","), MaxAge: maxAge}
				if err := s.Cors.Set(cmd.Context(), c); err != nil {
					return fmt.Errorf("set cors config: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "CORS configuration updated.")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&origins, "origins", "", "Comma-separated allowed origins (required)")
	cmd.Flags().IntVar(&maxAge, "max-age", 0, "Access-Control-Max-Age for preflight responses (seconds, 0 to omit)")
	return cmd
}
