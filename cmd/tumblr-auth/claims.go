package main

import (
	"fmt"

	"github.com/jrsteele09/go-tumblr-auth/token"
	"github.com/spf13/cobra"
)

var verifyIDToken bool

var claimsCmd = &cobra.Command{
	Use:   "claims <id-token>",
	Short: "Print the claims of an id_token",
	Long: `Decodes an id_token and prints its claims as JSON.

Without --verify the signature is NOT checked. --verify discovers the
provider keys from TUMBLR_OIDC_ISSUER.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !verifyIDToken {
			claims, err := token.ParseIDTokenClaims(args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), claims)
		}

		cfg, err := loadEnv()
		if err != nil {
			return err
		}
		if cfg.GetOIDCIssuer() == "" {
			return fmt.Errorf("--verify requires TUMBLR_OIDC_ISSUER to be set")
		}
		verifier, err := token.NewIDTokenVerifier(cmd.Context(), cfg.GetOIDCIssuer(), cfg.GetCredentials().ClientID)
		if err != nil {
			return err
		}
		claims, err := verifier.Verify(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), claims)
	},
}

func init() {
	claimsCmd.Flags().BoolVar(&verifyIDToken, "verify", false, "Verify the signature against the issuer's published keys")
	rootCmd.AddCommand(claimsCmd)
}
