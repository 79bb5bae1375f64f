package main

import (
	"github.com/jrsteele09/go-tumblr-auth/auth"
	"github.com/spf13/cobra"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh <refresh-token>",
	Short: "Get a new access token using a refresh token, without user interaction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		svc, err := auth.NewAuthorizationService(cfg)
		if err != nil {
			return err
		}
		tok, err := svc.RefreshTokenAuth(cmd.Context(), args[0], nil)
		if err != nil {
			return err
		}
		return printToken(cmd.OutOrStdout(), tok, jsonOutput)
	},
}

func init() {
	rootCmd.AddCommand(refreshCmd)
}
