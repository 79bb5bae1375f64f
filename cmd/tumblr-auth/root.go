package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cli/browser"
	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/jrsteele09/go-tumblr-auth/auth"
	"github.com/jrsteele09/go-tumblr-auth/internal/config"
	autherrors "github.com/jrsteele09/go-tumblr-auth/internal/errors"
	"github.com/jrsteele09/go-tumblr-auth/oauth2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	redirectURL string
	port        int
	scopes      string
	jsonOutput  bool
	timeout     time.Duration
	noBrowser   bool
	quiet       bool
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "tumblr-auth",
	Short: "Obtain a Tumblr OAuth2 access token from the command line",
	Long: `Starts a local listener on 127.0.0.1, opens the Tumblr authorization page
in your browser and prints the access token once you approve the request.

CONSUMER_ID and CONSUMER_SECRET must be set in the environment or in a
.env file in the working directory.`,
	SilenceUsage:      true,
	PersistentPreRunE: setupLogging,
	RunE:              runAuthorize,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&jsonOutput, "json", "j", false, "Output the full JSON response instead of just the access token")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Do not print the banner")

	rootCmd.Flags().StringVarP(&redirectURL, "url", "u", "", "The URL to redirect to in the OAuth request (default "+config.DefaultRedirectURI+")")
	rootCmd.Flags().IntVarP(&port, "port", "p", 0, fmt.Sprintf("The port to listen on (default %d)", config.DefaultPort))
	rootCmd.Flags().StringVarP(&scopes, "scopes", "s", "", fmt.Sprintf("The scopes to request, separated by spaces: %s, %s, %s (default %q)", oauth2.ScopeBasic, oauth2.ScopeWrite, oauth2.ScopeOfflineAccess, config.DefaultScopes))
	rootCmd.Flags().DurationVar(&timeout, "timeout", 0, "How long to wait for the browser redirect (default from TUMBLR_AUTH_TIMEOUT, 5m)")
	rootCmd.Flags().BoolVar(&noBrowser, "no-browser", false, "Print the authorization URL without opening a browser")
}

func setupLogging(cmd *cobra.Command, _ []string) error {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), TimeFormat: time.Kitchen})
	return nil
}

// loadEnv reads .env (or the given files) into the process environment, then
// the configuration. Variables already set in the environment win.
func loadEnv(envFiles ...string) (config.Config, error) {
	// A missing .env file is fine: the environment may already hold everything.
	_ = godotenv.Load(envFiles...)
	return config.Load()
}

func loadConfig(envFiles ...string) (config.Config, error) {
	cfg, err := loadEnv(envFiles...)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("%w\nPlease set the CONSUMER_ID and CONSUMER_SECRET environment variables", err)
	}
	return cfg, nil
}

func runAuthorize(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !quiet && !jsonOutput {
		displayAppname(cmd.ErrOrStderr(), cfg.GetAppName())
	}

	req := auth.AuthorizationRequest{
		Scopes:      cfg.GetDefaultScopes(),
		RedirectURI: cfg.GetRedirectURI(),
		Port:        cfg.GetPort(),
		Timeout:     cfg.GetListenerTimeout(),
	}
	if cmd.Flags().Changed("scopes") {
		req.Scopes = scopes
	}
	if cmd.Flags().Changed("url") {
		req.RedirectURI = redirectURL
	}
	if cmd.Flags().Changed("port") {
		req.Port = port
	}
	if cmd.Flags().Changed("timeout") {
		req.Timeout = timeout
		if timeout == 0 {
			req.Timeout = -1 // wait forever
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := auth.NewAuthorizationService(cfg)
	if err != nil {
		return err
	}
	attempt, err := svc.BeginAuth(ctx, req)
	if err != nil {
		return err
	}

	log.Debug().
		Str("redirect_uri", attempt.RedirectURI()).
		Int("port", attempt.Port()).
		Msg("Waiting for the browser redirect")
	fmt.Fprintf(cmd.ErrOrStderr(), "Please visit the following URL: %s\n", attempt.URL())
	if !noBrowser {
		browser.Stdout = cmd.ErrOrStderr()
		if err := browser.OpenURL(attempt.URL()); err != nil {
			log.Warn().Err(err).Msg("Could not open a browser, visit the URL above manually")
		}
	}

	tok, err := attempt.Wait(ctx)
	if err != nil {
		if autherrors.Is(err, context.Canceled) {
			return fmt.Errorf("authorization cancelled")
		}
		return err
	}
	return printToken(cmd.OutOrStdout(), tok, jsonOutput)
}

func displayAppname(w io.Writer, appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	fmt.Fprintln(w, myFigure.String())
}
