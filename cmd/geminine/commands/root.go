package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/florianilch/geminine/internal/app"
	"github.com/florianilch/geminine/internal/authflow"
	"github.com/florianilch/geminine/internal/observability"
)

// Execute runs the root command with the given context and arguments.
func Execute(ctx context.Context, args []string) error {
	cmd := &cli.Command{
		Name:  "geminine",
		Usage: "Google Gemini OAuth Ambassador",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to config file",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level (debug|info|warn|error)",
				Value: slog.LevelInfo.String(),
			},
		},
		Commands: []*cli.Command{
			startCommand(),
			loginCommand(),
			logoutCommand(),
			whoamiCommand(),
			printAccessTokenCommand(),
		},
	}

	return cmd.Run(ctx, args)
}

func startCommand() *cli.Command {
	return &cli.Command{
		Name:  "start",
		Usage: "run the local ambassador server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "log format (text|json|otel)",
				Value: string(app.DefaultConfigLogFormat),
			},
			&cli.StringFlag{
				Name:  "server--host",
				Usage: "server host",
				Value: app.DefaultConfigServerHost,
			},
			&cli.IntFlag{
				Name:  "server--port",
				Usage: "server port",
				Value: int(app.DefaultConfigServerPort),
			},
			&cli.StringFlag{
				Name:  "upstream--base-url",
				Usage: "upstream API base URL",
				Value: app.DefaultConfigUpstreamBaseURL,
			},
			&cli.StringFlag{
				Name:  "auth--mode",
				Usage: "credential mode (oauth|metadata|api-key)",
				Value: app.DefaultConfigAuthMode,
			},
		},
		Action: startAction,
	}
}

func startAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd.String("config"), cmd, os.Environ)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Set up observability before creating app
	err = observability.Instrument(cfg.LogLevel, string(cfg.LogFormat))
	if err != nil {
		return fmt.Errorf("failed to set up observability layer: %w", err)
	}

	application, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create app: %w", err)
	}

	slog.InfoContext(ctx, "starting")

	if err := application.Start(ctx); err != nil {
		return fmt.Errorf("app failed to start: %w", err)
	}

	slog.InfoContext(ctx, "stopped gracefully")
	return nil
}

func loginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "authenticate and cache credentials",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "no-browser",
				Usage: "skip the browser flow and use the manual user-code flow",
			},
			&cli.StringFlag{
				Name:  "auth--mode",
				Usage: "credential mode (oauth|metadata|api-key)",
				Value: app.DefaultConfigAuthMode,
			},
		},
		Action: loginAction,
	}
}

func loginAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd.String("config"), cmd, os.Environ)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cmd.Bool("no-browser") {
		cfg.Auth.NoBrowser = true
	}

	if err := observability.Instrument(cfg.LogLevel, string(cfg.LogFormat)); err != nil {
		return fmt.Errorf("failed to set up observability layer: %w", err)
	}

	auth, err := cfg.Auth.NewAuthenticator()
	if err != nil {
		return fmt.Errorf("failed to create authenticator: %w", err)
	}

	if _, err := auth.Client(ctx, authflow.Mode(cfg.Auth.Mode)); err != nil {
		return err
	}

	if info, err := auth.UserInfo(ctx); err == nil && info.Email != "" {
		fmt.Printf("Logged in as %s\n", info.Email)
	} else {
		fmt.Println("Logged in")
	}
	return nil
}

func logoutCommand() *cli.Command {
	return &cli.Command{
		Name:   "logout",
		Usage:  "remove cached credentials",
		Action: logoutAction,
	}
}

func logoutAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd.String("config"), cmd, os.Environ)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	store, err := cfg.Auth.NewCredentialStore()
	if err != nil {
		return fmt.Errorf("failed to create credential store: %w", err)
	}
	if err := store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}

	profile, err := cfg.Auth.NewProfileCache()
	if err != nil {
		return fmt.Errorf("failed to create profile cache: %w", err)
	}
	if err := profile.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear account profile: %w", err)
	}

	fmt.Println("Logged out")
	return nil
}

func whoamiCommand() *cli.Command {
	return &cli.Command{
		Name:   "whoami",
		Usage:  "show the authenticated account",
		Action: whoamiAction,
	}
}

func whoamiAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd.String("config"), cmd, os.Environ)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	auth, err := cfg.Auth.NewAuthenticator()
	if err != nil {
		return fmt.Errorf("failed to create authenticator: %w", err)
	}

	info, err := auth.UserInfo(ctx)
	if err != nil {
		return err
	}

	fmt.Println(info.Email)
	return nil
}

func printAccessTokenCommand() *cli.Command {
	return &cli.Command{
		Name:   "print-access-token",
		Usage:  "print a valid access token for the cached credentials",
		Action: printAccessTokenAction,
	}
}

func printAccessTokenAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd.String("config"), cmd, os.Environ)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	auth, err := cfg.Auth.NewAuthenticator()
	if err != nil {
		return fmt.Errorf("failed to create authenticator: %w", err)
	}

	src, err := auth.CachedTokenSource(ctx)
	if err != nil {
		return err
	}
	tok, err := src.Token()
	if err != nil {
		return fmt.Errorf("failed to obtain access token: %w", err)
	}

	fmt.Println(tok.AccessToken)
	return nil
}
