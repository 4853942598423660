package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/doktor-sys/mietrecht-kms/cmd/app/commands"
	"github.com/doktor-sys/mietrecht-kms/internal/app"
	"github.com/doktor-sys/mietrecht-kms/internal/config"
)

// commonKeyFlags are shared by every key command.
func commonKeyFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "tenant",
			Aliases:  []string{"t"},
			Required: true,
			Usage:    "Tenant the operation runs on behalf of",
		},
		&cli.StringFlag{
			Name:    "operator",
			Aliases: []string{"o"},
			Value:   "",
			Usage:   "Operator name recorded in the audit trail",
		},
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Value:   "text",
			Usage:   "Output format: 'text' or 'json'",
		},
	}
}

func getKeyCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "create-key",
			Usage: "Create a new key for a tenant",
			Flags: append(commonKeyFlags(),
				&cli.StringFlag{
					Name:     "purpose",
					Aliases:  []string{"p"},
					Required: true,
					Usage:    "Key purpose (document-encryption, field-encryption, session-token)",
				},
				&cli.StringFlag{
					Name:    "algorithm",
					Aliases: []string{"alg"},
					Value:   "",
					Usage:   "Encryption algorithm (default: aes-256-gcm)",
				},
				&cli.BoolFlag{
					Name:    "auto-rotate",
					Value:   true,
					Usage:   "Whether the scheduler rotates the key automatically",
				},
				&cli.IntFlag{
					Name:    "rotation-interval-days",
					Aliases: []string{"r"},
					Value:   0,
					Usage:   "Auto-rotation interval in days (0 uses the configured default)",
				},
				&cli.StringFlag{
					Name:    "expires",
					Value:   "",
					Usage:   "Expiration date in YYYY-MM-DD or YYYY-MM-DD HH:MM:SS format",
				},
				&cli.StringFlag{
					Name:    "metadata",
					Aliases: []string{"m"},
					Value:   "",
					Usage:   "JSON object of metadata labels (e.g., '{\"mandant\":\"kanzlei-nord\"}')",
				},
			),
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				keyUseCase, err := container.KeyUseCase()
				if err != nil {
					return err
				}

				return commands.RunCreateKey(
					ctx,
					keyUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("tenant"),
					cmd.String("operator"),
					cmd.String("purpose"),
					cmd.String("algorithm"),
					cmd.Bool("auto-rotate"),
					int(cmd.Int("rotation-interval-days")),
					cmd.String("expires"),
					cmd.String("metadata"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "rotate-key",
			Usage: "Rotate a key to a new version",
			Flags: append(commonKeyFlags(),
				&cli.StringFlag{
					Name:     "id",
					Aliases:  []string{"i"},
					Required: true,
					Usage:    "Key ID (UUID)",
				},
			),
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				keyUseCase, err := container.KeyUseCase()
				if err != nil {
					return err
				}

				return commands.RunRotateKey(
					ctx,
					keyUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("tenant"),
					cmd.String("operator"),
					cmd.String("id"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "revoke-key",
			Usage: "Immediately and irreversibly revoke a key",
			Flags: append(commonKeyFlags(),
				&cli.StringFlag{
					Name:     "id",
					Aliases:  []string{"i"},
					Required: true,
					Usage:    "Key ID (UUID)",
				},
				&cli.StringFlag{
					Name:     "reason",
					Required: true,
					Usage:    "Revocation reason recorded in the audit trail",
				},
			),
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				keyUseCase, err := container.KeyUseCase()
				if err != nil {
					return err
				}

				return commands.RunRevokeKey(
					ctx,
					keyUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("tenant"),
					cmd.String("operator"),
					cmd.String("id"),
					cmd.String("reason"),
				)
			},
		},
		{
			Name:  "list-keys",
			Usage: "List a tenant's keys",
			Flags: append(commonKeyFlags(),
				&cli.StringFlag{
					Name:    "purpose",
					Aliases: []string{"p"},
					Value:   "",
					Usage:   "Filter by purpose",
				},
				&cli.StringFlag{
					Name:    "state",
					Aliases: []string{"s"},
					Value:   "",
					Usage:   "Filter by state (pending, active, retired, revoked, expired)",
				},
				&cli.IntFlag{
					Name:  "limit",
					Value: 100,
					Usage: "Maximum number of keys to return",
				},
				&cli.IntFlag{
					Name:  "offset",
					Value: 0,
					Usage: "Number of keys to skip",
				},
			),
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				keyUseCase, err := container.KeyUseCase()
				if err != nil {
					return err
				}

				return commands.RunListKeys(
					ctx,
					keyUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("tenant"),
					cmd.String("operator"),
					cmd.String("purpose"),
					cmd.String("state"),
					int(cmd.Int("limit")),
					int(cmd.Int("offset")),
					cmd.String("format"),
				)
			},
		},
	}
}
