package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/urfave/cli/v3"

	"github.com/starford/gistpub/internal"
	"github.com/starford/gistpub/internal/apperr"
	"github.com/starford/gistpub/internal/credential"
	"github.com/starford/gistpub/internal/publisher"
	pkgconfig "github.com/starford/gistpub/pkg/config"
)

var (
	success = color.New(color.FgGreen)
	failure = color.New(color.FgRed)
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func openApp(cmd *cli.Command) (*internal.App, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return internal.New(internal.WithConfig(cfg))
}

func publishCommand() *cli.Command {
	return &cli.Command{
		Name:      "publish",
		Usage:     "Publish a note to a GitHub gist",
		ArgsUsage: "<path>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			app, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			res, err := app.Publish(ctx, cmd.Args().First())
			if err != nil {
				failure.Fprintln(os.Stderr, publisher.Notice(err))
				return err
			}
			success.Println(publisher.Notice(nil))
			fmt.Println(res.URL)
			return nil
		},
	}
}

func statusCommand() *cli.Command {
	return &cli.Command{
		Name:      "status",
		Usage:     "Show the publish state of a note, or list every published note",
		ArgsUsage: "[path]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			app, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			if path := cmd.Args().First(); path != "" {
				st, err := app.Status(ctx, path)
				if err != nil {
					return err
				}
				if !st.Published {
					fmt.Printf("%s: not published\n", st.Path)
					return nil
				}
				fmt.Printf("%s: %s\n", st.Path, st.FileURL)
				return nil
			}

			items, err := app.Published(ctx)
			if err != nil {
				return err
			}
			for _, it := range items {
				fmt.Printf("%s\t%s\n", it.Path, it.GistID)
			}
			return nil
		},
	}
}

func indexCommand() *cli.Command {
	return &cli.Command{
		Name:  "index",
		Usage: "Bring the metadata index up to date with the vault",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			app, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			stats, err := app.Reindex(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("indexed %d, unchanged %d, removed %d, failed %d\n",
				stats.Indexed, stats.Unchanged, stats.Removed, stats.Failed)
			return nil
		},
	}
}

func tokenCommand() *cli.Command {
	store := func(cmd *cli.Command) (*credential.Store, error) {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return nil, err
		}
		return credential.NewStore(cfg.Credentials.Path, cfg.GitHub.Token), nil
	}

	return &cli.Command{
		Name:  "token",
		Usage: "Manage the GitHub token used for publishing",
		Commands: []*cli.Command{
			{
				Name:      "set",
				Usage:     "Save a token (read from stdin when omitted)",
				ArgsUsage: "[token]",
				Action: func(_ context.Context, cmd *cli.Command) error {
					s, err := store(cmd)
					if err != nil {
						return err
					}
					token := cmd.Args().First()
					if token == "" {
						line, err := bufio.NewReader(os.Stdin).ReadString('\n')
						if err != nil && line == "" {
							return fmt.Errorf("read token: %w", err)
						}
						token = strings.TrimSpace(line)
					}
					if token == "" {
						return errors.New("token is empty")
					}
					if err := s.Save(token); err != nil {
						return err
					}
					success.Printf("Token saved to %s\n", s.Path())
					return nil
				},
			},
			{
				Name:  "show",
				Usage: "Show the token in use, masked",
				Action: func(_ context.Context, cmd *cli.Command) error {
					s, err := store(cmd)
					if err != nil {
						return err
					}
					token, err := s.Token()
					if err != nil {
						return err
					}
					if token == "" {
						failure.Println(publisher.Notice(apperr.ErrNoCredential))
						return nil
					}
					fmt.Println(credential.Mask(token))
					return nil
				},
			},
			{
				Name:  "clear",
				Usage: "Remove the saved token",
				Action: func(_ context.Context, cmd *cli.Command) error {
					s, err := store(cmd)
					if err != nil {
						return err
					}
					return s.Clear()
				},
			},
		},
	}
}

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve MCP tools on stdin/stdout",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
				return fmt.Errorf("app run error: %w", err)
			}
			return nil
		},
	}
}
