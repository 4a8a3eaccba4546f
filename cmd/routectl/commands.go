package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/liip/sheriff"
	"github.com/urfave/cli/v2"

	"github.com/troski/troski-backend/internal/api/models"
	"github.com/troski/troski-backend/internal/auth"
	"github.com/troski/troski-backend/internal/bootstrap"
	"github.com/troski/troski-backend/internal/config"
	"github.com/troski/troski-backend/internal/routing"
)

var errSigningKeyUnset = errors.New("auth.signing_key is not configured")

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:    "routectl",
		Usage:   "compare driving routes and manage API clients",
		Version: Version,
		Writer:  out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "path to a config file (default: ./config.yaml if present)",
				EnvVars: []string{"TROSKI_CONFIG_FILE"},
			},
		},
		Commands: []*cli.Command{
			routesCommand(),
			tokenCommand(),
		},
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	return config.Load(config.Options{ConfigFile: c.String("config")})
}

func routesCommand() *cli.Command {
	return &cli.Command{
		Name:  "routes",
		Usage: "fetch and rank route alternatives between two places",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "origin", Aliases: []string{"o"}, Required: true},
			&cli.StringFlag{Name: "destination", Aliases: []string{"d"}, Required: true},
			&cli.StringFlag{Name: "time-zone", Usage: "IANA time zone for arrival times"},
			&cli.StringFlag{Name: "locale", Usage: "BCP 47 locale for arrival times"},
			&cli.BoolFlag{Name: "12h", Usage: "use the 12-hour clock for the text field"},
			&cli.BoolFlag{Name: "best", Usage: "only return the single best route"},
			&cli.BoolFlag{Name: "summary", Usage: "omit raw provider fields"},
			&cli.DurationFlag{Name: "timeout", Value: 30 * time.Second},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}

			logger := bootstrap.NewLogger(cfg, c.App.ErrWriter, "routectl", Version)
			svc, err := bootstrap.NewRouteService(bootstrap.RouteServiceConfig{
				Config: cfg,
				Logger: logger,
			})
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
			defer cancel()

			q := routing.Query{
				Origin:      c.String("origin"),
				Destination: c.String("destination"),
				Format: routing.FormatOptions{
					TimeZone:  c.String("time-zone"),
					Locale:    c.String("locale"),
					Use12Hour: c.Bool("12h"),
				},
			}

			var routes []routing.EnrichedRoute
			if c.Bool("best") {
				routes, err = svc.Directions(ctx, q)
			} else {
				routes, err = svc.Routes(ctx, q)
			}
			if err != nil {
				return err
			}

			return writeRoutes(c.App.Writer, routes, c.Bool("summary"))
		},
	}
}

func writeRoutes(w io.Writer, routes []routing.EnrichedRoute, summary bool) error {
	var payload any = models.RoutesResponse{Routes: routes}
	if summary {
		data, err := sheriff.Marshal(&sheriff.Options{Groups: []string{"summary"}}, payload)
		if err != nil {
			return fmt.Errorf("filtering routes: %w", err)
		}
		payload = data
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

func tokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "mint a bearer token for an API client",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "subject", Aliases: []string{"s"}, Usage: "client identifier", Required: true},
			&cli.StringFlag{Name: "name", Usage: "human-readable client name"},
			&cli.DurationFlag{Name: "ttl", Value: auth.DefaultTokenTTL},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}

			svc, err := bootstrap.NewJWTService(cfg)
			if err != nil {
				return err
			}
			if svc == nil {
				return errSigningKeyUnset
			}

			token, expiresAt, err := svc.GenerateAccessToken(c.String("subject"), c.String("name"), c.Duration("ttl"))
			if err != nil {
				return err
			}

			fmt.Fprintln(c.App.Writer, token)
			fmt.Fprintf(c.App.ErrWriter, "expires %s\n", expiresAt.UTC().Format(time.RFC3339))
			return nil
		},
	}
}
