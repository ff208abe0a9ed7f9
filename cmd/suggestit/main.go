// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"log"
	"os"
	"time"

	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// configFlags are shared by every command that opens the service.
func configFlags(extra ...cli.Flag) []cli.Flag {
	return append([]cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to YAML configuration file",
			EnvVars: []string{"SUGGESTIT_CONFIG"},
		},
		&cli.StringSliceFlag{
			Name:  "env-file",
			Usage: "Load environment variables from `FILE` (defaults to .env when present)",
		},
	}, extra...)
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "suggestit",
		Usage: "Query suggestion ranking service",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "Set logging format (text, json)",
				Value: "text",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Serve the suggestion API over HTTP",
				Action: serveCommand,
				Flags: configFlags(
					&cli.StringFlag{
						Name:  "addr",
						Usage: "Listen address, overrides server.addr",
					},
				),
			},
			{
				Name:   "import",
				Usage:  "Import manual records from a JSON or YAML batch file",
				Action: importCommand,
				Flags: configFlags(
					&cli.StringFlag{
						Name:     "file",
						Aliases:  []string{"f"},
						Usage:    "Batch file (.json, .yaml or .yml)",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "added-by",
						Usage: "Author recorded on imported records when the batch names none",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of records written per transaction",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N records",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed writes",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 100 * time.Millisecond,
					},
				),
			},
			{
				Name:   "rank",
				Usage:  "Rank a single query and print the response as JSON",
				Action: rankCommand,
				Flags: configFlags(
					&cli.StringFlag{
						Name:     "query",
						Aliases:  []string{"q"},
						Usage:    "Query to rank",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "user",
						Usage: "User id",
					},
					&cli.StringFlag{
						Name:  "catalog",
						Usage: "JSON file holding the catalog snapshot",
					},
					&cli.StringFlag{
						Name:  "location",
						Usage: "Free-text caller location",
					},
					&cli.Float64Flag{
						Name:  "lat",
						Usage: "Caller latitude",
					},
					&cli.Float64Flag{
						Name:  "lon",
						Usage: "Caller longitude",
					},
					&cli.BoolFlag{
						Name:  "debug",
						Usage: "Include the ranking trace",
					},
				),
			},
			{
				Name:   "analytics",
				Usage:  "Print a usage report",
				Action: analyticsCommand,
				Flags: configFlags(
					&cli.TimestampFlag{
						Name:   "start",
						Usage:  "Only count activity at or after this time",
						Layout: time.RFC3339,
					},
					&cli.TimestampFlag{
						Name:   "end",
						Usage:  "Only count activity at or before this time",
						Layout: time.RFC3339,
					},
					&cli.StringFlag{
						Name:  "format",
						Usage: "Output format (json, csv)",
						Value: "json",
					},
				),
			},
		},
	}
}
