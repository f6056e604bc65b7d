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
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/poiesic/recall"
	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/core"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "recall",
		Usage: "Per-user semantic memory for conversational agents",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "add",
				Usage:  "Store a message in a user's memory",
				Action: addCommand,
				Flags: append(storeFlags(),
					&cli.StringFlag{
						Name:     "user",
						Aliases:  []string{"u"},
						Usage:    "Username owning the memory",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "text",
						Aliases:  []string{"t"},
						Usage:    "Message text to remember",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "role",
						Usage: "Message role (user or assistant)",
						Value: "user",
					},
				),
			},
			{
				Name:   "context",
				Usage:  "Assemble a context transcript for a user",
				Action: contextCommand,
				Flags: append(storeFlags(),
					&cli.StringFlag{
						Name:     "user",
						Aliases:  []string{"u"},
						Usage:    "Username to assemble context for",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "query",
						Aliases: []string{"q"},
						Usage:   "Similarity query (recency is used when omitted)",
					},
					&cli.IntFlag{
						Name:    "count",
						Aliases: []string{"k"},
						Usage:   "Number of records to select",
						Value:   5,
					},
				),
			},
			{
				Name:   "dump",
				Usage:  "Print stored conversation logs",
				Action: dumpCommand,
				Flags: append(storeFlags(),
					&cli.StringFlag{
						Name:    "user",
						Aliases: []string{"u"},
						Usage:   "Limit output to one username",
					},
				),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// storeFlags are shared by every command that opens the store.
func storeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "snapshot",
			Aliases: []string{"s"},
			Usage:   "Path to the snapshot file",
		},
		&cli.StringFlag{
			Name:    "db",
			Aliases: []string{"d"},
			Usage:   "Path to a BadgerDB archive directory",
		},
		&cli.StringFlag{
			Name:  "embedding-host",
			Usage: "Embedding service host URL (synthetic embeddings when omitted)",
		},
		&cli.StringFlag{
			Name:  "embedding-model",
			Usage: "Embedding model name",
		},
	}
}

// buildService assembles a Service from command-line flags.
func buildService(ctx context.Context, c *cli.Context) (*recall.Service, error) {
	if c.String("snapshot") == "" && c.String("db") == "" {
		return nil, fmt.Errorf("either --snapshot or --db is required")
	}

	opts := []recall.ServiceOption{}
	if path := c.String("snapshot"); path != "" {
		opts = append(opts, recall.WithSnapshotPath(path))
	}
	if path := c.String("db"); path != "" {
		opts = append(opts, recall.WithArchivePath(path))
	}
	if host := c.String("embedding-host"); host != "" {
		opts = append(opts, recall.WithAIConfig(ai.NewConfig(
			ai.WithEmbeddingHost(host),
			ai.WithEmbeddingModel(c.String("embedding-model")),
		)))
	}

	return recall.NewService(ctx, opts...)
}

func parseRole(value string) (core.Role, error) {
	switch strings.ToLower(value) {
	case "user":
		return core.RoleUser, nil
	case "assistant", "agent":
		return core.RoleAssistant, nil
	default:
		return 0, fmt.Errorf("invalid role %q: must be user or assistant", value)
	}
}

func addCommand(c *cli.Context) error {
	ctx := context.Background()

	role, err := parseRole(c.String("role"))
	if err != nil {
		return err
	}

	service, err := buildService(ctx, c)
	if err != nil {
		return err
	}
	defer service.Close()

	record, err := service.AddMessage(ctx, c.String("user"), c.String("text"), role)
	if err != nil {
		return fmt.Errorf("storing message: %w", err)
	}

	fmt.Printf("Stored %s (%s: %s)\n", record.Id, record.Role.Speaker(), record.Text)
	return nil
}

func contextCommand(c *cli.Context) error {
	ctx := context.Background()

	service, err := buildService(ctx, c)
	if err != nil {
		return err
	}
	defer service.Close()

	text, err := service.Context(ctx, c.String("user"), c.String("query"), c.Int("count"))
	if err != nil {
		return fmt.Errorf("assembling context: %w", err)
	}

	fmt.Print(text)
	return nil
}

func dumpCommand(c *cli.Context) error {
	ctx := context.Background()

	service, err := buildService(ctx, c)
	if err != nil {
		return err
	}
	defer service.Close()

	usernames := service.Usernames()
	if username := c.String("user"); username != "" {
		usernames = []string{username}
	}

	for _, username := range usernames {
		fmt.Printf("# %s\n", username)
		for _, record := range service.AllMessages(username) {
			fmt.Printf("%s  %s: %s\n",
				record.Timestamp.Format("2006-01-02 15:04:05"),
				record.Role.Speaker(), record.Text)
		}
	}
	return nil
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
