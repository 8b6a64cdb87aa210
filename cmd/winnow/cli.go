package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/winnow/internal/config"
	"github.com/hpungsan/winnow/internal/entry"
	"github.com/hpungsan/winnow/internal/errors"
	"github.com/hpungsan/winnow/internal/journal"
	"github.com/hpungsan/winnow/internal/purify"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(jnl *journal.Journal, pur *purify.Purifier, cfg *config.Config) *cli.App {
	app := &cli.App{
		Name:    "winnow",
		Usage:   "Deduplicating corpus log",
		Version: Version,
		Commands: []*cli.Command{
			appendCmd(jnl),
			loadCmd(pur),
			purifyCmd(pur),
			statsCmd(jnl, pur),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// appendCmd creates the append command.
func appendCmd(jnl *journal.Journal) *cli.Command {
	return &cli.Command{
		Name:  "append",
		Usage: "Append a captured snippet (reads content from stdin unless --content is given)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "source", Aliases: []string{"s"}, Required: true, Usage: "Capture source"},
			&cli.StringFlag{Name: "content", Aliases: []string{"c"}, Usage: "Snippet text (otherwise read from stdin)"},
			&cli.TimestampFlag{Name: "captured-at", Layout: time.RFC3339, Usage: "Capture time (defaults to now)"},
		},
		Action: func(c *cli.Context) error {
			content := c.String("content")
			if content == "" {
				if !stdinHasData() {
					return outputError(errors.NewInvalidRequest("content must be given via --content or stdin"))
				}
				text, err := readStdin()
				if err != nil {
					return outputError(errors.NewInternal(err))
				}
				content = text
			}
			if content == "" {
				return outputError(errors.NewInvalidRequest("content is required"))
			}

			capturedAt := time.Now()
			if t := c.Timestamp("captured-at"); t != nil && !t.IsZero() {
				capturedAt = *t
			}

			accepted, err := jnl.Append(entry.New(c.String("source"), content, capturedAt))
			if err != nil {
				return outputError(err)
			}
			// CLI invocations are one-shot; flush so the entry is durable.
			if err := jnl.Flush(); err != nil {
				return outputError(err)
			}

			return outputJSON(map[string]any{
				"accepted":   accepted == 1,
				"suppressed": accepted == 0,
			})
		},
	}
}

// loadCmd creates the load command.
func loadCmd(pur *purify.Purifier) *cli.Command {
	return &cli.Command{
		Name:  "load",
		Usage: "Print the current entry sequence as JSON",
		Action: func(c *cli.Context) error {
			entries, err := pur.Entries()
			if err != nil {
				return outputError(err)
			}
			return outputJSON(map[string]any{
				"entries": entries,
				"count":   len(entries),
			})
		},
	}
}

// purifyCmd creates the purify command.
func purifyCmd(pur *purify.Purifier) *cli.Command {
	return &cli.Command{
		Name:  "purify",
		Usage: "Run one purification cycle",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "force", Aliases: []string{"f"}, Usage: "Ignore rate limits"},
		},
		Action: func(c *cli.Context) error {
			result, err := pur.Run(context.Background(), c.Bool("force"))
			if err != nil {
				return outputError(err)
			}
			return outputJSON(result)
		},
	}
}

// statsCmd creates the stats command.
func statsCmd(jnl *journal.Journal, pur *purify.Purifier) *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Report corpus counts and last purification time",
		Action: func(c *cli.Context) error {
			entries, err := jnl.Load()
			if err != nil {
				return outputError(err)
			}

			sources := make(map[string]int)
			for _, e := range entries {
				sources[e.Source]++
			}

			out := map[string]any{
				"entries":  len(entries),
				"buffered": jnl.Buffered(),
				"sources":  sources,
			}
			if last := pur.LastPurify(); !last.IsZero() {
				out["last_purify"] = last.UTC().Format(time.RFC3339)
			}
			return outputJSON(out)
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if wErr, ok := err.(*errors.WinnowError); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", wErr.Code, wErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads all content from stdin.
func readStdin() (string, error) {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
