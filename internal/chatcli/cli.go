// Package chatcli runs the chat as an interactive terminal session, either
// in process or against a running server.
package chatcli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/okian/rehabchat/internal/domain/model"
	"github.com/okian/rehabchat/pkg/logger"
)

// Chatter answers one chat turn.
type Chatter interface {
	Ask(ctx context.Context, message string, c model.Context) model.Envelope
}

// SetupLogging sends logs to stderr so they do not mix with answers.
func SetupLogging(level, format string) error {
	if err := logger.Init(logger.WithOutput(os.Stderr), logger.WithFormat(format)); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if err := logger.SetLevelString(level); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	return nil
}

func isQuit(line string) bool {
	switch strings.ToLower(line) {
	case "quit", "exit", ":q":
		return true
	}
	return false
}

// Run reads questions until EOF, quit or exit and prints each answer. The
// context returned by one turn is sent with the next.
func Run(ctx context.Context, chat Chatter, cfg Config) error {
	scanner := bufio.NewScanner(cfg.In)
	var conv model.Context
	turns := 0

	for {
		if cfg.Prompt != "" {
			if _, err := fmt.Fprint(cfg.Out, cfg.Prompt); err != nil {
				return err
			}
		}
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if isQuit(line) {
			break
		}

		env := ask(ctx, chat, line, conv, cfg)
		conv = env.Context
		turns++
		if err := printEnvelope(cfg, env); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	if cfg.Logger != nil {
		cfg.Logger.Debug(ctx, "chat session ended", logger.Int("turns", turns))
	}
	return scanner.Err()
}

func ask(ctx context.Context, chat Chatter, line string, conv model.Context, cfg Config) model.Envelope {
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}
	return chat.Ask(ctx, line, conv)
}

func printEnvelope(cfg Config, env model.Envelope) error {
	prefix := ""
	switch env.Type {
	case model.ResponseError:
		prefix = "[error] "
	case model.ResponseFallback:
		prefix = "[code fallback] "
	}
	if _, err := fmt.Fprintf(cfg.Out, "%s%s\n", prefix, env.Answer); err != nil {
		return err
	}
	if !cfg.ShowData || env.Data == nil {
		return nil
	}
	b, err := json.MarshalIndent(env.Data, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(cfg.Out, "%s\n", b)
	return err
}

// ShowHelp prints usage information for the chat tool.
func ShowHelp() {
	os.Stdout.WriteString(`Rehab Chat
==========

Ask questions about patient rehabilitation metrics in plain language.

Usage:
  go run ./cmd/chat [options]

Options:
  -url string
        Talk to a running server instead of loading the table in process
  -data
        Print the answer data as JSON
  -timeout duration
        Per-question timeout (default 2m)
  -help
        Show this help message

Configuration is read from REHAB_* environment variables, a .env file and
the YAML file named by REHAB_CONFIG.

Examples:
  What was the range of motion for patient 45 in game0 on 10/3/22?
  How did it change from 10/3/22 to 25/3/22?
  what about smoothness?
  reset
  quit
`)
}
