package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/haasonsaas/warden/internal/agent"
	"github.com/haasonsaas/warden/internal/config"
	"github.com/haasonsaas/warden/internal/observability"
	"github.com/haasonsaas/warden/internal/providers"
	"github.com/haasonsaas/warden/internal/safety"
	"github.com/haasonsaas/warden/internal/shell"
)

const defaultSystemPrompt = `You are Warden, a careful system administration assistant.
You help the user manage their machine by running commands and editing
files through the provided tools. Prefer the least destructive approach
that accomplishes the task, and explain what you are doing in plain
language.`

// loadConfig resolves the configuration from the --config flag, the
// WARDEN_CONFIG environment variable, or ./warden.yaml, falling back
// to built-in defaults when no file exists.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = os.Getenv("WARDEN_CONFIG")
	}
	if path == "" {
		if _, err := os.Stat("warden.yaml"); err == nil {
			path = "warden.yaml"
		}
	}
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func buildSession(cfg *config.Config) (*agent.Session, *observability.Logger, error) {
	logger := observability.NewLogger(observability.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	metrics := observability.NewMetrics(prometheus.NewRegistry())

	provider, err := providers.New(providers.Config{
		Name:    cfg.Provider.Name,
		APIKey:  cfg.Provider.APIKey,
		Model:   cfg.Provider.Model,
		BaseURL: cfg.Provider.BaseURL,
	})
	if err != nil {
		return nil, nil, err
	}

	guard := safety.NewGuard(cfg.GuardOptions())
	runner := shell.NewRunner(shell.Config{}, logger)

	session := agent.NewSession(provider, guard, runner, agent.Config{
		SystemPrompt: defaultSystemPrompt,
		MaxTokens:    cfg.Provider.MaxTokens,
		MaxAttempts:  cfg.Resilience.MaxAttempts,
		Policy:       cfg.BackoffPolicy(),
		Breaker:      cfg.BreakerConfig(),
		Memory:       cfg.MemoryConfig(),
		Retryable:    providers.IsRetryable,
	}, logger, metrics)

	return session, logger, nil
}

func buildChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			session, _, err := buildSession(cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runREPL(ctx, session, os.Stdin, os.Stdout)
		},
	}
}

// runREPL reads user input line by line and drives the session. Pending
// actions are confirmed or denied inline before the next prompt.
func runREPL(ctx context.Context, session *agent.Session, in *os.File, out *os.File) error {
	fmt.Fprintln(out, "Warden ready. Type a request, or 'exit' to quit.")

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}

		turn, errCtx := session.RunTurn(ctx, line)
		if errCtx != nil {
			fmt.Fprintln(out, errCtx.FormatForUser())
			continue
		}

		if turn.Reply != "" {
			fmt.Fprintln(out, turn.Reply)
		}
		for _, executed := range turn.Executed {
			if executed.Err != nil {
				fmt.Fprintf(out, "[failed] %s: %v\n", executed.Action.Describe(), executed.Err)
			} else if output := strings.TrimSpace(executed.Output); output != "" {
				fmt.Fprintln(out, output)
			}
		}
		for _, refused := range turn.Refused {
			fmt.Fprintln(out, refused.Check.UserWarning)
		}
		for _, pending := range turn.Pending {
			if !confirmPending(ctx, session, pending, scanner, out) {
				return scanner.Err()
			}
		}
	}
}

func confirmPending(ctx context.Context, session *agent.Session, pending *agent.PendingAction, scanner *bufio.Scanner, out *os.File) bool {
	fmt.Fprintf(out, "%s\n", pending.Check.UserWarning)
	fmt.Fprintf(out, "Run '%s'? [y/N] ", pending.Action.Describe())
	if !scanner.Scan() {
		return false
	}

	answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
	if answer != "y" && answer != "yes" {
		session.Deny(pending.ID)
		fmt.Fprintln(out, "Skipped.")
		return true
	}

	executed, errCtx := session.Confirm(ctx, pending.ID)
	if errCtx != nil {
		fmt.Fprintln(out, errCtx.FormatForUser())
		return true
	}
	if executed.Err != nil {
		fmt.Fprintf(out, "[failed] %v\n", executed.Err)
	} else if output := strings.TrimSpace(executed.Output); output != "" {
		fmt.Fprintln(out, output)
	}
	return true
}

func buildCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <command>",
		Short: "Explain a command and classify its risk",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			guard := safety.NewGuard(cfg.GuardOptions())

			command := strings.Join(args, " ")
			check := guard.CheckCommand(command)

			fmt.Printf("Command: %s\n", command)
			fmt.Printf("Meaning: %s\n", guard.Explain(command))
			fmt.Printf("Risk:    %s\n", check.Level)
			if check.Reason != "" {
				fmt.Printf("Reason:  %s\n", check.Reason)
			}
			if check.SafeAlternative != "" {
				fmt.Printf("Safer:   %s\n", check.SafeAlternative)
			}
			return nil
		},
	}
}
