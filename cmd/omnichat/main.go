package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"omnichat/internal/config"
	"omnichat/internal/extract"
	"omnichat/internal/llm"
	"omnichat/internal/render"
	"omnichat/internal/session"
	"omnichat/internal/tools"
	"omnichat/internal/transcript"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	root := newRootCmd()
	root.AddCommand(newExtractCmd())
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var interactive bool
	cmd := &cobra.Command{
		Use:           "omnichat [question]",
		Short:         "omnichat - one chat client over OpenAI, Anthropic, and Ollama backends",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !interactive && len(args) == 0 {
				return fmt.Errorf("provide a question or use --interactive")
			}
			cfg, err := config.Load(cmd)
			if err != nil {
				return err
			}

			logger := buildLogger(cfg.Verbose)
			defer func() { _ = logger.Sync() }()

			client, err := buildClient(cfg)
			if err != nil {
				return err
			}

			registry := tools.NewRegistry(tools.NewWeatherTool(), tools.NewClockTool())

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			var renderer render.Renderer
			if !cfg.JSON {
				renderer = render.NewStdoutRenderer(os.Stdout, cfg.Verbose, cfg.Quiet, !cfg.Quiet)
			}
			sess := session.New(client, registry, renderer, logger, cfg)

			if interactive {
				return runREPL(ctx, sess, cfg, logger)
			}

			question := strings.Join(args, " ")
			turnCtx, turnCancel := context.WithTimeout(ctx, cfg.Timeout)
			defer turnCancel()
			turn, runErr := sess.Send(turnCtx, question)

			if cfg.Persist {
				persistSession(logger, sess.Record())
			}
			if cfg.JSON {
				payload, _ := json.MarshalIndent(turn, "", "  ")
				fmt.Fprintln(os.Stdout, string(payload))
			}
			return runErr
		},
	}

	cmd.Flags().String("provider", "", "Backend provider: openai, anthropic, ollama (inferred from model when empty)")
	cmd.Flags().String("model", config.DefaultModel, "Model name")
	cmd.Flags().Int("max-steps", config.DefaultMaxSteps, "Maximum tool steps per turn")
	cmd.Flags().String("timeout", config.DefaultTimeout.String(), "Per-turn timeout (e.g. 120s)")
	cmd.Flags().Int("max-tokens", config.DefaultMaxTokens, "Maximum completion tokens")
	cmd.Flags().String("system", "", "System prompt override")
	cmd.Flags().String("base-url", "", "Backend base URL override")
	cmd.Flags().Bool("quiet", false, "Only print the final answer")
	cmd.Flags().Bool("json", false, "Output the turn record as JSON")
	cmd.Flags().Bool("verbose", false, "Enable verbose logging")
	cmd.Flags().Bool("no-stream", false, "Disable streaming output")
	cmd.Flags().Bool("no-tools", false, "Disable tool use")
	cmd.Flags().Bool("persist", false, "Persist the session transcript")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Interactive chat session")

	return cmd
}

func newExtractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract [text]",
		Short: "Extract a structured person record from free text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd)
			if err != nil {
				return err
			}
			logger := buildLogger(cfg.Verbose)
			defer func() { _ = logger.Sync() }()

			client, err := buildClient(cfg)
			if err != nil {
				return err
			}

			// Illustrative extraction target: a person record with
			// name, pet count, and skills.
			var person struct {
				Name     string   `json:"name" describe:"Full name of the person"`
				Age      int      `json:"age,omitempty" describe:"Age in years, if stated"`
				PetCount int      `json:"pet_count,omitempty" describe:"Number of pets"`
				Skills   []string `json:"skills,omitempty" describe:"Skills or trades mentioned"`
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Timeout)
			defer cancel()
			extractor := extract.New(client, logger, cfg.Model)
			if err := extractor.Extract(ctx, strings.Join(args, " "), &person); err != nil {
				return err
			}
			payload, _ := json.MarshalIndent(person, "", "  ")
			fmt.Fprintln(os.Stdout, string(payload))
			return nil
		},
	}

	cmd.Flags().String("provider", "", "Backend provider: openai, anthropic, ollama (inferred from model when empty)")
	cmd.Flags().String("model", config.DefaultModel, "Model name")
	cmd.Flags().String("timeout", config.DefaultTimeout.String(), "Timeout (e.g. 120s)")
	cmd.Flags().String("base-url", "", "Backend base URL override")
	cmd.Flags().Bool("verbose", false, "Enable verbose logging")

	return cmd
}

func buildClient(cfg config.Config) (llm.Client, error) {
	if os.Getenv("OMNICHAT_MOCK_LLM") == "1" {
		return llm.NewMockClient(), nil
	}
	provider := cfg.Provider
	if provider == "" {
		provider = llm.Resolve(cfg.Model)
	}
	apiKey, baseURL := cfg.Credentials(provider)
	if apiKey == "" && provider != "ollama" && provider != "local" {
		fmt.Fprintf(os.Stderr, "API key for provider %q is required\n", provider)
		os.Exit(2)
	}
	headers := map[string]string{}
	if cfg.HTTPReferer != "" {
		headers["HTTP-Referer"] = cfg.HTTPReferer
	}
	if cfg.Title != "" {
		headers["X-Title"] = cfg.Title
	}
	return llm.New(llm.Options{
		Provider: provider,
		Model:    cfg.Model,
		APIKey:   apiKey,
		BaseURL:  baseURL,
		Headers:  headers,
	})
}

func runREPL(ctx context.Context, sess *session.Session, cfg config.Config, logger *zap.Logger) error {
	fmt.Fprintln(os.Stdout, `Type a message, "/reset [system prompt]" to start over, or "/quit" to exit.`)
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Fprint(os.Stdout, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" || line == "/exit" {
			break
		}
		if line == "/reset" || strings.HasPrefix(line, "/reset ") {
			sess.Reset(strings.TrimSpace(strings.TrimPrefix(line, "/reset")))
			fmt.Fprintln(os.Stdout, "session reset")
			continue
		}

		turnCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		_, err := sess.Send(turnCtx, line)
		cancel()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		if ctx.Err() != nil {
			break
		}
	}
	if cfg.Persist {
		persistSession(logger, sess.Record())
	}
	return scanner.Err()
}

func persistSession(logger *zap.Logger, record session.Record) {
	store, err := transcript.NewStore("")
	if err != nil {
		logger.Warn("failed to open transcript store", zap.Error(err))
		return
	}
	if err := store.Save(record); err != nil {
		logger.Warn("failed to save transcript", zap.Error(err))
	}
}

func buildLogger(verbose bool) *zap.Logger {
	if verbose {
		logger, _ := zap.NewDevelopment()
		return logger
	}
	logger, _ := zap.NewProduction()
	return logger
}
