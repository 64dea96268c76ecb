// Command autogen-workflows runs the agent workflows from the command line.
// A subcommand selects the workflow; provider credentials come from the
// environment (a .env file is honored when present) and an optional YAML
// config file tunes the model, session store and loop bounds.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/chan4lk/autogen-workflows/artifact"
	"github.com/chan4lk/autogen-workflows/config"
	"github.com/chan4lk/autogen-workflows/core"
	"github.com/chan4lk/autogen-workflows/logging"
	"github.com/chan4lk/autogen-workflows/model"
	"github.com/chan4lk/autogen-workflows/model/anthropic"
	"github.com/chan4lk/autogen-workflows/model/openai"
	"github.com/chan4lk/autogen-workflows/session"
	"github.com/chan4lk/autogen-workflows/workflows/basic"
	"github.com/chan4lk/autogen-workflows/workflows/design"
	"github.com/chan4lk/autogen-workflows/workflows/hitl"
	"github.com/chan4lk/autogen-workflows/workflows/research"
)

var (
	configPath string
	verbose    bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "autogen-workflows",
		Short:         "Agent workflow collection",
		Long:          "Runs the agent workflows: basic Q&A, feedback-loop document creation, design document review and human-in-the-loop compliance.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newBasicCmd(), newResearchCmd(), newDesignCmd(), newHitlCmd())
	return root
}

func newBasicCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "basic [question]",
		Short: "Ask the financial assistant a single question",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnvironment()
			if err != nil {
				return err
			}

			question := ""
			if len(args) > 0 {
				question = args[0]
			}

			result, err := basic.Run(cmd.Context(), env.llm, question, func(o *basic.Options) {
				o.SessionStore = env.sessions
				o.EnableStreaming = env.cfg.Runtime.EnableStreaming
				o.EventBufferSize = env.cfg.Runtime.EventBufferSize
				o.MaxModelCalls = env.cfg.Runtime.MaxModelCalls
				o.Logger = env.logger
			})
			if err != nil {
				return err
			}

			fmt.Println(result.Answer)
			return nil
		},
	}
}

const sampleEssayPrompt = `Write a persuasive essay arguing for greater investment in renewable energy solutions.
The essay should address economic benefits, environmental impact, and technological innovation.
Target audience is policy makers and business leaders. Keep it under 1000 words.`

func newResearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "research [prompt]",
		Short: "Create a document through the feedback-loop pattern",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnvironment()
			if err != nil {
				return err
			}

			prompt := sampleEssayPrompt
			if len(args) > 0 {
				prompt = args[0]
			}

			fmt.Println("Initiating Feedback Loop Pattern for Document Creation...")

			result, err := research.RunFeedbackLoopPattern(cmd.Context(), env.llm, prompt, func(o *research.Options) {
				o.MaxIterations = env.cfg.Workflow.MaxIterations
				o.MaxRounds = env.cfg.Workflow.MaxRounds
				o.SessionStore = env.sessions
				o.ArtifactStore = env.artifacts
				o.EnableStreaming = env.cfg.Runtime.EnableStreaming
				o.EventBufferSize = env.cfg.Runtime.EventBufferSize
				o.MaxModelCalls = env.cfg.Runtime.MaxModelCalls
				o.Logger = env.logger
			})
			if err != nil {
				return err
			}

			if result.FinalDocument == nil {
				fmt.Println("Document creation did not complete successfully.")
				return nil
			}

			fmt.Println("Document creation completed successfully!")
			fmt.Println()
			fmt.Println("===== DOCUMENT CREATION SUMMARY =====")
			fmt.Printf("Document Type: %s\n", result.FinalDocument.Type)
			fmt.Printf("Title:         %s\n", result.FinalDocument.Title)
			fmt.Printf("Iterations:    %d\n", result.Iterations)
			if result.Stats != nil {
				fmt.Printf("Word Count:    %d\n", result.Stats.WordCount)
			}
			fmt.Println()
			fmt.Println("===== FINAL DOCUMENT =====")
			fmt.Println(result.FinalDocument.Content)
			return nil
		},
	}
}

func newDesignCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "design [requirements]",
		Short: "Generate a design document with architect and critic agents",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnvironment()
			if err != nil {
				return err
			}

			requirements := ""
			if len(args) > 0 {
				requirements = args[0]
			}

			result, err := design.RunDesignDocument(cmd.Context(), env.llm, requirements, func(o *design.Options) {
				o.MaxRounds = env.cfg.Workflow.MaxRounds
				o.SessionStore = env.sessions
				o.EnableStreaming = env.cfg.Runtime.EnableStreaming
				o.EventBufferSize = env.cfg.Runtime.EventBufferSize
				o.MaxModelCalls = env.cfg.Runtime.MaxModelCalls
				o.Logger = env.logger
			})
			if err != nil {
				return err
			}

			fmt.Println(result.Document)
			return nil
		},
	}
}

func newHitlCmd() *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "hitl",
		Short: "Review transactions with human approval of suspicious ones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnvironment()
			if err != nil {
				return err
			}

			transactions := hitl.GenerateTransactions(count)
			fmt.Println("Processing transactions:")
			for i, tx := range transactions {
				fmt.Printf("%d. %s\n", i+1, tx)
			}

			result, err := hitl.RunHumanApproval(cmd.Context(), env.llm, transactions, func(o *hitl.Options) {
				o.MaxRounds = env.cfg.Workflow.MaxRounds
				o.SessionStore = env.sessions
				o.EnableStreaming = env.cfg.Runtime.EnableStreaming
				o.EventBufferSize = env.cfg.Runtime.EventBufferSize
				o.MaxModelCalls = env.cfg.Runtime.MaxModelCalls
				o.Logger = env.logger
			})
			if err != nil {
				return err
			}

			fmt.Println(result.Summary)
			return nil
		},
	}

	cmd.Flags().IntVar(&count, "transactions", 3, "number of transactions to generate")
	return cmd
}

// environment bundles the services a workflow run needs, built once per
// command invocation from config and environment variables.
type environment struct {
	cfg       *config.Config
	llm       model.Model
	sessions  core.SessionStore
	artifacts core.ArtifactStore
	logger    logging.Logger
}

func newEnvironment() (*environment, error) {
	// Missing .env files are fine; real environments set variables directly.
	_ = godotenv.Load()

	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	llm, err := buildModel(cfg)
	if err != nil {
		return nil, err
	}

	sessions, err := buildSessionStore(cfg)
	if err != nil {
		return nil, err
	}

	var artifacts core.ArtifactStore
	if cfg.ArtifactDir != "" {
		artifacts, err = artifact.NewFileStore(cfg.ArtifactDir)
		if err != nil {
			return nil, fmt.Errorf("artifact store: %w", err)
		}
	} else {
		artifacts = artifact.NewInMemoryStore()
	}

	logger := logging.Logger(logging.NoOpLogger{})
	if verbose {
		logger = logging.NewDefaultSlogLogger()
	}

	return &environment{
		cfg:       cfg,
		llm:       llm,
		sessions:  sessions,
		artifacts: artifacts,
		logger:    logger,
	}, nil
}

func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", configPath, err)
	}
	return cfg, nil
}

func buildModel(cfg *config.Config) (model.Model, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		var clientOpts []option.RequestOption
		if cfg.OpenAIKey != "" {
			clientOpts = append(clientOpts, option.WithAPIKey(cfg.OpenAIKey))
		}
		client := openaisdk.NewClient(clientOpts...)
		return openai.NewModelFromClient(&client, func(o *openai.Options) {
			if cfg.Model != "" {
				o.Model = cfg.Model
			}
			o.Temperature = cfg.Temperature
			o.MaxCompletionTokens = int64(cfg.MaxTokens)
		}), nil

	case "anthropic":
		return anthropic.NewModel(func(o *anthropic.Options) {
			if cfg.Model != "" {
				o.Model = anthropicsdk.Model(cfg.Model)
			}
			o.Temperature = cfg.Temperature
			o.MaxTokens = int64(cfg.MaxTokens)
			o.APIKey = cfg.AnthropicKey
		}), nil

	default:
		return nil, fmt.Errorf("unsupported provider %q", cfg.Provider)
	}
}

func buildSessionStore(cfg *config.Config) (core.SessionStore, error) {
	switch cfg.Session.Provider {
	case "redis":
		store, err := session.NewRedisStore(session.RedisConfig{
			Addr:   cfg.Session.RedisAddr,
			DB:     cfg.Session.RedisDB,
			Prefix: cfg.Session.Prefix,
		})
		if err != nil {
			return nil, fmt.Errorf("redis session store: %w", err)
		}
		return store, nil

	default:
		return session.NewInMemoryStore(), nil
	}
}
