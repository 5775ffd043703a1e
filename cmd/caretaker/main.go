// Package main is the entry point for the Caretaker assistant backend.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/caretaker-ai/caretaker/internal/config"
	"github.com/caretaker-ai/caretaker/internal/embedding"
	"github.com/caretaker-ai/caretaker/internal/graph"
	"github.com/caretaker-ai/caretaker/internal/llm"
	"github.com/caretaker-ai/caretaker/internal/logging"
	"github.com/caretaker-ai/caretaker/internal/medical"
	"github.com/caretaker-ai/caretaker/internal/memory"
	"github.com/caretaker-ai/caretaker/internal/profile"
	"github.com/caretaker-ai/caretaker/internal/router"
	"github.com/caretaker-ai/caretaker/internal/server"
	"github.com/caretaker-ai/caretaker/internal/voice"
	"github.com/caretaker-ai/caretaker/internal/websearch"
)

var version = "dev"

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "caretaker",
		Short: "Conversational healthcare assistant backend",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default ~/.caretaker/config.yaml)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("caretaker", version)
		},
	}

	rootCmd.AddCommand(serveCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(configPath string) error {
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFromPath(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	cleanup, err := logging.Setup(cfg.Logging)
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	defer cleanup()

	gateway := llm.NewGateway(cfg)
	embedder := embedding.NewOllamaEmbedder(cfg.Embedding)
	store := memory.NewStore(embedder)

	g := graph.New(graph.Deps{
		Gateway:     gateway,
		Tagger:      router.NewTagger(gateway),
		ProfileTool: profile.NewTool(gateway),
		Store:       store,
		Precheck:    memory.NewPrecheck(gateway, store),
		Search:      websearch.NewClient(cfg.Search),
		Medical:     medical.NewBridge(cfg.Medical),
		Voice:       voice.NewBridge(cfg.Voice),
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg.Server, g)
	if err := srv.Run(ctx); err != nil {
		log.Error().Err(err).Msg("server exited with error")
		return err
	}
	return nil
}
