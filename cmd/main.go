package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"visa-rag/internal/config"
	"visa-rag/internal/embedding"
	"visa-rag/internal/helper"
	"visa-rag/internal/llm"
	"visa-rag/internal/parser"
	"visa-rag/internal/prompt"
	"visa-rag/internal/retriever"
	"visa-rag/internal/rules"
	"visa-rag/internal/server"
	"visa-rag/internal/vectordb"
)

const configFilePath = "./configs/config.yaml"

type app struct {
	cfg       *config.Config
	rules     *rules.Store
	retriever *retriever.Retriever
	llmClient *llm.Client
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	_ = godotenv.Load()

	configPath := flag.String("config", configFilePath, "Path to the YAML config file")
	query := flag.String("query", "", "Answer a single question on stdout instead of serving")
	filePath := flag.String("file", "", "Path to a supporting document for the one-shot query")
	rebuild := flag.Bool("rebuild", false, "Force a rebuild of the embedding cache")
	verbose := flag.Bool("verbose", false, "Dump the retrieved rules for one-shot queries")
	flag.Parse()

	ctx := context.Background()
	a := bootstrap(ctx, *configPath, *rebuild)

	if *query != "" {
		answerQuery(ctx, a, *query, *filePath, *verbose)
		return
	}

	srv := server.New(a.rules, a.retriever, a.llmClient, a.cfg)
	if err := srv.Start(); err != nil {
		log.Fatal().Err(err).Msg("Server stopped")
	}
}

// bootstrap loads configuration and rules, prepares the embedding cache,
// and wires the retrieval pipeline. Any failure here aborts the process
// with a visible error before a single request is served.
func bootstrap(ctx context.Context, configPath string, rebuild bool) *app {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	rulesStore, err := rules.Load(cfg.Rules.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading rules file")
	}

	embedder, err := embedding.NewEmbedder(ctx, &cfg.EmbedLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}

	store, err := vectordb.Open(cfg.RAG.DataDir, cfg.RAG.Collection)
	if err != nil {
		log.Fatal().Err(err).Msg("Error opening vector database")
	}
	if err := store.Ensure(ctx, rulesStore.All(), embedder, rebuild); err != nil {
		log.Fatal().Err(err).Msg("Error building vector index")
	}

	llmClient, err := llm.NewClient(ctx, &cfg.ChatLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing LLM client")
	}

	return &app{
		cfg:       cfg,
		rules:     rulesStore,
		retriever: retriever.New(embedder, store, rulesStore),
		llmClient: llmClient,
	}
}

func answerQuery(ctx context.Context, a *app, query, filePath string, verbose bool) {
	uploadedText := ""
	if filePath != "" {
		text, err := parser.ExtractText(filePath)
		if err != nil {
			log.Fatal().Err(err).Msg("Error parsing document")
		}
		uploadedText = text
	}

	matches, err := a.retriever.Retrieve(ctx, query, a.cfg.RAG.TopK)
	if err != nil {
		log.Fatal().Err(err).Msg("Error retrieving rules")
	}
	if len(matches) == 0 {
		log.Warn().Msg("No matching rules found, answering from general knowledge")
	}
	if verbose {
		log.Info().Msg("Retrieved rules:")
		helper.PrettyPrint(matches)
	}

	p := prompt.ComposeChat(query, uploadedText, matches, a.cfg.RAG.MaxPromptChars)
	answer, err := a.llmClient.Generate(ctx, p)
	if err != nil {
		log.Fatal().Err(err).Msg("Error querying LLM")
	}

	log.Info().Msg("Query: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", query)

	log.Info().Msg("Assistant: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", answer)
}
