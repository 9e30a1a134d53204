// Command ingest pushes the local knowledge directory to the LangChain
// orchestrator so the langchain answer engine can retrieve from it.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	appconfig "github.com/wolfman30/whatsapp-concierge/internal/config"
	"github.com/wolfman30/whatsapp-concierge/internal/langchain"
	"github.com/wolfman30/whatsapp-concierge/internal/qa"
	"github.com/wolfman30/whatsapp-concierge/pkg/logging"
)

const defaultBatchSize = 50

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "concierge-ingest",
		Short: "Upload knowledge documents to the LangChain orchestrator",
		RunE:  runIngest,
	}

	rootCmd.Flags().StringP("dir", "d", "", "Knowledge directory (defaults to KNOWLEDGE_DIR)")
	rootCmd.Flags().StringP("collection", "c", "", "Target collection (defaults to LANGCHAIN_COLLECTION)")
	rootCmd.Flags().IntP("batch", "b", defaultBatchSize, "Chunks per upload request")
	rootCmd.Flags().Bool("dry-run", false, "Split documents and report counts without uploading")

	return rootCmd
}

func runIngest(cmd *cobra.Command, _ []string) error {
	cfg := appconfig.Load()
	logger := logging.NewWithWriter(cfg.LogLevel, cmd.ErrOrStderr())

	dir, _ := cmd.Flags().GetString("dir")
	if dir == "" {
		dir = cfg.KnowledgeDir
	}
	collection, _ := cmd.Flags().GetString("collection")
	if collection == "" {
		collection = cfg.LangChainCollection
	}
	batch, _ := cmd.Flags().GetInt("batch")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	docs, err := qa.LoadDocuments(dir)
	if err != nil {
		return err
	}
	if dryRun {
		fmt.Fprintf(cmd.OutOrStdout(), "%d chunks from %s\n", len(docs), dir)
		return nil
	}

	client, err := langchain.NewClient(langchain.Config{
		BaseURL: cfg.LangChainBaseURL,
		APIKey:  cfg.LangChainAPIKey,
		Timeout: cfg.LangChainTimeout,
	})
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	sent, err := upload(ctx, client, collection, docs, batch)
	if err != nil {
		return err
	}
	logger.Info("knowledge ingested", "collection", collection, "chunks", sent, "dir", dir)
	fmt.Fprintf(cmd.OutOrStdout(), "uploaded %d chunks to %s\n", sent, collection)
	return nil
}

type knowledgeUploader interface {
	AddKnowledge(ctx context.Context, collection string, docs []string) error
}

// upload sends docs in batches and returns how many were accepted before
// the first failure.
func upload(ctx context.Context, client knowledgeUploader, collection string, docs []string, batch int) (int, error) {
	if batch <= 0 {
		batch = defaultBatchSize
	}
	sent := 0
	for start := 0; start < len(docs); start += batch {
		end := min(start+batch, len(docs))
		if err := client.AddKnowledge(ctx, collection, docs[start:end]); err != nil {
			return sent, fmt.Errorf("ingest: batch starting at %d: %w", start, err)
		}
		sent = end
	}
	return sent, nil
}
