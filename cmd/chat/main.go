// Command chat runs the concierge routing rules against a local terminal
// session, one message per line, without Twilio in the loop.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/wolfman30/whatsapp-concierge/cmd/mainconfig"
	"github.com/wolfman30/whatsapp-concierge/internal/app/bootstrap"
	appconfig "github.com/wolfman30/whatsapp-concierge/internal/config"
	"github.com/wolfman30/whatsapp-concierge/internal/messaging"
	"github.com/wolfman30/whatsapp-concierge/internal/routing"
	"github.com/wolfman30/whatsapp-concierge/internal/session"
	"github.com/wolfman30/whatsapp-concierge/pkg/logging"
)

const defaultSender = "whatsapp:+10000000000"

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
		Use:   "concierge-chat",
		Short: "Talk to the WhatsApp concierge from a terminal",
		Long: `Reads one message per line from stdin and prints the replies the
WhatsApp webhook would send. Verification lasts for the whole session.

Example:
  concierge-chat --sender +15551234567
  concierge-chat -m "lead time?"`,
		RunE: runChat,
	}

	rootCmd.Flags().StringP("sender", "s", defaultSender, "Sender address used for verification state")
	rootCmd.Flags().StringP("message", "m", "", "Route a single message and exit")
	rootCmd.Flags().StringP("log-level", "l", "error", "Log level (debug, info, warn, error)")

	return rootCmd
}

func runChat(cmd *cobra.Command, _ []string) error {
	sender, err := cmd.Flags().GetString("sender")
	if err != nil {
		return fmt.Errorf("failed to get sender flag: %w", err)
	}
	message, err := cmd.Flags().GetString("message")
	if err != nil {
		return fmt.Errorf("failed to get message flag: %w", err)
	}
	logLevel, err := cmd.Flags().GetString("log-level")
	if err != nil {
		return fmt.Errorf("failed to get log-level flag: %w", err)
	}

	cfg := appconfig.Load()
	logger := logging.NewWithWriter(logLevel, cmd.ErrOrStderr())
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	engine, cleanup, err := bootstrap.BuildAnswerEngine(ctx, cfg, bootstrap.EngineDeps{
		AWS:    mainconfig.Loader(cfg),
		Logger: logger,
	})
	if err != nil {
		return err
	}
	defer cleanup()

	router := bootstrap.BuildMessageRouter(cfg, engine, nil, logger)
	store := session.NewMemoryStore(cfg.VerificationTTL)

	in := cmd.InOrStdin()
	if message != "" {
		in = strings.NewReader(message + "\n")
	}
	return converse(ctx, router, store, sender, in, cmd.OutOrStdout())
}

type messageRouter interface {
	Route(ctx context.Context, text string, verified bool) (routing.Result, error)
}

// converse routes each input line the same way the webhook does and prints
// every reply on its own line.
func converse(ctx context.Context, router messageRouter, store session.Store, sender string, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		verified, err := store.IsVerified(ctx, sender)
		if err != nil {
			return fmt.Errorf("chat: load verification: %w", err)
		}
		res, err := router.Route(ctx, text, verified)
		if err != nil {
			fmt.Fprintf(out, "< %s\n", messaging.ErrorReply)
			continue
		}
		switch {
		case res.Decision == routing.DecisionCredentialsAccepted:
			err = store.MarkVerified(ctx, sender)
		case verified && !res.Verified:
			err = store.Revoke(ctx, sender)
		}
		if err != nil {
			return fmt.Errorf("chat: save verification: %w", err)
		}
		for _, reply := range res.Replies {
			fmt.Fprintf(out, "< %s\n", reply)
		}
	}
	return scanner.Err()
}
