// Command chat is a terminal client for the chat widget backend. It keeps its
// history and settings in a local sqlite file.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/glamour"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"convobot-backend/internal/config"
	"convobot-backend/internal/conversation"
	"convobot-backend/internal/crypto"
	"convobot-backend/internal/demo"
	"convobot-backend/internal/format"
	"convobot-backend/internal/logging"
	"convobot-backend/internal/orchestrator"
	"convobot-backend/internal/provider"
	"convobot-backend/internal/settings"
	"convobot-backend/internal/store"
	"convobot-backend/internal/store/sqlite"
)

type options struct {
	dbPath   string
	proxyURL string
	endpoint string
	noDelay  bool
	plain    bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "chat",
		Short:         "Chat with the assistant from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.dbPath, "db", "", "sqlite file for history and settings (default $SQLITE_PATH)")
	f.StringVar(&opts.proxyURL, "proxy-url", "", "send messages through a chat proxy instead of calling providers directly")
	f.StringVar(&opts.endpoint, "endpoint", "", "provider endpoint: gemini, demo or custom")
	f.BoolVar(&opts.noDelay, "no-delay", false, "skip the simulated thinking delay")
	f.BoolVar(&opts.plain, "plain", false, "print replies without markdown rendering")
	return cmd
}

func run(ctx context.Context, opts *options) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	logging.Setup(cfg.LogLevel, true)

	dbPath := opts.dbPath
	if dbPath == "" {
		dbPath = cfg.SQLitePath
	}
	kv, err := sqlite.Open(ctx, dbPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", dbPath, err)
	}
	defer kv.Close()

	// The API key is only encrypted at rest when a secret is configured.
	var sealer *crypto.Sealer
	if cfg.SessionSecret != "" || cfg.EncryptionKey != "" {
		key, err := crypto.KeyFromConfig(cfg.EncryptionKey, cfg.SessionSecret)
		if err != nil {
			return err
		}
		if sealer, err = crypto.NewSealer(key); err != nil {
			return err
		}
	}
	mgr := settings.NewManager(kv, sealer, "")

	endpoint := provider.EndpointGemini
	if opts.endpoint != "" {
		if endpoint, err = provider.ParseEndpoint(opts.endpoint); err != nil {
			return err
		}
		if opts.proxyURL == "" {
			name := string(endpoint)
			if _, err := mgr.Update(ctx, settings.Patch{APIEndpoint: &name}); err != nil {
				return err
			}
		}
	}

	gen := demo.NewGenerator()
	var responder orchestrator.Responder
	if opts.proxyURL != "" {
		responder = orchestrator.NewProxyResponder(opts.proxyURL, endpoint.Canonical(), cfg.ProviderTimeout)
	} else {
		providers := provider.NewRegistry()
		providers.Register(provider.EndpointGemini, provider.NewGeminiClient(cfg.GeminiBaseURL, cfg.GeminiModel, cfg.GeminiAPIKey, cfg.ProviderTimeout))
		providers.Register(provider.EndpointDemo, provider.NewDemoProvider(gen))
		providers.Register(provider.EndpointCustom, provider.NewCompatibleClient(cfg.CustomModel, "", cfg.ProviderTimeout))
		responder = orchestrator.NewDirectResponder(mgr, providers)
	}

	sessionOpts := []orchestrator.Option{orchestrator.WithDemoGenerator(gen)}
	if opts.noDelay {
		sessionOpts = append(sessionOpts, orchestrator.WithThinkDelay(0, 0))
	} else {
		sessionOpts = append(sessionOpts, orchestrator.WithThinkDelay(cfg.ThinkDelayMin, cfg.ThinkDelayMax))
	}

	conv := conversation.New(kv, store.KeyHistory)
	if err := conv.Restore(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}

	r := &repl{
		chat:      orchestrator.NewSession(conv, responder, sessionOpts...),
		settings:  mgr,
		formatter: format.New(),
		copy:      format.NewCopyButtons(format.SystemClipboard{}, nil),
		in:        os.Stdin,
		out:       os.Stdout,
		useLiner:  liner.TerminalSupported(),
	}
	if !opts.plain {
		if renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(80)); err == nil {
			r.renderer = renderer
		}
	}
	return r.Run(ctx)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
