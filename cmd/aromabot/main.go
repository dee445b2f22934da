package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"aromabot/internal/bus"
	"aromabot/internal/catalog"
	"aromabot/internal/channel"
	"aromabot/internal/config"
	"aromabot/internal/dedupe"
	"aromabot/internal/delivery"
	"aromabot/internal/dispatch"
	"aromabot/internal/domain"
	"aromabot/internal/intent"
	"aromabot/internal/knowledge"
	"aromabot/internal/metrics"
	"aromabot/internal/responder"
)

var (
	version    = "0.1.0"
	logger     *slog.Logger
	configPath string // overridable via --config flag
)

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	root := &cobra.Command{
		Use:   "aromabot",
		Short: "AromaBot: WhatsApp assistant for a fragrance store",
		Long:  "AromaBot answers customer chat messages with catalog costs, price quotes, product searches and human handoff.",
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.json (default: ~/.aromabot/config.json)")

	root.AddCommand(initCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(classifyCmd())
	root.AddCommand(askCmd())
	root.AddCommand(catalogCmd())
	root.AddCommand(configCmd())
	root.AddCommand(doctorCmd())
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("aromabot", version)
		},
	})

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveConfigPath returns the config path from --config flag or default.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

// loadConfig loads the config file and reconfigures the logger from it.
func loadConfig() (*config.Config, io.Closer, error) {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	closer, err := setupLogger(cfg.General)
	if err != nil {
		return nil, nil, err
	}
	return cfg, closer, nil
}

// setupLogger replaces the global logger with one at the configured level,
// teeing to a log file when one is set.
func setupLogger(gc config.GeneralConfig) (io.Closer, error) {
	var out io.Writer = os.Stderr
	var closer io.Closer = io.NopCloser(nil)

	if gc.LogFile != "" {
		f, err := os.OpenFile(gc.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		out = io.MultiWriter(os.Stderr, f)
		closer = f
	}

	logger = slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: parseLevel(gc.LogLevel)}))
	slog.SetDefault(logger)
	return closer, nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func initCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config template and create the data directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			if _, err := os.Stat(cfgPath); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", cfgPath)
			}
			cfg := config.Template()
			if err := config.Save(cfgPath, cfg); err != nil {
				return err
			}
			dataDir := config.ExpandPath(cfg.General.DataDir)
			if err := os.MkdirAll(dataDir, 0o755); err != nil {
				return err
			}
			logger.Info("initialized", "config", cfgPath, "dataDir", dataDir)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	return cmd
}

// stack holds the gateways built from config, shared by serve and ask.
type stack struct {
	catalog    catalog.Store
	dispatcher *dispatch.Dispatcher
	reply      domain.Delivery
	escalation domain.Delivery
}

func (s *stack) Close() {
	if s.catalog != nil {
		s.catalog.Close()
	}
}

func buildStack(ctx context.Context, cfg *config.Config, reply domain.Delivery) (*stack, error) {
	rules, err := intent.LoadRules(cfg.Intents.RulesFile)
	if err != nil {
		return nil, err
	}

	store, err := catalog.New(ctx, cfg.Catalog, logger)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	s := &stack{catalog: store}

	searcher := knowledge.New(knowledge.Config{
		Provider:   cfg.Knowledge.Provider,
		Endpoint:   cfg.Knowledge.Endpoint,
		MaxResults: cfg.Knowledge.MaxResults,
		Timeout:    config.Seconds(cfg.Knowledge.TimeoutSeconds, 10*time.Second),
		Logger:     logger,
	})

	if config.Unresolved(cfg.Responder.APIKey) {
		logger.Warn("responder API key is not set", "hint", "export OPENROUTER_API_KEY")
	}
	gen := responder.New(responder.Config{
		APIKey:    cfg.Responder.APIKey,
		APIBase:   cfg.Responder.APIBase,
		Model:     cfg.Responder.Model,
		Persona:   cfg.Responder.Persona,
		MaxTokens: cfg.Responder.MaxTokens,
		Timeout:   config.Seconds(cfg.Responder.TimeoutSeconds, 30*time.Second),
		Logger:    logger,
	})

	if reply == nil {
		reply, err = delivery.New("", cfg.Delivery, logger)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("delivery: %w", err)
		}
	}
	s.reply = reply
	s.escalation = reply

	var escalateTo string
	if cfg.Escalation.Enabled {
		escalateTo = cfg.Escalation.Recipient
		if p := cfg.Escalation.Provider; p != "" && p != reply.Name() {
			s.escalation, err = delivery.New(p, cfg.Delivery, logger)
			if err != nil {
				s.Close()
				return nil, fmt.Errorf("escalation delivery: %w", err)
			}
		}
	}

	s.dispatcher = dispatch.New(dispatch.Config{
		Classifier:  intent.NewClassifier(rules),
		Catalog:     store,
		Knowledge:   searcher,
		Responder:   gen,
		Divisor:     cfg.Pricing.Divisor,
		EscalateTo:  escalateTo,
		MaxSnippets: cfg.Knowledge.MaxResults,
		Timeouts: dispatch.Timeouts{
			Catalog:   config.Seconds(cfg.Catalog.TimeoutSeconds, 10*time.Second),
			Knowledge: config.Seconds(cfg.Knowledge.TimeoutSeconds, 10*time.Second),
			Responder: config.Seconds(cfg.Responder.TimeoutSeconds, 30*time.Second),
		},
		Logger: logger,
	})
	return s, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the webhook server and dispatch workers",
		Long:  "Accepts gateway webhooks, dispatches each message to one reply and delivers it. Press Ctrl+C to stop.",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logCloser, err := loadConfig()
	if err != nil {
		return err
	}
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := buildStack(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer st.Close()

	messageBus := bus.New(cfg.General.QueueSize, logger)

	pool := dispatch.NewPool(dispatch.PoolConfig{
		Bus:             messageBus,
		Dispatcher:      st.dispatcher,
		Delivery:        st.reply,
		Escalation:      st.escalation,
		Workers:         cfg.General.Workers,
		DeliveryTimeout: config.Seconds(cfg.Delivery.TimeoutSeconds, 15*time.Second),
		Logger:          logger,
	})
	poolDone := make(chan struct{})
	go func() {
		defer close(poolDone)
		pool.Run(ctx)
	}()

	webhook := channel.NewWebhook(channel.WebhookConfig{
		Bus:    messageBus,
		Secret: cfg.Server.Secret,
		Dedupe: dedupe.New(config.Seconds(cfg.Dedupe.TTLSeconds, 0), cfg.Dedupe.MaxEntries),
		Logger: logger,
	})
	server := channel.NewServer(channel.ServerConfig{
		Host:        cfg.Server.Host,
		Port:        cfg.Server.Port,
		WebhookPath: cfg.Server.WebhookPath,
		MetricsPath: cfg.Server.MetricsPath,
		Webhook:     webhook,
		Metrics:     metrics.Collector.Handler(),
		Logger:      logger,
	})

	logger.Info("aromabot started",
		"version", version,
		"catalog", cfg.Catalog.Backend,
		"delivery", st.reply.Name(),
		"escalation", cfg.Escalation.Enabled,
		"workers", cfg.General.Workers,
	)

	serveErr := server.Start(ctx)
	stop()

	// Webhooks are no longer accepted; let queued and in-flight units finish.
	const shutdownTimeout = 30 * time.Second
	messageBus.Close()
	select {
	case <-poolDone:
		logger.Info("shutdown complete")
	case <-time.After(shutdownTimeout):
		logger.Warn("shutdown timed out, forcing exit")
		if serveErr == nil {
			serveErr = fmt.Errorf("shutdown timed out")
		}
	}
	return serveErr
}

func classifyCmd() *cobra.Command {
	var rulesFile string
	cmd := &cobra.Command{
		Use:   "classify [text]",
		Short: "Show the intent a message is classified as",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if rulesFile == "" {
				if cfg, err := config.Load(resolveConfigPath()); err == nil {
					rulesFile = cfg.Intents.RulesFile
				}
			}
			rules, err := intent.LoadRules(rulesFile)
			if err != nil {
				return err
			}
			text := strings.ToLower(strings.TrimSpace(strings.Join(args, " ")))
			in := intent.NewClassifier(rules).Classify(text)

			out := map[string]any{"intent": in.Kind.String()}
			if in.Code != "" {
				out["code"] = in.Code
			}
			if in.Name != "" {
				out["name"] = in.Name
			}
			if in.Kind == intent.PriceQuote {
				if in.Err != nil {
					out["error"] = in.Err.Error()
				} else {
					out["markup"] = in.Markup.String()
				}
			}
			if len(in.Keywords) > 0 {
				out["keywords"] = in.Keywords
			}
			data, _ := json.MarshalIndent(out, "", "  ")
			fmt.Println(string(data))
			return nil
		},
	}
	cmd.Flags().StringVar(&rulesFile, "rules", "", "intent rules YAML (default: intents.rulesFile from config)")
	return cmd
}

func askCmd() *cobra.Command {
	var (
		sender string
		send   bool
	)
	cmd := &cobra.Command{
		Use:   "ask [text]",
		Short: "Dispatch one message and print the reply",
		Long:  "Runs a message through classification and fulfillment against the configured gateways. Replies are printed unless --send is given.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logCloser, err := loadConfig()
			if err != nil {
				return err
			}
			defer logCloser.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var reply domain.Delivery
			if !send {
				reply = delivery.NewLog(logger)
			}
			st, err := buildStack(ctx, cfg, reply)
			if err != nil {
				return err
			}
			defer st.Close()

			raw := strings.TrimSpace(strings.Join(args, " "))
			msg := domain.InboundMessage{
				ID:         "cli",
				Sender:     channel.NormalizeSender(sender),
				Text:       strings.ToLower(raw),
				RawText:    raw,
				ReceivedAt: time.Now(),
			}

			if send {
				pool := dispatch.NewPool(dispatch.PoolConfig{
					Dispatcher:      st.dispatcher,
					Delivery:        st.reply,
					Escalation:      st.escalation,
					DeliveryTimeout: config.Seconds(cfg.Delivery.TimeoutSeconds, 15*time.Second),
					Logger:          logger,
				})
				result := pool.Handle(ctx, msg)
				fmt.Println(result.ReplyText)
				return nil
			}

			result, in := st.dispatcher.Dispatch(ctx, msg)
			fmt.Printf("[%s]\n%s\n", in.Kind, result.ReplyText)
			if result.Escalation != nil {
				fmt.Printf("\n[escalation to %s]\n%s\n", result.Escalation.Recipient, result.Escalation.Text)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&sender, "sender", "cli", "sender id used for the message")
	cmd.Flags().BoolVar(&send, "send", false, "deliver the reply through the configured delivery provider")
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and modify configuration",
		Long:  "Get, set, and list configuration values. Changes are saved to the config file.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get [path]",
		Short: "Get a config value (e.g. delivery.provider)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			val, err := config.GetByPath(config.Sanitize(cfg), args[0])
			if err != nil {
				return err
			}
			data, _ := json.MarshalIndent(val, "", "  ")
			fmt.Println(string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set [path] [value]",
		Short: "Set a config value (e.g. pricing.divisor 0.7442)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := config.SetByPath(cfg, args[0], args[1]); err != nil {
				return fmt.Errorf("set value: %w", err)
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}
			if err := config.Save(cfgPath, cfg); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			logger.Info("config updated", "path", args[0], "value", args[1], "file", cfgPath)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all config values",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			data, _ := json.MarshalIndent(config.Sanitize(cfg), "", "  ")
			fmt.Println(string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show config file path",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(resolveConfigPath())
		},
	})

	return cmd
}
