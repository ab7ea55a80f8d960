package main

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"subscan/internal/amqp"
	"subscan/internal/analysis"
	"subscan/internal/backend"
	"subscan/internal/cli"
	"subscan/internal/config"
	"subscan/internal/extract"
	"subscan/internal/log"
	"subscan/internal/render"
	"subscan/internal/scanner"
)

type scanFlags struct {
	format      string
	jsonOut     bool
	raw         bool
	backend     string
	mailboxDir  string
	maxMessages int
	workers     int
	rulesFile   string
	queries     []string
	strict      bool
	noPublish   bool
	logLevel    string
}

// newScanCmd builds the scan command. A nil opener uses backend.NewOpener.
func newScanCmd(opener backend.Opener) *cobra.Command {
	var f scanFlags

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan the mailbox and print a subscription spending report",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadAndValidateConfig(f.overrides(cmd))
			if err != nil {
				return err
			}

			logger, err := cli.SetupLogger(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return err
			}

			ctx, stop := cli.SignalContext(cmd.Context())
			defer stop()

			op := opener
			if op == nil {
				op = backend.NewOpener(logger.WithComponent(log.ComponentBackend))
			}
			return runScan(log.WithContext(ctx, logger), cfg, op, cmd.OutOrStdout())
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.format, "format", "", "Report format: text, json or raw (env REPORT_FORMAT)")
	fl.BoolVar(&f.jsonOut, "json", false, "Shorthand for --format json")
	fl.BoolVar(&f.raw, "raw", false, "Shorthand for --format raw")
	fl.StringVar(&f.backend, "backend", "", "Mailbox backend: gmail or memory (env MAIL_BACKEND)")
	fl.StringVar(&f.mailboxDir, "mailbox-dir", "", "Fixture directory for the memory backend (env MEMORY_MAILBOX_DIR)")
	fl.IntVar(&f.maxMessages, "max", 0, "Maximum messages to process (env SCAN_MAX_MESSAGES)")
	fl.IntVar(&f.workers, "workers", 0, "Concurrent fetches (env SCAN_WORKERS)")
	fl.StringVar(&f.rulesFile, "rules", "", "YAML merchant rules file (env MERCHANT_RULES_FILE)")
	fl.StringArrayVarP(&f.queries, "query", "q", nil, "Search query, repeatable (env SCAN_QUERIES)")
	fl.BoolVar(&f.strict, "require-dollar", false, "Only accept $-prefixed amounts (env EXTRACT_REQUIRE_DOLLAR_SIGN)")
	fl.BoolVar(&f.noPublish, "no-publish", false, "Skip AMQP publication even when AMQP_URL is set")
	fl.StringVar(&f.logLevel, "log-level", "", "Log level: debug, info, warn or error (env LOG_LEVEL)")
	cmd.MarkFlagsMutuallyExclusive("format", "json", "raw")

	return cmd
}

// overrides applies explicitly set flags on top of the environment.
func (f *scanFlags) overrides(cmd *cobra.Command) func(*config.Config) {
	return func(c *config.Config) {
		changed := cmd.Flags().Changed
		switch {
		case f.jsonOut:
			c.ReportFormat = config.FormatJSON
		case f.raw:
			c.ReportFormat = config.FormatRaw
		case changed("format"):
			c.ReportFormat = f.format
		}
		if changed("backend") {
			c.MailBackend = f.backend
		}
		if changed("mailbox-dir") {
			c.MemoryMailboxDir = f.mailboxDir
		}
		if changed("max") {
			c.MaxMessages = f.maxMessages
		}
		if changed("workers") {
			c.Workers = f.workers
		}
		if changed("rules") {
			c.MerchantRulesFile = f.rulesFile
		}
		if changed("query") {
			c.Queries = f.queries
		}
		if changed("require-dollar") {
			c.RequireDollarSign = f.strict
		}
		if f.noPublish {
			c.AMQPURL = ""
		}
		if changed("log-level") {
			c.LogLevel = f.logLevel
		}
	}
}

func runScan(ctx context.Context, cfg *config.Config, opener backend.Opener, stdout io.Writer) error {
	scanID := uuid.New()
	logger := log.FromContext(ctx).With(log.NewFields().WithScanID(scanID.String()).ToSlice()...)

	rules, err := extract.LoadRules(cfg.MerchantRulesFile)
	if err != nil {
		return err
	}
	extractor := extract.New(extract.NewResolver(rules), extract.Options{
		Limits:            extract.DefaultLimits(),
		RequireDollarSign: cfg.RequireDollarSign,
	})

	mcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	opened, err := opener.Open(ctx, mcfg)
	if err != nil {
		return err
	}
	if opened.Close != nil {
		defer func() {
			if err := opened.Close(); err != nil {
				logger.Warn("Closing mailbox failed", log.FieldError, err)
			}
		}()
	}

	logger.InfoContext(ctx, "Starting scan",
		log.FieldBackend, cfg.MailBackend,
		"rules", len(rules),
		"max_messages", cfg.MaxMessages)

	sc := scanner.New(opened.Mailbox, opened.Mailbox, extractor, scanner.Options{
		Queries:     cfg.Queries,
		MaxMessages: cfg.MaxMessages,
		Workers:     cfg.Workers,
		Logger:      logger.WithComponent(log.ComponentScanner).Slog(),
	})
	result, err := sc.Run(ctx)
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}

	report := analysis.Produce(result.Facts)

	switch cfg.ReportFormat {
	case config.FormatJSON:
		err = render.JSON(stdout, report)
	case config.FormatRaw:
		err = render.Raw(stdout, result.Facts)
	default:
		err = render.Text(stdout, report, render.TextOptions{BarWidth: cfg.BarWidth})
	}
	if err != nil {
		return fmt.Errorf("render report: %w", err)
	}

	if cfg.AMQPURL == "" {
		return nil
	}
	publisher := amqp.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey,
		amqp.DefaultRetryPolicy(), logger.WithComponent(log.ComponentAMQP).Slog())
	defer publisher.Close()

	if err := publisher.PublishReport(ctx, amqp.NewReportMessage(scanID, report, &result.Stats)); err != nil {
		logger.ErrorContext(ctx, "Failed to publish scan report", log.FieldError, err)
		return fmt.Errorf("publish report: %w", err)
	}
	return nil
}
