package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/breeze-rmm/registry-inspector/internal/audit"
	"github.com/breeze-rmm/registry-inspector/internal/config"
	"github.com/breeze-rmm/registry-inspector/internal/hostinfo"
	"github.com/breeze-rmm/registry-inspector/internal/inspector"
	"github.com/breeze-rmm/registry-inspector/internal/logging"
	"github.com/breeze-rmm/registry-inspector/internal/privilege"
	"github.com/breeze-rmm/registry-inspector/internal/report"
	"github.com/breeze-rmm/registry-inspector/internal/store"
)

// openStore is replaced in tests.
var openStore = store.Open

// collectHost is replaced in tests.
var collectHost = hostinfo.Collect

func runCheck(cmd *cobra.Command, cfgFile string, args []string, stdout, stderr io.Writer) error {
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	validation := cfg.ValidateTiered()
	if validation.HasFatals() {
		for _, e := range validation.Fatals {
			fmt.Fprintln(stderr, "config:", e)
		}
		return &exitCodeError{code: exitUsage}
	}

	logger := logging.New(cfg.LogFormat, cfg.LogLevel, stderr)
	defer logger.Sync()
	log := logging.Component(logger, "cli")

	for _, w := range validation.Warnings {
		log.Warn("config corrected", zap.Error(w))
	}

	format, _ := report.ParseFormat(cfg.Format)

	req := cfg.Check.Request()
	if len(args) == 3 {
		req = inspector.Request{Location: args[0], ValueName: args[1], Expected: args[2]}
	}

	var res inspector.Result
	st, err := openStore(store.Kind(strings.ToLower(cfg.Store)), cfg.StoreFile)
	if err != nil {
		log.Debug("store unavailable", zap.String("store", cfg.Store), zap.Error(err))
		res = inspector.ReadFailure(req, err.Error())
	} else {
		res = inspector.New(st, logger).Inspect(req)
	}

	if res.ErrorKind == inspector.ErrorReadFailure {
		if hint := privilege.Hint(); hint != "" {
			log.Warn(hint, zap.String(logging.KeyLocation, req.Location))
		}
	}

	var host *hostinfo.Info
	if format == report.FormatJSON || cfg.AuditLog != "" {
		h := collectHost()
		host = &h
	}

	if cfg.AuditLog != "" {
		recordAudit(cfg, res, host, logger)
	}

	reporter := &report.Reporter{Format: format, Host: host}
	if err := reporter.Write(stdout, res); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}

	return exitFor(res, cfg.FailOnVulnerable)
}

func recordAudit(cfg *config.Config, res inspector.Result, host *hostinfo.Info, logger *zap.Logger) {
	al, err := audit.NewLogger(audit.Options{
		Path:       cfg.AuditLog,
		MaxSizeMB:  cfg.AuditMaxSizeMB,
		MaxBackups: cfg.AuditMaxBackups,
	}, logger)
	if err != nil {
		logging.Component(logger, "cli").Warn("audit log unavailable", zap.String("path", cfg.AuditLog), zap.Error(err))
		return
	}
	defer al.Close()

	al.LogCheck(res, host)
}

func exitFor(res inspector.Result, failOnVulnerable bool) error {
	switch {
	case res.IsError():
		return &exitCodeError{code: exitError}
	case res.Verdict == inspector.VerdictVulnerable && failOnVulnerable:
		return &exitCodeError{code: exitVulnerable}
	default:
		return nil
	}
}

func newVerifyAuditCmd(cfgFile *string, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "verify-audit [audit-log]",
		Short: "Verify the hash chain of an audit log",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			} else {
				cfg, err := config.Load(*cfgFile, nil)
				if err != nil {
					return fmt.Errorf("failed to load config: %w", err)
				}
				path = cfg.AuditLog
			}
			if path == "" {
				return fmt.Errorf("no audit log given and audit_log is not configured")
			}

			n, err := audit.VerifyChain(path)
			if err != nil {
				fmt.Fprintf(stdout, "INVALID: %v (%d entries verified)\n", err, n)
				return &exitCodeError{code: exitError}
			}
			fmt.Fprintf(stdout, "OK: %d entries verified\n", n)
			return nil
		},
	}
}
