package main

import (
	"fmt"

	auditor "github.com/SamuelRCrider/legal-auditor"
	"github.com/SamuelRCrider/legal-auditor/config"
	"github.com/SamuelRCrider/legal-auditor/core"
	"github.com/SamuelRCrider/legal-auditor/logger"
	"github.com/SamuelRCrider/legal-auditor/store"
)

// newAnalyzer builds the detection engine, with the configured policy rules
// when a policy file is set
func newAnalyzer(c *config.Config) (*core.Analyzer, error) {
	var policy *core.Policy
	if c.Scanner.PolicyPath != "" {
		p, err := core.LoadPolicy(c.Scanner.PolicyPath)
		if err != nil {
			return nil, core.NewError(core.ErrorCategoryConfig, "load policy", err)
		}
		policy = p
		logger.Debug("detection policy loaded", "path", c.Scanner.PolicyPath, "rules", len(p.Rules))
	}

	scanner, err := core.NewScanner(core.ScannerConfig{MaxScanSizeBytes: c.Scanner.MaxScanSizeBytes}, policy)
	if err != nil {
		return nil, core.NewError(core.ErrorCategoryConfig, "build scanner", err)
	}
	return core.NewAnalyzer(scanner), nil
}

func newStore(c *config.Config) (store.Store, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	switch c.Store.Backend {
	case config.StoreElasticsearch:
		return store.NewElasticStore(store.ElasticConfig{
			URL:    c.Store.URL,
			APIKey: c.Store.APIKey,
		})
	default:
		logger.Warn("using in-memory store; records are lost on exit")
		return store.NewMemoryStore(), nil
	}
}

// newAuditor wires store, engine and audit trail. The returned func closes
// the audit trail.
func newAuditor(c *config.Config) (*auditor.Auditor, func(), error) {
	s, err := newStore(c)
	if err != nil {
		return nil, nil, err
	}

	analyzer, err := newAnalyzer(c)
	if err != nil {
		return nil, nil, err
	}

	opts := []auditor.Option{
		auditor.WithAnalyzer(analyzer),
		auditor.WithLogger(logger.WithComponent("auditor")),
	}

	closeFn := func() {}
	if c.Audit.Path != "" {
		audit, err := core.NewAuditLogger(core.AuditConfig{
			Path:          c.Audit.Path,
			Level:         core.AuditLogLevel(c.Audit.Level),
			RotationSize:  c.Audit.RotationSize,
			RetentionDays: c.Audit.RetentionDays,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open audit log: %w", err)
		}
		opts = append(opts, auditor.WithAuditLogger(audit))
		closeFn = func() {
			if err := audit.Close(); err != nil {
				logger.Warn("failed to close audit log", "error", err)
			}
		}
	}

	return auditor.New(s, opts...), closeFn, nil
}
