package staging

import (
	"apub-go/internal/config"
	"apub-go/internal/pub"
)

// NewEngineFromConfig creates an Engine with the configured tier parameters.
func NewEngineFromConfig(cfg config.StagingConfig, repo pub.Repository, fsmgr pub.FilesystemManager, logger pub.Logger) *Engine {
	return NewEngine(repo, fsmgr, logger, Options{
		BatchSize:         cfg.BatchSize,
		BulkTimeout:       cfg.BulkTimeout.Duration,
		BatchTimeout:      cfg.BatchTimeout.Duration,
		IndividualTimeout: cfg.IndividualTimeout.Duration,
	})
}
