package source

import (
	"context"
	"fmt"

	"apub-go/internal/config"
	"apub-go/internal/pub"
)

// NewSourceFromConfig creates a Source based on the archive source type.
func NewSourceFromConfig(ctx context.Context, cfg config.ArchiveConfig, logger pub.Logger) (pub.Source, error) {
	switch cfg.Source {
	case "filesystem", "":
		return NewFileSource(logger), nil
	case "s3":
		return NewS3SourceFromConfig(ctx, cfg, logger)
	case "memory":
		return NewMemorySource(cfg.DownloadDir), nil
	default:
		return nil, fmt.Errorf("unknown archive source type: %q", cfg.Source)
	}
}
