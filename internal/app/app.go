package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"apub-go/internal/archive"
	"apub-go/internal/config"
	"apub-go/internal/encryption"
	"apub-go/internal/fs"
	"apub-go/internal/metrics"
	"apub-go/internal/pub"
	"apub-go/internal/publish"
	"apub-go/internal/report"
	"apub-go/internal/source"
	"apub-go/internal/staging"
	"apub-go/internal/vcs"
)

// Options tune how an App talks to the user.
type Options struct {
	// Command names the CLI command being run (e.g. "publish", "inspect").
	Command string
	// Verbose lowers the console log level to DEBUG.
	Verbose bool
	// Color enables ANSI colors in console log lines.
	Color bool
	// Console receives log lines. Defaults to os.Stderr.
	Console io.Writer
	// Out receives reports. Defaults to os.Stdout.
	Out io.Writer
	// Passphrase supplies the key passphrase when an encrypted archive is opened.
	Passphrase func() (string, error)

	IDs   pub.IDGenerator
	Clock pub.Clock
}

// App is the application layer between the CLI and the pipeline.
// It constructs all dependencies from config, exposes high-level operations
// and owns the log file, which Close releases.
type App struct {
	cfg     *config.Config
	opts    Options
	op      *Operation
	logger  pub.Logger
	logFile *os.File
	fsmgr   *fs.OSFilesystemManager
	skip    *fs.SkipMatcher
}

// New creates an App from cfg. The caller must call Close when done.
func New(cfg *config.Config, opts Options) (*App, error) {
	if opts.Console == nil {
		opts.Console = os.Stderr
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.IDs == nil {
		opts.IDs = pub.UUIDGenerator{}
	}
	if opts.Clock == nil {
		opts.Clock = pub.RealClock{}
	}

	op := NewOperation(opts.IDs, opts.Clock, opts.Command, cfg.Archive.Path)

	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	l, logFile, err := newLogger(cfg.LogDir, op.ID, opts.Console, level, opts.Color)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	allowed := cfg.Extract.AllowDotfiles
	if allowed == nil {
		allowed = fs.DefaultAllowedDotfiles
	}
	patterns := cfg.Extract.Skip
	if patterns == nil {
		patterns = fs.DefaultSkipPatterns
	}

	a := &App{
		cfg:     cfg,
		opts:    opts,
		op:      op,
		logger:  &slogAdapter{l: l},
		logFile: logFile,
		fsmgr:   fs.NewOSFilesystemManager(),
		skip:    fs.NewSkipMatcher(allowed, patterns),
	}
	a.logger.Debug("operation started", "command", op.Command)
	return a, nil
}

// RunID returns the id of the current operation.
func (a *App) RunID() string { return a.op.ID }

// Publish runs the full pipeline for ref, or for the configured archive
// path when ref is empty. The summary is always non-nil once configuration
// has been validated; the error is the run's fatal error, if any.
func (a *App) Publish(ctx context.Context, ref string) (*pub.RunSummary, error) {
	if ref != "" {
		a.cfg.Archive.Path = ref
	}
	if err := a.cfg.Validate(); err != nil {
		return nil, a.finish(err)
	}

	workDir, err := filepath.Abs(a.cfg.Workdir.Path)
	if err != nil {
		return nil, a.finish(fmt.Errorf("resolving working directory: %w", err))
	}

	c, err := a.components(ctx, workDir)
	if err != nil {
		return nil, a.finish(err)
	}

	svc := pub.NewService(c, pub.RunOptions{
		RunID:       a.op.ID,
		ArchiveRef:  a.cfg.Archive.Path,
		WorkDir:     workDir,
		KeepWorkDir: a.cfg.Workdir.Keep,
	})
	summary := svc.Run(ctx)

	if summary.Audit != nil && summary.Audit.TotalFiles > 0 {
		if err := report.WriteAudit(a.opts.Out, summary.Audit); err != nil {
			a.logger.Warn("failed to write audit report", "error", err)
		}
	}
	if err := report.WriteRun(a.opts.Out, summary); err != nil {
		a.logger.Warn("failed to write run summary", "error", err)
	}
	return summary, a.finish(summary.Err)
}

func (a *App) components(ctx context.Context, workDir string) (pub.Components, error) {
	src, err := a.source(ctx)
	if err != nil {
		return pub.Components{}, err
	}

	repo, err := vcs.NewRepositoryFromConfig(a.cfg.Repository, workDir, a.logger)
	if err != nil {
		return pub.Components{}, fmt.Errorf("creating repository backend: %w", err)
	}

	var ignore []byte
	if !a.cfg.Ignore.Disabled {
		ignore, err = fs.LoadIgnoreTemplate(a.cfg.Ignore.TemplatePath)
		if err != nil {
			return pub.Components{}, err
		}
	}
	identity := pub.Identity{Name: a.cfg.Identity.Name, Email: a.cfg.Identity.Email}

	return pub.Components{
		Source:      src,
		Inspector:   archive.NewInspector(a.skip, a.logger),
		Extractor:   archive.NewExtractor(a.skip, a.logger),
		Normalizer:  fs.NewNormalizer(a.logger),
		Auditor:     fs.NewAuditor(a.logger),
		Initializer: vcs.NewInitializer(repo, identity, a.cfg.Remote.Branch, ignore, a.logger),
		Stager:      staging.NewEngineFromConfig(a.cfg.Staging, repo, a.fsmgr, a.logger),
		Publisher:   publish.NewManagerFromConfig(a.cfg.Remote, a.cfg.Publish, repo, a.opts.Clock, a.logger),
		FS:          a.fsmgr,
		Metrics:     metrics.NewMetricsFromConfig(a.cfg.Metrics, a.logger),
		Logger:      a.logger,
		Clock:       a.opts.Clock,
	}, nil
}

// source builds the configured archive source, wrapped so that .age
// archives are decrypted on open.
func (a *App) source(ctx context.Context) (pub.Source, error) {
	src, err := source.NewSourceFromConfig(ctx, a.cfg.Archive, a.logger)
	if err != nil {
		return nil, fmt.Errorf("creating archive source: %w", err)
	}
	return source.NewDecryptingSource(src, a.unlock, a.cfg.Archive.DownloadDir, a.logger), nil
}

func (a *App) unlock() (pub.DecryptionContext, error) {
	enc, err := encryption.NewEncryptorFromConfig(a.cfg.Encryption)
	if err != nil {
		return nil, err
	}
	if !enc.IsConfigured() {
		return nil, fmt.Errorf("no key pair found (run `apub keys init`): %w", pub.ErrConfigurationMissing)
	}
	passphrase, err := a.passphrase()
	if err != nil {
		return nil, err
	}
	return enc.Unlock(passphrase)
}

func (a *App) passphrase() (string, error) {
	if v := os.Getenv(config.EnvPassphrase); v != "" {
		return v, nil
	}
	if a.opts.Passphrase == nil {
		return "", fmt.Errorf("passphrase (%s): %w", config.EnvPassphrase, pub.ErrConfigurationMissing)
	}
	return a.opts.Passphrase()
}

// Inspect reports the structure of an archive without extracting it.
func (a *App) Inspect(ctx context.Context, ref string) (*pub.ArchiveSummary, error) {
	src, err := a.source(ctx)
	if err != nil {
		return nil, a.finish(err)
	}
	arc, err := src.Open(ctx, ref)
	if err != nil {
		return nil, a.finish(fmt.Errorf("opening archive: %w", err))
	}
	defer arc.Close()

	s, err := archive.NewInspector(a.skip, a.logger).Inspect(ctx, arc)
	if err != nil {
		return nil, a.finish(err)
	}
	return s, a.finish(report.WriteStructure(a.opts.Out, s))
}

// Audit classifies the files of an existing directory tree.
func (a *App) Audit(dir string) (*pub.AuditReport, error) {
	r, err := fs.NewAuditor(a.logger).Audit(dir)
	if err != nil {
		return nil, a.finish(err)
	}
	return r, a.finish(report.WriteAudit(a.opts.Out, r))
}

// InitKeys generates the key pair for encrypted archives and returns the
// public key.
func (a *App) InitKeys(passphrase string) (string, error) {
	enc, err := encryption.NewEncryptorFromConfig(a.cfg.Encryption)
	if err != nil {
		return "", a.finish(err)
	}
	if err := enc.Setup(passphrase); err != nil {
		return "", a.finish(fmt.Errorf("setting up keys: %w", err))
	}
	a.logger.Info("key pair created", "public_key_path", a.cfg.Encryption.PublicKeyPath)

	var key string
	if age, ok := enc.(*encryption.AgeEncryptor); ok {
		key, err = age.PublicKey()
	}
	return key, a.finish(err)
}

// EncryptArchive writes an encrypted copy of the archive at path next to it
// and returns the new path.
func (a *App) EncryptArchive(path string) (string, error) {
	enc, err := encryption.NewEncryptorFromConfig(a.cfg.Encryption)
	if err != nil {
		return "", a.finish(err)
	}
	if !enc.IsConfigured() {
		return "", a.finish(fmt.Errorf("no key pair found (run `apub keys init`): %w", pub.ErrConfigurationMissing))
	}
	dst, err := encryption.EncryptFile(enc, path)
	if err != nil {
		return "", a.finish(fmt.Errorf("encrypting %s: %w", path, err))
	}
	a.logger.Info("archive encrypted", "path", dst)
	return dst, a.finish(nil)
}

// finish records err as the operation's outcome and returns it.
func (a *App) finish(err error) error {
	a.op.Finish(a.opts.Clock, err)
	return err
}

// Close logs the operation's outcome and closes the log file.
func (a *App) Close() error {
	a.op.Finish(a.opts.Clock, nil)
	a.logger.Debug("operation finished", "command", a.op.Command, "status", a.op.Status, "elapsed", a.op.Elapsed())

	if a.logFile == nil {
		return nil
	}
	err := a.logFile.Close()
	a.logFile = nil
	if err != nil && !errors.Is(err, os.ErrClosed) {
		return fmt.Errorf("closing log file: %w", err)
	}
	return nil
}
