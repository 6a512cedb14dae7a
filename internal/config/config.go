package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"apub-go/internal/pub"
)

// Environment variables that override file values.
const (
	EnvToken      = "APUB_TOKEN"
	EnvPassphrase = "APUB_PASSPHRASE"
)

// Config represents the main configuration for apub.
type Config struct {
	BaseDir    string           `toml:"base_dir"`
	LogDir     string           `toml:"log_dir"`
	Archive    ArchiveConfig    `toml:"archive"`
	Workdir    WorkdirConfig    `toml:"workdir"`
	Remote     RemoteConfig     `toml:"remote"`
	Identity   IdentityConfig   `toml:"identity"`
	Extract    ExtractConfig    `toml:"extract"`
	Staging    StagingConfig    `toml:"staging"`
	Publish    PublishConfig    `toml:"publish"`
	Repository RepositoryConfig `toml:"repository"`
	Ignore     IgnoreConfig     `toml:"ignore"`
	Encryption EncryptionConfig `toml:"encryption"`
	Metrics    MetricsConfig    `toml:"metrics"`
}

// ArchiveConfig describes where archives come from.
// This uses a tagged union pattern - the Source field determines which other fields are relevant.
type ArchiveConfig struct {
	Source      string `toml:"source"` // "filesystem" (default), "s3" or "memory"
	Path        string `toml:"path,omitempty"`
	DownloadDir string `toml:"download_dir,omitempty"`

	// S3-specific fields (only used when Source == "s3")
	S3Bucket          string `toml:"s3_bucket,omitempty"`
	S3Prefix          string `toml:"s3_prefix,omitempty"`
	S3Region          string `toml:"s3_region,omitempty"`
	S3Endpoint        string `toml:"s3_endpoint,omitempty"`
	S3AccessKeyID     string `toml:"s3_access_key_id,omitempty"`
	S3SecretAccessKey string `toml:"s3_secret_access_key,omitempty"`
}

// WorkdirConfig is the directory the archive is extracted into.
type WorkdirConfig struct {
	Path string `toml:"path"`
	Keep bool   `toml:"keep"`
}

// RemoteConfig identifies the hosted repository and its credentials.
type RemoteConfig struct {
	Host        string `toml:"host"`
	Owner       string `toml:"owner"`
	User        string `toml:"user,omitempty"`
	Repo        string `toml:"repo"`
	Token       string `toml:"token,omitempty"`
	URLTemplate string `toml:"url_template,omitempty"`
	Name        string `toml:"name"`
	Branch      string `toml:"branch"`
}

// IdentityConfig is the commit author.
type IdentityConfig struct {
	Name  string `toml:"name"`
	Email string `toml:"email"`
}

// ExtractConfig controls which archive entries are skipped.
type ExtractConfig struct {
	AllowDotfiles []string `toml:"allow_dotfiles"`
	Skip          []string `toml:"skip"`
}

// StagingConfig holds the staging tier parameters.
type StagingConfig struct {
	BatchSize         int      `toml:"batch_size"`
	BulkTimeout       Duration `toml:"bulk_timeout"`
	BatchTimeout      Duration `toml:"batch_timeout"`
	IndividualTimeout Duration `toml:"individual_timeout"`
}

// PublishConfig holds the push retry parameters.
type PublishConfig struct {
	MaxAttempts int      `toml:"max_attempts"`
	BackoffStep Duration `toml:"backoff_step"`
	PushTimeout Duration `toml:"push_timeout"`
}

// RepositoryConfig selects the version-control backend.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type RepositoryConfig struct {
	Type string `toml:"type"` // "git" (default) or "gogit"

	// git-specific fields (only used when Type == "git")
	GitPath      string `toml:"git_path,omitempty"`
	TrustWorkDir bool   `toml:"trust_workdir"`
}

// IgnoreConfig controls the ignore file written into the repository.
type IgnoreConfig struct {
	TemplatePath string `toml:"template_path,omitempty"` // empty means the built-in template
	Disabled     bool   `toml:"disabled,omitempty"`
}

// EncryptionConfig holds paths to the age key pair used for encrypted archives.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "age" (default)
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
}

// MetricsConfig controls the Prometheus textfile written after each run.
type MetricsConfig struct {
	TextfilePath string `toml:"textfile_path,omitempty"` // empty disables metrics
}

// Duration is a time.Duration that reads and writes as a string like "90s".
type Duration struct {
	time.Duration
}

// Seconds returns a Duration of n seconds.
func Seconds(n int) Duration {
	return Duration{time.Duration(n) * time.Second}
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

// NewConfig creates a Config rooted at baseDir with default values.
func NewConfig(baseDir string) *Config {
	return &Config{
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Archive: ArchiveConfig{
			Source:      "filesystem",
			DownloadDir: filepath.Join(baseDir, "downloads"),
		},
		Workdir: WorkdirConfig{Path: filepath.Join(baseDir, "work")},
		Remote: RemoteConfig{
			Host:   "github.com",
			Name:   "origin",
			Branch: "main",
		},
		Extract: ExtractConfig{
			AllowDotfiles: []string{".gitignore", ".env"},
			Skip:          []string{"__MACOSX/**"},
		},
		Staging: StagingConfig{
			BatchSize:         30,
			BulkTimeout:       Seconds(300),
			BatchTimeout:      Seconds(90),
			IndividualTimeout: Seconds(30),
		},
		Publish: PublishConfig{
			MaxAttempts: 3,
			BackoffStep: Seconds(10),
			PushTimeout: Seconds(900),
		},
		Repository: RepositoryConfig{Type: "git", TrustWorkDir: true},
		Encryption: EncryptionConfig{
			Type:           "age",
			PublicKeyPath:  filepath.Join(baseDir, "keys", "apub.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "apub.key"),
		},
	}
}

// ApplyEnv overrides file values with environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvToken); v != "" {
		c.Remote.Token = v
	}
}

// Validate reports every required value that is absent, wrapped in
// pub.ErrConfigurationMissing.
func (c *Config) Validate() error {
	var missing []string
	check := func(name, v string) {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	check("archive.path", c.Archive.Path)
	check("workdir.path", c.Workdir.Path)
	check("remote.host", c.Remote.Host)
	check("remote.owner", c.Remote.Owner)
	check("remote.repo", c.Remote.Repo)
	check("remote.token", c.Remote.Token)
	check("identity.name", c.Identity.Name)
	check("identity.email", c.Identity.Email)

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", pub.ErrConfigurationMissing, strings.Join(missing, ", "))
	}
	return nil
}

// Redacted returns a copy of c with secrets masked, for display.
func (c *Config) Redacted() *Config {
	out := *c
	if out.Remote.Token != "" {
		out.Remote.Token = "***"
	}
	if out.Archive.S3SecretAccessKey != "" {
		out.Archive.S3SecretAccessKey = "***"
	}
	return &out
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader. Unknown keys are rejected
// so that typos do not silently fall back to defaults.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	md, err := toml.NewDecoder(r).Decode(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path. The file holds a
// token, so it is created owner-readable only.
func writeToFile(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
