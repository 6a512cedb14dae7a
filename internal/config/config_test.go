package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"apub-go/internal/pub"
)

func TestManager_ReadWrite_RoundTrip(t *testing.T) {
	original := NewConfig("/home/user/.local/share/apub")
	original.Archive.Path = "/incoming/project.zip"
	original.Remote.Owner = "acme"
	original.Remote.Repo = "site"
	original.Remote.Token = "ghp_secret"
	original.Identity = IdentityConfig{Name: "Archive Bot", Email: "bot@example.com"}
	original.Staging.BatchTimeout = Duration{45 * time.Second}
	original.Metrics.TextfilePath = "/var/lib/node_exporter/apub.prom"

	var buf bytes.Buffer
	m := &Manager{}

	if err := m.Write(&buf, original); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if !strings.Contains(buf.String(), `batch_timeout = "45s"`) {
		t.Errorf("durations not written as strings:\n%s", buf.String())
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if diff := cmp.Diff(original, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestManager_Read(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		check   func(t *testing.T, cfg *Config)
		wantErr string
	}{
		{
			name: "durations and tagged union",
			input: `
[staging]
batch_size = 10
bulk_timeout = "5m"

[repository]
type = "gogit"
`,
			check: func(t *testing.T, cfg *Config) {
				if cfg.Staging.BatchSize != 10 || cfg.Staging.BulkTimeout.Duration != 5*time.Minute {
					t.Errorf("Staging = %+v", cfg.Staging)
				}
				if cfg.Repository.Type != "gogit" {
					t.Errorf("Repository.Type = %q", cfg.Repository.Type)
				}
			},
		},
		{
			name:    "invalid duration",
			input:   "[publish]\nbackoff_step = \"soon\"\n",
			wantErr: "invalid duration",
		},
		{
			name:    "unknown key",
			input:   "[remote]\nowner = \"acme\"\nrepository = \"site\"\n",
			wantErr: "remote.repository",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := (&Manager{}).Read(strings.NewReader(tt.input))
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("Read() error = %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			tt.check(t, cfg)
		})
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("/data/apub")

	if cfg.LogDir != "/data/apub/log" {
		t.Errorf("LogDir = %q, want %q", cfg.LogDir, "/data/apub/log")
	}
	if cfg.Workdir.Path != "/data/apub/work" {
		t.Errorf("Workdir.Path = %q", cfg.Workdir.Path)
	}
	if cfg.Encryption.PrivateKeyPath != "/data/apub/keys/apub.key" {
		t.Errorf("Encryption.PrivateKeyPath = %q", cfg.Encryption.PrivateKeyPath)
	}
	if cfg.Staging.BatchSize != 30 || cfg.Staging.BulkTimeout.Duration != 300*time.Second ||
		cfg.Staging.BatchTimeout.Duration != 90*time.Second || cfg.Staging.IndividualTimeout.Duration != 30*time.Second {
		t.Errorf("Staging = %+v", cfg.Staging)
	}
	if cfg.Publish.MaxAttempts != 3 || cfg.Publish.BackoffStep.Duration != 10*time.Second || cfg.Publish.PushTimeout.Duration != 900*time.Second {
		t.Errorf("Publish = %+v", cfg.Publish)
	}
	if cfg.Remote.Branch != "main" || cfg.Remote.Name != "origin" {
		t.Errorf("Remote = %+v", cfg.Remote)
	}
}

func TestConfig_Validate(t *testing.T) {
	complete := func() *Config {
		cfg := NewConfig(t.TempDir())
		cfg.Archive.Path = "project.zip"
		cfg.Remote.Owner = "acme"
		cfg.Remote.Repo = "site"
		cfg.Remote.Token = "tok"
		cfg.Identity = IdentityConfig{Name: "Bot", Email: "bot@example.com"}
		return cfg
	}

	if err := complete().Validate(); err != nil {
		t.Fatalf("Validate() on complete config = %v", err)
	}

	cfg := complete()
	cfg.Remote.Token = ""
	cfg.Identity.Email = "  "
	cfg.Archive.Path = ""
	err := cfg.Validate()
	if !errors.Is(err, pub.ErrConfigurationMissing) {
		t.Fatalf("Validate() error = %v, want ErrConfigurationMissing", err)
	}
	for _, field := range []string{"archive.path", "remote.token", "identity.email"} {
		if !strings.Contains(err.Error(), field) {
			t.Errorf("error %q does not name %s", err, field)
		}
	}
}

func TestConfig_ApplyEnv(t *testing.T) {
	cfg := NewConfig(t.TempDir())
	cfg.Remote.Token = "from-file"

	t.Setenv(EnvToken, "")
	cfg.ApplyEnv()
	if cfg.Remote.Token != "from-file" {
		t.Errorf("empty env replaced token: %q", cfg.Remote.Token)
	}

	t.Setenv(EnvToken, "from-env")
	cfg.ApplyEnv()
	if cfg.Remote.Token != "from-env" {
		t.Errorf("Token = %q, want from-env", cfg.Remote.Token)
	}
}

func TestConfig_Redacted(t *testing.T) {
	cfg := NewConfig(t.TempDir())
	cfg.Remote.Token = "ghp_secret"
	cfg.Archive.S3SecretAccessKey = "aws-secret"

	r := cfg.Redacted()
	if r.Remote.Token != "***" || r.Archive.S3SecretAccessKey != "***" {
		t.Errorf("secrets not redacted: %+v %+v", r.Remote, r.Archive)
	}
	if cfg.Remote.Token != "ghp_secret" {
		t.Error("Redacted() modified the original")
	}
}

func TestInit(t *testing.T) {
	t.Run("creates config file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "nested", "apub.toml")

		if err := Init(path, NewConfig(dir)); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("config file not created: %v", err)
		}
		if info.Mode().Perm() != 0o600 {
			t.Errorf("mode = %v, want 0600", info.Mode().Perm())
		}
	})

	t.Run("fails if file already exists", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "apub.toml")
		cfg := NewConfig(dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("first Init() error = %v", err)
		}
		if err := Init(path, cfg); err == nil {
			t.Fatal("second Init() expected error")
		}
	})
}

func TestReadFromFile(t *testing.T) {
	t.Run("reads valid config", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "apub.toml")
		cfg := NewConfig(dir)
		cfg.Remote.Owner = "read-test"

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		got, err := ReadFromFile(path)
		if err != nil {
			t.Fatalf("ReadFromFile() error = %v", err)
		}
		if got.Remote.Owner != "read-test" {
			t.Errorf("Remote.Owner = %q, want %q", got.Remote.Owner, "read-test")
		}
	})

	t.Run("returns error for missing file", func(t *testing.T) {
		_, err := ReadFromFile("/nonexistent/path/apub.toml")
		if err == nil {
			t.Fatal("ReadFromFile() expected error for missing file")
		}
	})
}
