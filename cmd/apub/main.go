package main

import (
	"context"
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"apub-go/internal/app"
	"apub-go/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file, falling back to defaults when none has
// been written yet, and applies environment overrides.
func loadConfig(defaults app.Defaults) (*config.Config, error) {
	cfg, err := config.ReadFromFile(defaults.ConfigPath)
	if errors.Is(err, iofs.ErrNotExist) {
		cfg, err = config.NewConfig(defaults.BaseDir), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg.ApplyEnv()
	return cfg, nil
}

// newApp reads the config and creates an App. The caller must defer a.Close().
// command identifies the CLI command being run (e.g. "publish", "inspect").
func newApp(cmd *cobra.Command, command string, mutate func(*config.Config)) (*app.App, error) {
	cfg, err := loadConfig(app.GetDefaults())
	if err != nil {
		return nil, err
	}
	if mutate != nil {
		mutate(cfg)
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	a, err := app.New(cfg, app.Options{
		Command:    command,
		Verbose:    verbose,
		Color:      term.IsTerminal(int(os.Stderr.Fd())),
		Console:    cmd.ErrOrStderr(),
		Out:        cmd.OutOrStdout(),
		Passphrase: func() (string, error) { return readPassphrase("Passphrase: ") },
	})
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

// readPassphrase prompts on the terminal without echoing input.
func readPassphrase(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("no terminal to read the passphrase from; set %s", config.EnvPassphrase)
	}
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(b), nil
}

var rootCmd = &cobra.Command{
	Use:          "apub",
	Short:        "Publish project archives to a git host",
	SilenceUsage: true,
}

// publish command
var publishCmd = &cobra.Command{
	Use:   "publish [ARCHIVE]",
	Short: "Extract an archive and push it to the configured repository",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, _ := cmd.Flags().GetString("repo")
		workdir, _ := cmd.Flags().GetString("workdir")
		keep, _ := cmd.Flags().GetBool("keep")

		a, err := newApp(cmd, "publish", func(cfg *config.Config) {
			if repo != "" {
				cfg.Remote.Repo = repo
			}
			if workdir != "" {
				cfg.Workdir.Path = workdir
			}
			if keep {
				cfg.Workdir.Keep = true
			}
		})
		if err != nil {
			return err
		}
		defer a.Close()

		ref := ""
		if len(args) > 0 {
			ref = args[0]
		}
		if _, err := a.Publish(cmd.Context(), ref); err != nil {
			return fmt.Errorf("publish failed: %w", err)
		}
		return nil
	},
}

// inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect ARCHIVE",
	Short: "Show the structure of an archive without extracting it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "inspect", nil)
		if err != nil {
			return err
		}
		defer a.Close()

		_, err = a.Inspect(cmd.Context(), args[0])
		return err
	},
}

// audit command
var auditCmd = &cobra.Command{
	Use:   "audit DIR",
	Short: "Classify the files of a directory by extension and size",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "audit", nil)
		if err != nil {
			return err
		}
		defer a.Close()

		_, err = a.Audit(args[0])
		return err
	},
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults := app.GetDefaults()
		cfg := config.NewConfig(defaults.BaseDir)
		if err := config.Init(defaults.ConfigPath, cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Configuration initialized at %s\n", defaults.ConfigPath)
		fmt.Fprintf(out, "Base Dir: %s\n", defaults.BaseDir)
		fmt.Fprintf(out, "Set remote.owner, remote.repo, identity and %s before publishing.\n", config.EnvToken)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults := app.GetDefaults()
		cfg, err := loadConfig(defaults)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "# Configuration from %s\n\n", defaults.ConfigPath)
		m := &config.Manager{}
		return m.Write(out, cfg.Redacted())
	},
}

// keys command
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage the key pair for encrypted archives",
}

var keysInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a passphrase-protected key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		passphrase := os.Getenv(config.EnvPassphrase)
		if passphrase == "" {
			first, err := readPassphrase("New passphrase: ")
			if err != nil {
				return err
			}
			second, err := readPassphrase("Repeat passphrase: ")
			if err != nil {
				return err
			}
			if first != second {
				return errors.New("passphrases do not match")
			}
			passphrase = first
		}

		a, err := newApp(cmd, "keys init", nil)
		if err != nil {
			return err
		}
		defer a.Close()

		key, err := a.InitKeys(passphrase)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Public key: %s\n", key)
		return nil
	},
}

var keysEncryptCmd = &cobra.Command{
	Use:   "encrypt ARCHIVE",
	Short: "Write an encrypted copy of an archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "keys encrypt", nil)
		if err != nil {
			return err
		}
		defer a.Close()

		dst, err := a.EncryptArchive(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Encrypted archive: %s\n", dst)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log debug output to the console")

	publishCmd.Flags().String("repo", "", "Repository name, overriding remote.repo")
	publishCmd.Flags().String("workdir", "", "Working directory, overriding workdir.path")
	publishCmd.Flags().Bool("keep", false, "Keep the working directory after the run")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	keysCmd.AddCommand(keysInitCmd)
	keysCmd.AddCommand(keysEncryptCmd)

	rootCmd.AddCommand(publishCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(keysCmd)
}
