package vcs

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"apub-go/internal/pub"
)

// Runner runs git commands in a working directory.
type Runner struct {
	// gitPath is the git executable.
	gitPath string

	// Dir is the directory the commands are run in.
	Dir string

	logger pub.Logger
}

// NewRunner returns a Runner for dir. An empty gitPath is looked up on PATH.
func NewRunner(gitPath, dir string, logger pub.Logger) (*Runner, error) {
	if gitPath == "" {
		gitPath = "git"
	}
	p, err := exec.LookPath(gitPath)
	if err != nil {
		return nil, fmt.Errorf("no '%s' program on path: %w", gitPath, err)
	}
	return &Runner{gitPath: p, Dir: dir, logger: logger}, nil
}

type RunResult struct {
	Stdout string
	Stderr string
}

// Run runs a git command. Omit the 'git' part of the command.
func (g *Runner) Run(ctx context.Context, args ...string) (RunResult, error) {
	// Arguments may carry credentials; only the subcommand is logged.
	g.logger.Debug("running git", "command", args[0], "args", len(args)-1)

	cmd := exec.CommandContext(ctx, g.gitPath, args...)
	cmd.Dir = g.Dir
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			err = fmt.Errorf("%w: %w", ctx.Err(), err)
		}
		return RunResult{}, &ExecError{
			Args:   args,
			Err:    err,
			Stdout: stdout.String(),
			Stderr: stderr.String(),
		}
	}
	return RunResult{Stdout: stdout.String(), Stderr: stderr.String()}, nil
}

// ExecError is a failed git invocation.
type ExecError struct {
	Args   []string
	Err    error
	Stdout string
	Stderr string
}

func (e *ExecError) Error() string {
	b := new(strings.Builder)
	b.WriteString("git ")
	if len(e.Args) > 0 {
		b.WriteString(e.Args[0])
		b.WriteString(": ")
	}
	b.WriteString(e.Err.Error())
	if s := strings.TrimSpace(e.Stderr); s != "" {
		b.WriteString(": ")
		b.WriteString(s)
	}
	return b.String()
}

func (e *ExecError) Unwrap() error { return e.Err }
