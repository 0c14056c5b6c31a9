// Package bundle wraps the esbuild CLI to produce a single
// self-contained artifact from a plugin's transpiled entry point.
package bundle

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
)

// Format is the output module format esbuild should emit.
type Format string

const (
	FormatModule   Format = "module"
	FormatCommonJS Format = "commonjs"
	FormatIIFE     Format = "iife"
)

// Config configures one bundling invocation.
type Config struct {
	Target      string
	Minify      bool
	Format      Format
	ExternalIDs []string
	ExtraArgs   []string

	// Command is the esbuild executable to invoke; defaults to "esbuild"
	// resolved from PATH.
	Command string
}

// NotFoundError is returned when the bundler binary can't be located at
// construction time.
type NotFoundError struct {
	Command string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("esbuild not found: %s", e.Command)
}

// FailedError wraps a non-zero esbuild exit, carrying its stderr.
type FailedError struct {
	Stderr string
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("bundle failed: %s", e.Stderr)
}

// Bundler invokes esbuild as a subprocess.
type Bundler struct {
	cfg  Config
	path string
}

// New resolves the esbuild binary per cfg.Command (default "esbuild") and
// returns a ready Bundler. Returns *NotFoundError if the binary is absent.
func New(cfg Config) (*Bundler, error) {
	cmd := cfg.Command
	if cmd == "" {
		cmd = "esbuild"
	}
	path, err := exec.LookPath(cmd)
	if err != nil {
		return nil, &NotFoundError{Command: cmd}
	}
	if cfg.Format == "" {
		cfg.Format = FormatModule
	}
	return &Bundler{cfg: cfg, path: path}, nil
}

// Result reports what a successful Bundle call produced.
type Result struct {
	OutputPath    string
	InputSize     int64
	OutputSize    int64
	HasSourceMap  bool
}

// Bundle invokes esbuild on entryPath, writing a single self-contained
// artifact to outputPath.
func (b *Bundler) Bundle(ctx context.Context, entryPath, outputPath string) (Result, error) {
	info, err := os.Stat(entryPath)
	if err != nil {
		return Result{}, fmt.Errorf("stat entry: %w", err)
	}

	args := []string{
		entryPath,
		"--bundle",
		"--outfile=" + outputPath,
		"--format=" + string(b.cfg.Format),
		"--sourcemap",
	}
	if b.cfg.Target != "" {
		args = append(args, "--target="+b.cfg.Target)
	}
	if b.cfg.Minify {
		args = append(args, "--minify")
	}
	for _, ext := range b.cfg.ExternalIDs {
		args = append(args, "--external:"+ext)
	}
	args = append(args, b.cfg.ExtraArgs...)

	cmd := exec.CommandContext(ctx, b.path, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return Result{}, &FailedError{Stderr: stderr.String()}
	}

	outInfo, err := os.Stat(outputPath)
	if err != nil {
		return Result{}, fmt.Errorf("stat output: %w", err)
	}
	_, mapErr := os.Stat(outputPath + ".map")

	return Result{
		OutputPath:   outputPath,
		InputSize:    info.Size(),
		OutputSize:   outInfo.Size(),
		HasSourceMap: mapErr == nil,
	}, nil
}
