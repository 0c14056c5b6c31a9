package installer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/mmacedoeu/zeroclaw/internal/bundle"
	"github.com/mmacedoeu/zeroclaw/internal/transpile"
	"github.com/mmacedoeu/zeroclaw/pkg/pluginsdk"
)

// CompiledEntryFilename is the canonical post-install entry point every
// plugin directory has, regardless of its original Runtime.Entry source
// language or whether a bundler was configured.
const CompiledEntryFilename = "index.js"

// InstallResult records what an installation produced, per §4.9.
type InstallResult struct {
	Name        string
	Version     string
	InstallPath string
	Transpiled  bool
	Bundled     bool
	Metadata    InstallMetadata
}

// InstallMetadata is the `metadata` sub-object of InstallResult.
type InstallMetadata struct {
	SourceType  string
	Source      string
	InstalledAt time.Time
	SizeBytes   int64
}

// InstallOptions configures a single Install call.
type InstallOptions struct {
	// Force allows reinstalling over an existing plugin directory.
	Force bool
	// SkipNpmInstall skips running `npm install` even if package.json
	// is present, useful for tests and offline installs.
	SkipNpmInstall bool
}

// Installer orchestrates resolve → fetch → extract → transpile → bundle
// → lay-down for a single plugin source string.
type Installer struct {
	installDir string
	registry   *RegistryClient
	bundler    *bundle.Bundler // nil means "no bundler configured"
	logger     *slog.Logger
}

// New returns an Installer that lays finished plugins down under
// installDir/<name>/. bundler may be nil if no esbuild binary is
// available; plugins are then transpiled but not bundled.
func New(installDir string, registry *RegistryClient, bundler *bundle.Bundler) *Installer {
	return &Installer{
		installDir: installDir,
		registry:   registry,
		bundler:    bundler,
		logger:     slog.Default().With("component", "installer"),
	}
}

// Install resolves sourceStr, materializes a working copy, reads its
// manifest, processes its entry point, and lays the result down
// atomically under installDir/<name>/.
func (in *Installer) Install(ctx context.Context, sourceStr string, opts InstallOptions) (*InstallResult, error) {
	src := ParseSource(sourceStr)

	workDir, cleanup, err := in.materialize(ctx, src)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	manifest, err := pluginsdk.ParseManifestFile(filepath.Join(workDir, pluginsdk.ManifestFilename))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	finalDir := filepath.Join(in.installDir, manifest.Plugin.Name)
	if _, err := os.Stat(finalDir); err == nil && !opts.Force {
		return nil, fmt.Errorf("plugin already installed: %s (use Force to reinstall)", manifest.Plugin.Name)
	}

	stageDir, err := os.MkdirTemp(in.installDir, ".install-")
	if err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	defer os.RemoveAll(stageDir)

	transpiled, bundled, sizeBytes, err := in.processPlugin(ctx, workDir, manifest, stageDir)
	if err != nil {
		return nil, err
	}

	if err := copyFile(filepath.Join(workDir, pluginsdk.ManifestFilename), filepath.Join(stageDir, pluginsdk.ManifestFilename)); err != nil {
		return nil, fmt.Errorf("copy plugin.toml: %w", err)
	}

	pkgJSONPath := filepath.Join(workDir, "package.json")
	if _, err := os.Stat(pkgJSONPath); err == nil {
		if err := copyFile(pkgJSONPath, filepath.Join(stageDir, "package.json")); err != nil {
			return nil, fmt.Errorf("copy package.json: %w", err)
		}
		if !opts.SkipNpmInstall {
			if err := runNpmInstall(ctx, stageDir); err != nil {
				return nil, fmt.Errorf("npm install: %w", err)
			}
		}
	}

	backupPath, hadExisting, err := stageInstall(stageDir, finalDir)
	if err != nil {
		return nil, err
	}
	if backupPath != "" {
		_ = os.RemoveAll(backupPath)
	}
	_ = hadExisting

	return &InstallResult{
		Name:        manifest.Plugin.Name,
		Version:     manifest.Plugin.Version,
		InstallPath: finalDir,
		Transpiled:  transpiled,
		Bundled:     bundled,
		Metadata: InstallMetadata{
			SourceType:  sourceTypeName(src.Kind),
			Source:      sourceStr,
			InstalledAt: time.Now(),
			SizeBytes:   sizeBytes,
		},
	}, nil
}

func sourceTypeName(k VariantKind) string {
	switch k {
	case VariantLocal:
		return "local"
	case VariantRegistry:
		return "registry"
	case VariantGit:
		return "git"
	default:
		return "unknown"
	}
}

// materialize produces a readable working directory for src and a
// cleanup func. Local sources are read in place and cleanup is a no-op;
// git and registry sources materialize into a fresh temp dir that
// cleanup removes.
func (in *Installer) materialize(ctx context.Context, src Source) (string, func(), error) {
	noop := func() {}

	switch src.Kind {
	case VariantLocal:
		path := src.Path
		if strings.HasPrefix(path, "~/") {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", noop, fmt.Errorf("resolve home dir: %w", err)
			}
			path = filepath.Join(home, path[2:])
		}
		return path, noop, nil

	case VariantGit:
		tmp, err := os.MkdirTemp("", "installer-git-")
		if err != nil {
			return "", noop, fmt.Errorf("create clone dir: %w", err)
		}
		cleanup := func() { os.RemoveAll(tmp) }
		if err := cloneShallow(ctx, src.URL, src.Branch, tmp); err != nil {
			cleanup()
			return "", noop, err
		}
		return tmp, cleanup, nil

	case VariantRegistry:
		if in.registry == nil {
			return "", noop, fmt.Errorf("registry source requires a configured registry client")
		}
		plugin, err := in.registry.GetPlugin(ctx, src.Name)
		if err != nil {
			return "", noop, err
		}
		data, err := in.registry.DownloadPlugin(ctx, plugin)
		if err != nil {
			return "", noop, err
		}
		tmp, err := os.MkdirTemp("", "installer-registry-")
		if err != nil {
			return "", noop, fmt.Errorf("create extract dir: %w", err)
		}
		cleanup := func() { os.RemoveAll(tmp) }
		if err := extractArchive(tmp, data); err != nil {
			cleanup()
			return "", noop, fmt.Errorf("extract archive: %w", err)
		}
		return tmp, cleanup, nil

	default:
		return "", noop, fmt.Errorf("unknown source variant")
	}
}

// processPlugin transpiles the entry when it's TypeScript, bundles it
// when a bundler is configured, and always leaves a canonical index.js
// in stageDir.
func (in *Installer) processPlugin(ctx context.Context, workDir string, manifest *pluginsdk.Manifest, stageDir string) (transpiled, bundled bool, sizeBytes int64, err error) {
	entryPath := filepath.Join(workDir, manifest.Runtime.Entry)
	outPath := filepath.Join(stageDir, CompiledEntryFilename)

	buildEntry := entryPath
	if strings.HasSuffix(manifest.Runtime.Entry, ".ts") {
		source, readErr := os.ReadFile(entryPath)
		if readErr != nil {
			return false, false, 0, fmt.Errorf("read entry: %w", readErr)
		}
		out, transErr := transpile.Transpile(string(source), manifest.Runtime.Entry)
		if transErr != nil {
			return false, false, 0, transErr
		}
		transpiled = true

		// If there's no bundler, the transpiled code is the final
		// artifact; if there is, stage it to a temp file and bundle that.
		if in.bundler == nil {
			if err := os.WriteFile(outPath, []byte(out.Code), 0o644); err != nil {
				return false, false, 0, fmt.Errorf("write transpiled entry: %w", err)
			}
			if out.SourceMap != nil {
				_ = os.WriteFile(outPath+".map", out.SourceMap, 0o644)
			}
			info, statErr := os.Stat(outPath)
			if statErr != nil {
				return transpiled, false, 0, statErr
			}
			return transpiled, false, info.Size(), nil
		}

		tmpJS := filepath.Join(stageDir, ".transpiled.js")
		if err := os.WriteFile(tmpJS, []byte(out.Code), 0o644); err != nil {
			return false, false, 0, fmt.Errorf("write transpiled entry: %w", err)
		}
		buildEntry = tmpJS
	}

	if in.bundler != nil {
		result, bundleErr := in.bundler.Bundle(ctx, buildEntry, outPath)
		if bundleErr != nil {
			return transpiled, false, 0, bundleErr
		}
		_ = os.Remove(filepath.Join(stageDir, ".transpiled.js"))
		return transpiled, true, result.OutputSize, nil
	}

	if err := copyFile(entryPath, outPath); err != nil {
		return transpiled, false, 0, fmt.Errorf("copy entry: %w", err)
	}
	info, err := os.Stat(outPath)
	if err != nil {
		return transpiled, false, 0, err
	}
	return transpiled, false, info.Size(), nil
}

func runNpmInstall(ctx context.Context, dir string) error {
	cmd := exec.CommandContext(ctx, "npm", "install", "--production")
	cmd.Dir = dir
	return cmd.Run()
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}

// stageInstall atomically activates stageDir as liveDir, backing up any
// existing directory first so a failed rename can roll back cleanly.
// Adapted from the same staged-rename pattern used to lay plugins down
// without ever exposing a partially-installed directory at liveDir.
func stageInstall(stageDir, liveDir string) (backupPath string, hadExisting bool, err error) {
	info, statErr := os.Stat(liveDir)
	if statErr == nil {
		if !info.IsDir() {
			return "", true, fmt.Errorf("live path is not a directory: %s", liveDir)
		}
		hadExisting = true
	} else if !os.IsNotExist(statErr) {
		return "", false, fmt.Errorf("stat live path: %w", statErr)
	}

	if hadExisting {
		backupPath = fmt.Sprintf("%s.bak-%s", liveDir, time.Now().Format("20060102-150405"))
		if err := os.Rename(liveDir, backupPath); err != nil {
			return "", true, fmt.Errorf("backup existing plugin: %w", err)
		}
	}

	if err := os.Rename(stageDir, liveDir); err != nil {
		if hadExisting && backupPath != "" {
			if rbErr := os.Rename(backupPath, liveDir); rbErr != nil {
				return backupPath, hadExisting, fmt.Errorf("activate plugin failed: %w; rollback failed: %v", err, rbErr)
			}
		}
		return backupPath, hadExisting, fmt.Errorf("activate plugin failed: %w", err)
	}

	return backupPath, hadExisting, nil
}
