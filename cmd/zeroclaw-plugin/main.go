// Command zeroclaw-plugin is a thin CLI over internal/installer: install
// a plugin from a local path, git URL, or registry name, and search the
// configured registry.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mmacedoeu/zeroclaw/internal/bundle"
	"github.com/mmacedoeu/zeroclaw/internal/config"
	"github.com/mmacedoeu/zeroclaw/internal/installer"
	"github.com/mmacedoeu/zeroclaw/internal/jsruntime"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var installDir, registryURL string

	root := &cobra.Command{
		Use:   "zeroclaw-plugin",
		Short: "Install and search plugins for the zeroclaw JS plugin runtime",
	}
	root.PersistentFlags().StringVar(&installDir, "install-dir", defaultInstallDir(), "directory plugins are installed under")
	root.PersistentFlags().StringVar(&registryURL, "registry", installer.DefaultRegistryURL, "plugin registry base URL")

	root.AddCommand(newInstallCmd(&installDir, &registryURL))
	root.AddCommand(newSearchCmd(&registryURL))
	root.AddCommand(newRunCmd())
	return root
}

func newInstallCmd(installDir, registryURL *string) *cobra.Command {
	var force, skipNpm bool

	cmd := &cobra.Command{
		Use:   "install <source>",
		Short: "Install a plugin from a local path, git URL, or registry name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := installer.NewRegistryClient(installer.WithBaseURL(*registryURL))
			defer registry.Close()

			bundler, _ := bundle.New(bundle.Config{})
			in := installer.New(*installDir, registry, bundler)

			result, err := in.Install(context.Background(), args[0], installer.InstallOptions{
				Force:          force,
				SkipNpmInstall: skipNpm,
			})
			if err != nil {
				return err
			}
			fmt.Printf("installed %s@%s -> %s (transpiled=%v bundled=%v)\n",
				result.Name, result.Version, result.InstallPath, result.Transpiled, result.Bundled)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "reinstall over an existing plugin directory")
	cmd.Flags().BoolVar(&skipNpm, "skip-npm-install", false, "skip running npm install even if package.json is present")
	return cmd
}

func newSearchCmd(registryURL *string) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search the plugin registry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := installer.NewRegistryClient(installer.WithBaseURL(*registryURL))
			defer registry.Close()

			results, err := registry.Search(context.Background(), args[0])
			if err != nil {
				return err
			}
			for _, r := range results {
				fmt.Printf("%s@%s  %s\n", r.Name, r.Version, r.Description)
			}
			return nil
		},
	}
}

// newRunCmd loads a zeroclaw-plugin config file, discovers every plugin
// manifest under its configured load paths, and loads each enabled
// plugin's compiled entry point into a sandbox sized per the config's
// sandbox resource section.
func newRunCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Load configured plugins into a sandbox",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			manifests, err := jsruntime.DiscoverManifests(cfg.Plugins.Load.Paths)
			if err != nil {
				return fmt.Errorf("discover plugins: %w", err)
			}

			sb := jsruntime.NewSandbox(jsruntime.SandboxConfig{
				WorkerCount:  cfg.Plugins.Sandbox.WorkerCount,
				MemoryLimit:  cfg.Plugins.Sandbox.MemoryLimit,
				CPUTimeLimit: cfg.Plugins.Sandbox.CPUTimeLimit,
			})
			defer sb.Close()

			ctx := context.Background()
			loaded := 0
			for name, info := range manifests {
				if entry, ok := cfg.Plugins.Entries[name]; ok && !entry.Enabled {
					continue
				}
				entryPath := filepath.Join(filepath.Dir(info.Path), installer.CompiledEntryFilename)
				source, err := os.ReadFile(entryPath)
				if err != nil {
					return fmt.Errorf("read entry for plugin %q: %w", name, err)
				}
				if _, err := sb.LoadPlugin(ctx, name, string(source), installer.CompiledEntryFilename); err != nil {
					return fmt.Errorf("load plugin %q: %w", name, err)
				}
				loaded++
			}
			fmt.Printf("loaded %d/%d discovered plugin(s)\n", loaded, len(manifests))
			return nil
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to the zeroclaw-plugin config file (yaml/json5)")
	cmd.MarkFlagRequired("config")
	return cmd
}

func defaultInstallDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".zeroclaw/plugins"
	}
	return home + "/.zeroclaw/plugins"
}
