package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/deckhand-io/deckhand/internal/config"
	"github.com/deckhand-io/deckhand/internal/deploy"
	"github.com/deckhand-io/deckhand/internal/job"
	"github.com/deckhand-io/deckhand/internal/log"
	"github.com/deckhand-io/deckhand/internal/web"
)

var (
	flagConfigPath string // value of --config flag
	flagVerbose    bool   // value of --verbose flag
)

func main() {
	rootCmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "Config file to load - default is "+config.DefaultPath+" in current directory")
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "verbose logging")

	// never print messages
	rootCmd.SilenceErrors = true

	rootCmd.PersistentPreRun = func(_ *cobra.Command, _ []string) {
		slog.SetDefault(log.New(flagVerbose))
	}

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		slog.Error("deckhand failed", "err", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "deckhand",
	Short:        "Deploy webhook daemon with a job console",
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "serve reads the configuration and runs the trigger endpoints and the console",
	RunE:  doServe,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "version provides version of a deckhand",
	Run: func(cmd *cobra.Command, args []string) {
		info, ok := debug.ReadBuildInfo()
		if !ok {
			fmt.Println("deckhand: version info not available")
			return
		}

		fmt.Printf("deckhand: %s\n", info.Main.Version)
		fmt.Printf("go:       %s\n", info.GoVersion)
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				fmt.Printf("commit:   %s\n", s.Value)
			case "vcs.time":
				fmt.Printf("date:     %s\n", s.Value)
			case "vcs.modified":
				fmt.Printf("dirty:    %s\n", s.Value)
			}
		}
		fmt.Println()
	},
}

func doServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(flagConfigPath)
	if err != nil {
		return err
	}

	// --verbose has a precedence over config file
	if flagVerbose {
		cfg.Verbose = true
	}
	slog.SetDefault(log.New(cfg.Verbose))
	slog.Debug("deckhand serve", "port", cfg.Port, "deploy_dir", cfg.DeployDir)

	resolver, err := deploy.NewResolver(cfg.DeployDir)
	if err != nil {
		return fmt.Errorf("initializing script resolver: %w", err)
	}

	registry := job.NewRegistry()
	server := web.NewServer(registry, resolver, cfg.Secret)
	return server.ListenAndServe(ctx, cfg.Port)
}
