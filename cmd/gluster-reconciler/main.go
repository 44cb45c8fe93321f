package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cuemby/gluster-reconciler/pkg/config"
	"github.com/cuemby/gluster-reconciler/pkg/executor"
	"github.com/cuemby/gluster-reconciler/pkg/facts"
	"github.com/cuemby/gluster-reconciler/pkg/log"
	"github.com/cuemby/gluster-reconciler/pkg/peer"
	"github.com/cuemby/gluster-reconciler/pkg/reconciler"
	"github.com/cuemby/gluster-reconciler/pkg/storage"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "gluster-reconciler",
	Short: "Desired-state reconciliation for GlusterFS peers and volumes",
	Long: `gluster-reconciler converges a GlusterFS trusted pool toward a declared
state: peers that should be members, volumes that should exist and be
started or stopped. It drives the gluster admin CLI of the local node and
never touches data.

Settings are read from --config and GLUSTER_RECONCILER_* environment
variables.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"gluster-reconciler version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("config", "", "Settings file (YAML)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringSlice("local-peer-alias", nil, "Extra identity of this host (repeatable)")

	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(instancesCmd)
	rootCmd.AddCommand(peersCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(envCmd)
}

// env is what every command needs: settings, logging and the cluster wiring
type env struct {
	cfg   *config.Config
	batch reconciler.Config
}

func setup(cmd *cobra.Command) (*env, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Log.Level = level
	}
	log.Init(log.Config{
		Level:      log.Level(cfg.Log.Level),
		JSONOutput: cfg.Log.JSON,
	})

	hostFacts, err := facts.Discover()
	if err != nil {
		return nil, fmt.Errorf("failed to discover host facts: %w", err)
	}
	extra, _ := cmd.Flags().GetStringSlice("local-peer-alias")
	aliases := facts.LocalAliases(append(extra, cfg.LocalPeerAliases...), hostFacts)
	log.Logger.Debug().Strs("aliases", aliases.List()).Msg("Local peer aliases")

	return &env{
		cfg: cfg,
		batch: reconciler.Config{
			Runner:      executor.New(cfg.Gluster),
			Aliases:     aliases,
			PeerOptions: []peer.Option{peer.WithConfirm(cfg.Confirm.Attempts, cfg.Confirm.Delay)},
		},
	}, nil
}

// openHistory returns nil when history is disabled
func (e *env) openHistory() (*storage.BoltStore, error) {
	if !e.cfg.HistoryEnabled() {
		return nil, nil
	}
	return storage.NewBoltStore(e.cfg.DataDir)
}

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Describe the environment variables read for settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(config.Usage())
		return nil
	},
}

func resourceMark(err error, changed bool) string {
	switch {
	case err != nil:
		return "✗"
	case changed:
		return "✓"
	default:
		return "="
	}
}
