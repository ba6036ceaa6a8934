package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/citysigns/ledpanel/internal/config"
	"github.com/citysigns/ledpanel/internal/events"
	"github.com/citysigns/ledpanel/internal/logging"
	"github.com/citysigns/ledpanel/internal/media"
	"github.com/citysigns/ledpanel/internal/playlist"
	"github.com/citysigns/ledpanel/internal/sync"
)

var locationFlag string

var rootCmd = &cobra.Command{
	Use:   "ledsync",
	Short: "LED panel edge sync agent",
	Long:  "Keeps a display device's local media and playlist in step with the central server.",
	RunE:  runSync,
}

func init() {
	rootCmd.Flags().StringVar(&locationFlag, "location", "", "location id this device serves")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.Setup(cfg.Environment)

	if cfg.CentralURL == "" {
		return fmt.Errorf("LEDPANEL_CENTRAL_URL must be set")
	}
	if locationFlag == "" {
		return fmt.Errorf("--location is required")
	}
	if _, ok := cfg.LocationByID(locationFlag); !ok {
		return fmt.Errorf("unknown location %q", locationFlag)
	}

	files := media.NewStore(cfg.MediaRoot, logger)
	resolver := media.NewResolver(cfg.FFprobeBin, cfg.GstDiscoverer, cfg.ImageDefaultSeconds, cfg.VideoFallbackSeconds, logger)
	bus := events.NewBus()

	registry, err := playlist.NewRegistry([]string{locationFlag}, files, resolver, bus, cfg.MinDisplaySeconds, logger)
	if err != nil {
		return fmt.Errorf("load local playlist: %w", err)
	}

	loc, err := registry.Get(locationFlag)
	if err != nil {
		return err
	}

	agent := sync.NewAgent(cfg.CentralURL, loc, files, sync.Options{
		Interval:        cfg.SyncInterval,
		ProbeTimeout:    cfg.ProbeTimeout,
		ListTimeout:     cfg.ListTimeout,
		DownloadTimeout: cfg.DownloadTimeout,
		DeleteOrphans:   cfg.DeleteOrphans,
	}, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	agent.Run(ctx)
	return nil
}
