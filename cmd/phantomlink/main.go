// Phantomlink bridges a ball tracker to the phantom motion controller over
// UDP. The binary offers three modes: a reachability probe (ping), live
// position streaming (track), and one-shot trajectory transfer (trajectory).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/ahrastnik/phantomlink/internal/config"
	"github.com/ahrastnik/phantomlink/internal/session"
	"github.com/ahrastnik/phantomlink/internal/tracker"
	"github.com/ahrastnik/phantomlink/internal/util"
)

var version = "dev"

// Flag values, resolved against the config file in resolveConfig.
var (
	flagConfig  string
	flagPeer    string
	flagListen  string
	flagTimeout time.Duration
	flagRetries int
	flagRate    float64
	flagDebug   bool
)

func main() {
	root := &cobra.Command{
		Use:           "phantomlink",
		Short:         "Bridge a ball tracker to the phantom controller over UDP",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flagDebug {
				util.EnableDebug()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&flagConfig, "config", "c", "", "TOML config file")
	pf.StringVar(&flagPeer, "peer", "", "controller endpoint (host:port)")
	pf.StringVar(&flagListen, "listen", "", "local bind for inbound datagrams (optional)")
	pf.DurationVar(&flagTimeout, "timeout", 0, "communication timeout")
	pf.IntVar(&flagRetries, "retries", 0, "trajectory retry budget")
	pf.BoolVar(&flagDebug, "debug", false, "enable debug logging")

	trackCmd := newTrackCmd()
	root.AddCommand(newPingCmd(), trackCmd, newTrajectoryCmd())

	if err := root.Execute(); err != nil {
		util.LogError("%v", err)
		os.Exit(1)
	}
}

// resolveConfig merges the config file (when given) with explicit flags.
// Flags win over the file, the file wins over defaults.
func resolveConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()

	if flagConfig != "" {
		loaded, err := config.Load(flagConfig)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	if cmd.Flags().Changed("peer") {
		cfg.Peer = flagPeer
	}
	if cmd.Flags().Changed("listen") {
		cfg.Listen = flagListen
	}
	if cmd.Flags().Changed("timeout") {
		cfg.Timeout = flagTimeout
	}
	if cmd.Flags().Changed("retries") {
		cfg.Retries = flagRetries
	}
	if cmd.Flags().Changed("rate") {
		cfg.Rate = flagRate
	}

	return cfg, nil
}

// newSession builds a disconnected session from the resolved config.
func newSession(cfg config.Config) *session.Session {
	return session.New(session.Config{
		PeerAddr:   cfg.Peer,
		ListenAddr: cfg.Listen,
		Timeout:    cfg.Timeout,
		RetryCount: cfg.Retries,
	})
}

// ---------------------------------------------------------------------------
// ping
// ---------------------------------------------------------------------------

func newPingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Probe the controller with a confirmed START handshake",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}

			sess := newSession(cfg)
			if err := sess.Connect(); err != nil {
				return err
			}
			defer sess.Disconnect()

			if !sess.SendStart() {
				return fmt.Errorf("controller at %s did not respond within %s", cfg.Peer, cfg.Timeout)
			}

			util.LogInfo("controller at %s is reachable", cfg.Peer)
			return nil
		},
	}
}

// ---------------------------------------------------------------------------
// track
// ---------------------------------------------------------------------------

func newTrackCmd() *cobra.Command {
	var (
		radius float64
		freq   float64
	)

	cmd := &cobra.Command{
		Use:   "track",
		Short: "Stream ball positions to the controller until interrupted",
		Long: "Streams positions from the built-in orbit source at the configured rate.\n" +
			"A vision frontend replaces the source in production; the orbit mode\n" +
			"exercises the full link without a camera.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			sess := newSession(cfg)
			if err := sess.Connect(); err != nil {
				return err
			}
			defer sess.Disconnect()

			if !sess.SendStart() {
				return fmt.Errorf("controller at %s did not respond within %s", cfg.Peer, cfg.Timeout)
			}

			util.StartStatsReporter(ctx)
			util.LogInfo("streaming positions to %s at %.0f Hz (Ctrl+C to stop)", cfg.Peer, cfg.Rate)

			runTrack(ctx, sess, tracker.NewOrbit(radius, freq), cfg.Rate)

			sess.SendStop()
			util.LogInfo("tracking stopped")
			return nil
		},
	}

	cmd.Flags().Float64Var(&flagRate, "rate", config.DefaultRate, "position send rate [Hz]")
	cmd.Flags().Float64Var(&radius, "radius", 50, "orbit radius [mm]")
	cmd.Flags().Float64Var(&freq, "freq", 0.2, "orbit frequency [rev/s]")
	return cmd
}

// runTrack samples the source on a fixed tick and streams each located
// position. Inbound packets outside a confirm wait are drained and logged at
// debug level so the queue cannot grow unbounded.
func runTrack(ctx context.Context, sess *session.Session, src tracker.Source, rate float64) {
	ticker := time.NewTicker(time.Duration(float64(time.Second) / rate))
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if p, ok := src.Find(); ok {
				sess.SendBallPosition(p)
			}
			for pkt := sess.Receive(false, 0); pkt != nil; pkt = sess.Receive(false, 0) {
				util.LogDebug("unsolicited %s from controller", pkt.Kind)
			}

		case <-ctx.Done():
			return
		}
	}
}

// ---------------------------------------------------------------------------
// trajectory
// ---------------------------------------------------------------------------

func newTrajectoryCmd() *cobra.Command {
	var (
		file   string
		radius float64
		count  int
	)

	cmd := &cobra.Command{
		Use:   "trajectory",
		Short: "Send a trajectory loop to the controller",
		Long: "Sends a trajectory from a TOML file of [[points]] tables, or a generated\n" +
			"circle when no file is given. The loop is closed automatically.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}

			points := tracker.Circle(radius, count)
			if file != "" {
				points, err = config.LoadTrajectory(file)
				if err != nil {
					return err
				}
			}

			sess := newSession(cfg)
			if err := sess.Connect(); err != nil {
				return err
			}
			defer sess.Disconnect()

			if !sess.SendStart() {
				return fmt.Errorf("controller at %s did not respond within %s", cfg.Peer, cfg.Timeout)
			}

			if !sess.SendTrajectory(points) {
				return fmt.Errorf("trajectory transfer failed after %d attempts", cfg.Retries)
			}

			pterm.Success.Printfln("trajectory accepted (%d points)", len(points))
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "trajectory TOML file")
	cmd.Flags().Float64Var(&radius, "radius", 50, "generated circle radius [mm]")
	cmd.Flags().IntVar(&count, "count", 16, "generated circle point count")
	return cmd
}
