package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/simnet-io/interop/interop/trace"
	"github.com/simnet-io/interop/interop/wsnet"
)

var (
	logLevel   string        // Log verbosity level
	configPath string        // Station file (.yaml or .lua)
	maxFrames  int           // Frames to run before exiting, 0 = until interrupted
	relayAddr  string        // Listen address of the WebSocket relay
	relayPath  string        // HTTP path of the WebSocket relay
	watchLog   string        // File that receives logs while the TUI owns the terminal
	shutdownTO time.Duration // Grace period for the relay to drain
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "interop",
	Short: "Network interoperability station for distributed simulation",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)
	},
}

// runCmd joins the configured networks and runs frames until interrupted
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a station",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := LoadStationConfig(configPath)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		st, err := buildStation(cfg)
		if err != nil {
			logrus.Fatalf("building station: %v", err)
		}
		defer st.shutdown()
		if err := st.start(); err != nil {
			logrus.Errorf("%v", err)
			return
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		logrus.Infof("running at %.1f Hz", cfg.frameRate())
		st.run(ctx, maxFrames, nil)

		for _, n := range st.nets.Networks() {
			if n.Trace() == nil {
				continue
			}
			s := trace.Summarize(n.Trace())
			logrus.Infof("network %d: %d discoveries (%d rejected), %d removals, %d publications",
				n.NetworkID(), s.Discoveries, s.RejectedCount, s.Removals, s.Publications)
		}
		logrus.Info("Station stopped.")
	},
}

// validateCmd loads and checks a station file without joining any network
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a station file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadStationConfig(configPath)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d networks, %d players)\n",
			configPath, len(cfg.Networks), len(cfg.Players))
		return nil
	},
}

// relayCmd serves the WebSocket relay used by the "ws" protocol
var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Serve a WebSocket relay for ws networks",
	Run: func(cmd *cobra.Command, args []string) {
		mux := http.NewServeMux()
		relay := wsnet.NewRelay()
		mux.Handle(relayPath, relay)
		srv := &http.Server{Addr: relayAddr, Handler: mux}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTO)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		logrus.Infof("relay listening on %s%s", relayAddr, relayPath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("relay: %v", err)
		}
	},
}

// watchCmd runs a station inside a terminal view of its NIB tables
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run a station and watch its NIB tables",
	Run: func(cmd *cobra.Command, args []string) {
		// the TUI owns stdout, so logs go to a file
		f, err := os.OpenFile(watchLog, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			logrus.Fatalf("opening log file: %v", err)
		}
		defer f.Close()
		logrus.SetOutput(f)

		cfg, err := LoadStationConfig(configPath)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		st, err := buildStation(cfg)
		if err != nil {
			logrus.Fatalf("building station: %v", err)
		}
		err = st.watch(func(st *station) error {
			_, err := tea.NewProgram(newWatchModel(st), tea.WithAltScreen()).Run()
			return err
		})
		if err != nil {
			logrus.Errorf("watch: %v", err)
		}
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "info", "Log level (trace, debug, info, warn, error, fatal, panic)")

	for _, c := range []*cobra.Command{runCmd, validateCmd, watchCmd} {
		c.Flags().StringVarP(&configPath, "config", "c", "station.yaml", "Station file (.yaml or .lua)")
	}
	runCmd.Flags().IntVar(&maxFrames, "frames", 0, "Frames to run before exiting (0 = until interrupted)")
	watchCmd.Flags().StringVar(&watchLog, "log-file", "interop-watch.log", "File that receives logs while watching")

	relayCmd.Flags().StringVar(&relayAddr, "addr", ":8080", "Listen address")
	relayCmd.Flags().StringVar(&relayPath, "path", "/relay", "HTTP path of the relay endpoint")
	relayCmd.Flags().DurationVar(&shutdownTO, "shutdown-timeout", 5*time.Second, "Grace period on shutdown")

	rootCmd.AddCommand(runCmd, validateCmd, relayCmd, watchCmd)
}
