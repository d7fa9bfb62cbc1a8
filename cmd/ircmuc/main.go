package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dalnet/ircmuc/internal/config"
	"github.com/dalnet/ircmuc/internal/irc"
	"github.com/dalnet/ircmuc/internal/logging"
	"github.com/dalnet/ircmuc/internal/metrics"
)

// Version information - set at build time via ldflags
var (
	version   = "dev"
	buildDate = "unknown"
	gitCommit = "unknown"
)

func main() {
	var configPath string

	var rootCmd = &cobra.Command{
		Use:           "ircmuc",
		Short:         "IRC multi-user chat client",
		Long:          `Connects to an IRC network and presents it as chat rooms with rosters, roles and subjects.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "./config.yaml", "Path to configuration file")

	var runCmd = &cobra.Command{
		Use:   "run",
		Short: "Connect and stay in the configured channels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath)
		},
	}

	var configCmd = &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}

	var configInitCmd = &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.WriteDefault(configPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", configPath)
			return nil
		},
	}

	var versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ircmuc version %s\n", version)
			fmt.Fprintf(out, "Built: %s\n", buildDate)
			fmt.Fprintf(out, "Commit: %s\n", gitCommit)
		},
	}

	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(runCmd, configCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	irc.Version = version
	irc.BuildDate = buildDate
	irc.GitCommit = gitCommit

	logger := logging.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	if cfg.MetricsAddr != "" {
		go func() {
			logger.Info().Str("addr", cfg.MetricsAddr).Msg("serving metrics")
			if err := m.Serve(ctx, cfg.MetricsAddr); err != nil {
				logger.Error().Err(err).Msg("metrics listener stopped")
			}
		}()
	}

	client := irc.NewClient(cfg, logger, m, notificationLogger(logger))

	logger.Info().Str("server", cfg.Server).Int("port", cfg.Port).Str("nick", cfg.Nick).Msg("connecting")
	if err := client.Run(ctx); err != nil {
		if errors.Is(err, irc.NicknameConflict) {
			return fmt.Errorf("nickname %q is taken; enable auto_nick_change or pick another: %w", cfg.Nick, err)
		}
		return err
	}
	logger.Info().Msg("stopped")
	return nil
}

// notificationLogger writes every adapter notification to the log.
func notificationLogger(logger zerolog.Logger) irc.Listener {
	return irc.ListenerFunc(func(n irc.Notification) {
		switch n := n.(type) {
		case irc.MessageReceived:
			logger.Info().Str("room", n.Room).Str("from", n.Sender.Nick).Str("kind", n.Kind.String()).Msg(n.Text)
		case irc.MemberPresence:
			ev := logger.Info().Str("room", n.Room).Str("nick", n.Member.Nick).Str("presence", n.Kind.String())
			if n.Actor != nil {
				ev = ev.Str("by", n.Actor.Nick)
			}
			ev.Str("reason", n.Reason).Msg("member presence")
		case irc.LocalUserPresence:
			logger.Info().Str("room", n.Room).Str("presence", n.Kind.String()).Str("reason", n.Reason).Msg("local presence")
		case irc.MemberRoleChange:
			logger.Info().Str("room", n.Room).Str("nick", n.Member.Nick).
				Str("old", n.OldRole.String()).Str("new", n.NewRole.String()).Msg("role changed")
		case irc.MemberPropertyChange:
			logger.Info().Str("room", n.Room).Str("property", n.Property).Str("old", n.Old).Str("new", n.New).Msg("member changed")
		case irc.RoomPropertyChange:
			logger.Info().Str("room", n.Room).Str("property", n.Property).Str("old", n.Old).Str("new", n.New).
				Str("by", n.Actor).Msg("room changed")
		case irc.InvitationReceived:
			logger.Info().Str("room", n.Room).Str("from", n.Inviter).Msg("invited")
		}
	})
}
