package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	maxRequestBytes   = 4096
	maxWSMessageBytes = 4096

	rxSharedBuffer      = 64
	txBroadcastBuffer   = 256
	txSelfDelayedBuffer = 4

	numberOfWordsToChoose = 3

	defaultRounds       uint8 = 3
	defaultGuessSeconds uint8 = 120
	defaultHeartbeat          = 45 * time.Second

	removeDisconnectedAfter = 60 * time.Second
)

type Config struct {
	bind         string
	guessSeconds uint8
	heartbeat    time.Duration
	port         int
	prefix       string
	profile      bool
	rounds       uint8
	tlsCert      string
	tlsKey       string
	verbose      bool
	version      bool
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.rounds < 1 {
		return fmt.Errorf("invalid round count: %d", c.rounds)
	}
	if c.guessSeconds < 1 {
		return fmt.Errorf("invalid guess timer: %d", c.guessSeconds)
	}
	if c.heartbeat < time.Second {
		return fmt.Errorf("invalid heartbeat interval: %s", c.heartbeat)
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("SCRAWL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "scrawl",
		Short:         "A real-time multiplayer drawing-and-guessing game server.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServePage(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: SCRAWL_BIND)")
	fs.Uint8Var(&cfg.guessSeconds, "guess-seconds", defaultGuessSeconds, "default seconds per drawing round (env: SCRAWL_GUESS_SECONDS)")
	fs.DurationVar(&cfg.heartbeat, "heartbeat", defaultHeartbeat, "interval between keepalive heartbeats (env: SCRAWL_HEARTBEAT)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: SCRAWL_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: SCRAWL_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: SCRAWL_PROFILE)")
	fs.Uint8Var(&cfg.rounds, "rounds", defaultRounds, "default number of rounds per game (env: SCRAWL_ROUNDS)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: SCRAWL_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: SCRAWL_TLS_KEY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: SCRAWL_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: SCRAWL_VERSION)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("scrawl v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
