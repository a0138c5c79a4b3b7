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

type Config struct {
	bind           string
	fastMoneyTimer time.Duration
	port           int
	prefix         string
	profile        bool
	questions      string
	rounds         int
	roundTimer     time.Duration
	sessionTimeout time.Duration
	strikeLimit    int
	tlsCert        string
	tlsKey         string
	verbose        bool
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.rounds < 1 {
		return fmt.Errorf("invalid round count (must be at least 1): %d", c.rounds)
	}
	if c.strikeLimit < 1 {
		return fmt.Errorf("invalid strike limit (must be at least 1): %d", c.strikeLimit)
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
	v.SetEnvPrefix("FEUD")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "feud",
		Short:         "A real-time Family Feud game server for parties, with phone buzzers.",
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

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: FEUD_BIND)")
	fs.DurationVar(&cfg.fastMoneyTimer, "fast-money-timer", 20*time.Second, "countdown per fast money contestant (env: FEUD_FAST_MONEY_TIMER)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: FEUD_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: FEUD_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: FEUD_PROFILE)")
	fs.StringVar(&cfg.questions, "questions", "", "path to a question bank file, replacing the embedded one (env: FEUD_QUESTIONS)")
	fs.IntVar(&cfg.rounds, "rounds", 5, "number of board rounds per game (env: FEUD_ROUNDS)")
	fs.DurationVar(&cfg.roundTimer, "round-timer", 0, "countdown per board round, 0 to disable (env: FEUD_ROUND_TIMER)")
	fs.DurationVar(&cfg.sessionTimeout, "session-timeout", 60*time.Minute, "time before idle game sessions are ended (env: FEUD_SESSION_TIMEOUT)")
	fs.IntVar(&cfg.strikeLimit, "strike-limit", 3, "strikes before the host is signaled to end the round (env: FEUD_STRIKE_LIMIT)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: FEUD_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: FEUD_TLS_KEY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: FEUD_VERBOSE)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("feud v{{.Version}}\n")

	cmd.SilenceUsage = true

	return cmd
}
