package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"jetstream-go/common/logger"
	"jetstream-go/jetstream"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// cli holds the viper instance shared by every subcommand of one root.
type cli struct {
	v *viper.Viper
}

func newRootCmd() *cobra.Command {
	c := &cli{v: viper.New()}

	root := &cobra.Command{
		Use:           "jetstreamctl",
		Short:         "jetstreamctl manages devices, policies and events of a Jetstream account",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("url", "", `base url of the Jetstream api (env JETSTREAM_URL)`)
	root.PersistentFlags().String("access-key", "", `account access key (env JETSTREAM_ACCESS_KEY)`)
	root.PersistentFlags().Duration("timeout", jetstream.DefaultTimeout, `per request timeout`)
	root.PersistentFlags().String("log-level", "warn", `log level: debug, info, warn, error`)

	c.v.BindPFlag("url", root.PersistentFlags().Lookup("url"))
	c.v.BindPFlag("access_key", root.PersistentFlags().Lookup("access-key"))
	c.v.BindPFlag("timeout", root.PersistentFlags().Lookup("timeout"))
	c.v.BindPFlag("log_level", root.PersistentFlags().Lookup("log-level"))
	c.v.SetEnvPrefix("JETSTREAM")
	c.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.v.AutomaticEnv()

	root.AddCommand(
		c.devicesCmd(),
		c.policiesCmd(),
		c.aliasesCmd(),
		c.eventsCmd(),
		c.commandCmd(),
	)
	return root
}

func (c *cli) client() (*jetstream.Client, error) {
	// logging is best effort for the CLI
	log, _ := logger.NewLogger(c.v.GetString("log_level"), "console", "jetstreamctl")
	timeout := c.v.GetDuration("timeout")
	if timeout <= 0 {
		timeout = jetstream.DefaultTimeout
	}
	return jetstream.NewClient(jetstream.Config{
		BaseURL:   c.v.GetString("url"),
		AccessKey: c.v.GetString("access_key"),
		Timeout:   timeout,
		UserAgent: "jetstreamctl",
	}, logger.OrNop(log))
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}

// requestTimeout bounds a whole command, including several api calls.
func (c *cli) requestTimeout() time.Duration {
	t := c.v.GetDuration("timeout")
	if t <= 0 {
		t = jetstream.DefaultTimeout
	}
	return 2 * t
}
