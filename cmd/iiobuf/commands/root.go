package commands

import (
	"fmt"
	"os"
	"os/signal"
	"strings"

	"iiobuf/cmd/iiobuf/config"
	"iiobuf/internel/logging"
	"iiobuf/pkg/async"
	"iiobuf/pkg/iio"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd builds the command tree. Settings come from flags, then
// IIOBUF_* environment variables.
func NewRootCmd() *cobra.Command {
	v := viper.New()

	rootCmd := &cobra.Command{
		Use:   "iiobuf",
		Short: "Capture and generate samples through iio buffers",
		Long: `iiobuf opens an iio context described by a yaml file and moves
samples between its devices and files.

Without --config a loopback context with two 16-bit channels is used.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logging.Init(v.GetString("log-level"), v.GetString("log-file"), true)
		},
	}

	rootCmd.PersistentFlags().String("config", "", "context description file (yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-file", "", "also log to this file")

	for _, name := range []string{"config", "log-level", "log-file"} {
		v.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
	}
	v.SetEnvPrefix("IIOBUF")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	rootCmd.AddCommand(newInfoCmd(v), newCaptureCmd(v), newGenerateCmd(v))
	return rootCmd
}

func loadConfig(v *viper.Viper) (*config.Config, error) {
	filename := v.GetString("config")
	if filename == "" {
		return config.DefaultConfig(), nil
	}
	cfg, err := config.LoadConfig(filename)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", filename, err)
	}
	return cfg, nil
}

func findDevice(ctx *iio.Context, name string) (*iio.Device, error) {
	dev := ctx.FindDevice(name)
	if dev == nil {
		return nil, fmt.Errorf("device %q not found in context %s", name, ctx.Name())
	}
	return dev, nil
}

// enableChannels enables the named channels of dev, or all its scan
// elements of the given direction when names is empty.
func enableChannels(dev *iio.Device, names []string, output bool) ([]*iio.Channel, error) {
	var channels []*iio.Channel
	if len(names) == 0 {
		for _, ch := range dev.Channels() {
			if ch.IsScanElement() && ch.IsOutput() == output {
				channels = append(channels, ch)
			}
		}
	}
	for _, name := range names {
		ch := dev.FindChannel(name, output)
		if ch == nil {
			return nil, fmt.Errorf("channel %q not found on %s", name, dev.ID())
		}
		channels = append(channels, ch)
	}
	if len(channels) == 0 {
		return nil, fmt.Errorf("no channel to enable on %s", dev.ID())
	}
	for _, ch := range channels {
		if err := ch.Enable(); err != nil {
			return nil, fmt.Errorf("enabling %s: %w", ch.ID(), err)
		}
	}
	return channels, nil
}

// cancelOnStop cancels b when a line is read from the command input or
// SIGINT arrives. The returned function stops watching and returns once the
// watcher is gone, so b is never cancelled after it.
func cancelOnStop(cmd *cobra.Command, b *iio.Buffer) (stop func()) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	done := make(chan struct{})
	line := async.LineFrom(cmd.InOrStdin())
	watcher := async.Job(func() {
		select {
		case <-line:
		case <-sig:
		case <-cmd.Context().Done():
		case <-done:
			return
		}
		b.Cancel()
	})
	return func() {
		signal.Stop(sig)
		close(done)
		<-watcher
	}
}
