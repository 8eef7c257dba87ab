package commands

import (
	"fmt"

	"iiobuf/cmd/iiobuf/config"
	"iiobuf/internel/callbacks"
	"iiobuf/internel/utils"
	"iiobuf/pkg/device"
	"iiobuf/pkg/iio"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type generateOptions struct {
	device    string
	channels  []string
	tone      float64
	amplitude float64
	samples   int
	pushes    int
	cyclic    bool
}

func newGenerateCmd(v *viper.Viper) *cobra.Command {
	var opts generateOptions
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Push a sine tone to an output device",
		Long: `Generate pushes a sine tone through a buffer of the output device.
With --cyclic the first buffer is pushed once and repeated until Enter or
SIGINT.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, v, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.device, "device", "d", "loopback-tx", "output device")
	cmd.Flags().StringSliceVarP(&opts.channels, "channels", "c", nil, "channels to drive (default all)")
	cmd.Flags().Float64Var(&opts.tone, "tone", 1000, "tone frequency in Hz")
	cmd.Flags().Float64Var(&opts.amplitude, "amplitude", 0.5, "amplitude relative to full scale")
	cmd.Flags().IntVarP(&opts.samples, "samples", "n", 512, "samples per buffer")
	cmd.Flags().IntVar(&opts.pushes, "pushes", 4, "number of buffers to push")
	cmd.Flags().BoolVar(&opts.cyclic, "cyclic", false, "push one cyclic buffer")
	return cmd
}

func runGenerate(cmd *cobra.Command, v *viper.Viper, opts generateOptions) error {
	cfg, err := loadConfig(v)
	if err != nil {
		return err
	}
	ctx, err := config.CreateContext(cfg)
	if err != nil {
		return err
	}
	defer ctx.Release()

	dev, err := findDevice(ctx, opts.device)
	if err != nil {
		return err
	}
	channels, err := enableChannels(dev, opts.channels, true)
	if err != nil {
		return err
	}

	buf, err := dev.CreateBuffer(opts.samples, opts.cyclic)
	if err != nil {
		return err
	}
	defer buf.Close()

	rate := cfg.Backend.SampleRate
	if rate == 0 {
		rate = device.DefaultSampleRate
	}
	pushes := opts.pushes
	if opts.cyclic {
		pushes = 1
	}
	tone := utils.Sine(opts.tone, opts.amplitude, opts.samples*pushes, rate)
	players := make([]*callbacks.Player, len(channels))
	for i, ch := range channels {
		track := make([]int64, len(tone))
		for k, x := range tone {
			track[k] = utils.Quantize(x, ch.Format().Max())
		}
		players[i] = &callbacks.Player{Channel: ch, Track: track}
	}

	if !opts.cyclic {
		defer cancelOnStop(cmd, buf)()
	}

	pushed := 0
	for pushed < pushes {
		for _, p := range players {
			if err := p.Update(buf); err != nil {
				return err
			}
		}
		_, err := buf.Push()
		if iio.IsCanceled(err) {
			break
		} else if err != nil {
			return err
		}
		pushed++
	}
	logrus.WithFields(logrus.Fields{"device": dev.ID(), "pushes": pushed}).Info("tone pushed")

	if opts.cyclic && pushed == 1 {
		fmt.Fprintln(cmd.OutOrStdout(), "cyclic buffer running, press Enter to stop")
		defer cancelOnStop(cmd, buf)()
		<-buf.Done()
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d buffers of %d samples\n", dev.ID(), pushed, opts.samples)
	return nil
}
