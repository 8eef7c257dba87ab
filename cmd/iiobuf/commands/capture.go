package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"iiobuf/cmd/iiobuf/config"
	"iiobuf/internel/callbacks"
	"iiobuf/internel/utils"
	"iiobuf/pkg/iio"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type captureOptions struct {
	device   string
	channels []string
	samples  int
	refills  int
	out      string
	text     bool
	nonblock bool
	scaled   bool
}

func newCaptureCmd(v *viper.Viper) *cobra.Command {
	var opts captureOptions
	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Capture buffers from an input device into files",
		Long: `Capture refills a buffer of the input device and writes one file per
channel. Press Enter or send SIGINT to stop early.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCapture(cmd, v, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.device, "device", "d", "loopback-rx", "input device")
	cmd.Flags().StringSliceVarP(&opts.channels, "channels", "c", nil, "channels to capture (default all)")
	cmd.Flags().IntVarP(&opts.samples, "samples", "n", 512, "samples per buffer")
	cmd.Flags().IntVar(&opts.refills, "refills", 1, "number of buffers to capture")
	cmd.Flags().StringVarP(&opts.out, "out", "o", ".", "output directory")
	cmd.Flags().BoolVar(&opts.text, "text", false, "write text files instead of binary")
	cmd.Flags().BoolVar(&opts.nonblock, "nonblock", false, "use non-blocking refills")
	cmd.Flags().BoolVar(&opts.scaled, "scaled", false, "apply the channel scale")
	return cmd
}

func runCapture(cmd *cobra.Command, v *viper.Viper, opts captureOptions) error {
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
	channels, err := enableChannels(dev, opts.channels, false)
	if err != nil {
		return err
	}

	buf, err := dev.CreateBuffer(opts.samples, false)
	if err != nil {
		return err
	}
	defer buf.Close()
	if err := buf.SetBlockingMode(!opts.nonblock); err != nil {
		return err
	}

	recorders := make([]*callbacks.Recorder, len(channels))
	for i, ch := range channels {
		recorders[i] = &callbacks.Recorder{Channel: ch}
	}

	stop := cancelOnStop(cmd, buf)
	defer stop()

	for done := 0; done < opts.refills; {
		n, err := buf.Refill()
		if iio.IsCanceled(err) {
			logrus.WithField("refills", done).Info("capture stopped")
			break
		} else if err != nil {
			return err
		}
		if n == 0 {
			time.Sleep(time.Millisecond)
			continue
		}
		for _, r := range recorders {
			if err := r.Update(buf); err != nil {
				return err
			}
		}
		done++
		logrus.WithFields(logrus.Fields{"refill": done, "bytes": n}).Debug("buffer refilled")
	}

	if err := os.MkdirAll(opts.out, 0755); err != nil {
		return err
	}
	for _, r := range recorders {
		filename, err := writeTrack(opts, r)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(filename)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d samples -> %s (crc8 0x%02x)\n",
			r.Channel.ID(), len(r.Track), filename, utils.CRC8(data))
	}
	return nil
}

func writeTrack(opts captureOptions, r *callbacks.Recorder) (string, error) {
	base := filepath.Join(opts.out, r.Channel.ID())
	identity := func(v float64) float64 { return v }
	switch {
	case opts.text && opts.scaled:
		return base + ".txt", utils.WriteTxt(base+".txt", r.Scaled(), identity)
	case opts.text:
		return base + ".txt", utils.WriteTxt(base+".txt", r.Track, func(v int64) int64 { return v })
	case opts.scaled:
		return base + ".f64", utils.WriteBinary(base+".f64", r.Scaled())
	}
	return base + ".bin", utils.WriteBinary(base+".bin", r.Track)
}
