package commands

import (
	"fmt"

	"iiobuf/cmd/iiobuf/config"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newInfoCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "List the devices and channels of the context",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			ctx, err := config.CreateContext(cfg)
			if err != nil {
				return err
			}
			defer ctx.Release()

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "context: %s\n", ctx.Name())
			for _, dev := range ctx.Devices() {
				fmt.Fprintf(w, "  %s", dev.ID())
				if dev.Name() != "" && dev.Name() != dev.ID() {
					fmt.Fprintf(w, " (%s)", dev.Name())
				}
				fmt.Fprintln(w)
				for _, ch := range dev.Channels() {
					dir := "input"
					if ch.IsOutput() {
						dir = "output"
					}
					if !ch.IsScanElement() {
						fmt.Fprintf(w, "    %s %s\n", ch.ID(), dir)
						continue
					}
					fmt.Fprintf(w, "    %s %s %s scale=%g\n", ch.ID(), dir, ch.Format(), ch.Scale())
				}
			}
			return nil
		},
	}
}
