package main

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newProbeCommand(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Open the capture device, read one frame and print its geometry.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Context(), f, cmd.Flags())
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 2*cfg.ReadTimeout)
			defer cancel()

			h, err := newSource(cfg).Open(ctx)
			if err != nil {
				return err
			}
			defer h.Close()

			frame, err := h.Next(ctx)
			if err != nil {
				return err
			}
			log.Debugf("Probed %v", frame)
			fmt.Fprintf(cmd.OutOrStdout(), "device %v: %dx%d, %d channels, %d-bit\n",
				cfg.Device, frame.Width, frame.Height, frame.Channels, frame.Depth)
			return nil
		},
	}
}
