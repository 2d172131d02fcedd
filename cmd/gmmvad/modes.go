package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bytectlgo/gmmvad"
)

func newModesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "modes",
		Short: "列出各模式在10/20/30 ms下的阈值",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "MODE\tNAME\tFRAME\tOVERHANG1\tOVERHANG2\tLOCAL\tGLOBAL")
			for m := gmmvad.ModeQuality; m <= gmmvad.ModeVeryAggressive; m++ {
				for _, ms := range []int{10, 20, 30} {
					th, _ := gmmvad.Preset(m, ms)
					fmt.Fprintf(tw, "%d\t%s\t%dms\t%d\t%d\t%d\t%d\n",
						int(m), m, ms, th.OverhangMax1, th.OverhangMax2, th.Local, th.Global)
				}
			}
			return tw.Flush()
		},
	}
}
