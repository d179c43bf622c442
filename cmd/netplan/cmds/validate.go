package cmds

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trufnetwork/netplan/lib/addressplan"
)

func newValidateCmd() *cobra.Command {
	var (
		maskBits  int
		ipv6Block string
	)
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a subnet size and IPv6 block without planning",
		Example: `  netplan validate --mask-bits 23
  netplan validate --mask-bits 22 --ipv6-block 2600:1f18:6a2b:ce00::/56`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := addressplan.ValidateMaskBits(maskBits); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ipv4: /%d subnets, each spanning %d x /24\n", maskBits, addressplan.Multiplier(maskBits))

			if ipv6Block == "" {
				return nil
			}
			block, err := addressplan.ParseIpv6Base(ipv6Block)
			if err != nil {
				return err
			}
			if err := addressplan.ValidateIpv6Base(block); err != nil {
				return err
			}
			fmt.Fprintf(out, "ipv6: %s\n", block)
			return nil
		},
	}
	cmd.Flags().IntVar(&maskBits, "mask-bits", addressplan.DefaultIpv4MaskBits, "IPv4 subnet size")
	cmd.Flags().StringVar(&ipv6Block, "ipv6-block", "", "VPC IPv6 /56")
	return cmd
}
