package cmds

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/trufnetwork/netplan/config"
	"github.com/trufnetwork/netplan/config/planfile"
	"github.com/trufnetwork/netplan/lib/addressplan"
	"github.com/trufnetwork/netplan/lib/renderer"
)

const (
	outputJSON     = "json"
	outputYAML     = "yaml"
	outputMarkdown = "markdown"
)

type planFlags struct {
	configFile string
	name       string
	maskBits   int
	ipv6Block  string
	zone       string
	output     string
}

func newPlanCmd() *cobra.Command {
	var flags planFlags
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the subnet plan",
		Long: `Print the six subnets, their route tables, the security groups and the
EC2 Instance Connect grants of a plan.

Flags override the values of the plan file.

Examples:
  # default /22 subnets, IPv6 assigned by AWS
  netplan plan

  # /24 subnets with a known IPv6 block, as yaml
  netplan plan --mask-bits 24 --ipv6-block 2600:1f18:6a2b:ce00::/56 --output yaml

  # groups and grants from a plan file
  netplan plan --config plan.toml --output markdown

  # only the subnets of zone b
  netplan plan --zone b`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := loadPlanFile(cmd, &flags)
			if err != nil {
				return err
			}
			report, err := buildReport(f)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("zone") {
				zone, err := addressplan.ZoneFromLetter(flags.zone)
				if err != nil {
					return err
				}
				report = report.InZone(zone)
			}
			zap.L().Debug("planned layout",
				zap.String("name", report.Name),
				zap.Int("ipv4MaskBits", report.Ipv4MaskBits),
				zap.Int("securityGroups", len(report.SecurityGroups)))
			return writeReport(cmd.OutOrStdout(), flags.output, report)
		},
	}

	cmd.Flags().StringVar(&flags.configFile, "config", "", "TOML plan file (env NETPLAN_CONFIG)")
	cmd.Flags().StringVar(&flags.name, "name", "", "name prefix of every resource (default \"vpc\")")
	cmd.Flags().IntVar(&flags.maskBits, "mask-bits", 0, "IPv4 subnet size in [20,24] (default 22)")
	cmd.Flags().StringVar(&flags.ipv6Block, "ipv6-block", "", "known VPC IPv6 /56")
	cmd.Flags().StringVar(&flags.zone, "zone", "", "only print the subnets of this zone: a, b or c")
	cmd.Flags().StringVarP(&flags.output, "output", "o", outputJSON, "output format: json, yaml or markdown")
	return cmd
}

// loadPlanFile reads the plan file, if any, and applies the flags that were set.
func loadPlanFile(cmd *cobra.Command, flags *planFlags) (*planfile.File, error) {
	path := flags.configFile
	if path == "" {
		vars, err := config.ParseEnvironment[config.PlanEnvironmentVariables]()
		if err != nil {
			return nil, err
		}
		path = vars.ConfigFile
	}

	f := &planfile.File{}
	if path != "" {
		loaded, err := planfile.Load(path)
		if err != nil {
			return nil, err
		}
		f = loaded
	}

	if cmd.Flags().Changed("name") {
		f.Name = flags.name
	}
	if cmd.Flags().Changed("mask-bits") {
		f.Ipv4MaskBits = flags.maskBits
	}
	if cmd.Flags().Changed("ipv6-block") {
		f.Ipv6Block = flags.ipv6Block
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

func buildReport(f *planfile.File) (renderer.LayoutReport, error) {
	layout, groups, err := f.Plan()
	if err != nil {
		return renderer.LayoutReport{}, err
	}
	if err := layout.Verify(); err != nil {
		return renderer.LayoutReport{}, err
	}
	return renderer.NewLayoutReport(layout, groups), nil
}

func writeReport(w io.Writer, format string, report renderer.LayoutReport) error {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return err
		}
		return enc.Close()
	case outputMarkdown:
		md, err := renderer.Render(renderer.TplLayoutReport, report)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, md)
		return err
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
