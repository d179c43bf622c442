// Package cmds holds the netplan commands. netplan prints the deterministic
// dual-stack subnet plan that the network stack deploys.
package cmds

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/trufnetwork/netplan/config"
)

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "netplan",
		Short:         "Plan dual-stack VPC subnets",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			vars, err := config.ParseEnvironment[config.PlanEnvironmentVariables]()
			if err != nil {
				return fmt.Errorf("reading environment: %w", err)
			}
			return setupLogger(vars.LogLevel)
		},
	}
	root.AddCommand(newPlanCmd(), newValidateCmd())
	return root
}

// setupLogger replaces the global logger with one at the requested level.
func setupLogger(level string) error {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	logger, err := cfg.Build()
	if err != nil {
		return err
	}
	zap.ReplaceGlobals(logger)
	return nil
}
