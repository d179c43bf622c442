package main

import (
	"context"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/jsii-runtime-go"
	"go.uber.org/zap"

	"github.com/trufnetwork/netplan/config"
	"github.com/trufnetwork/netplan/lib/awsenv"
	"github.com/trufnetwork/netplan/lib/utils"
	"github.com/trufnetwork/netplan/stacks"
)

func init() {
	zap.ReplaceGlobals(zap.Must(zap.NewProduction()))
}

func main() {
	defer jsii.Close()

	app := awscdk.NewApp(nil)

	stacks.NetworkStack(
		app,
		config.WithStackSuffix(app, "Network"),
		&stacks.NetworkStackProps{
			StackProps: awscdk.StackProps{
				Env:         env(),
				Description: jsii.String("Dual-stack VPC with public and private subnets in three zones and an EC2 Instance Connect endpoint"),
			},
		},
	)

	app.Synth(nil)
}

// env returns the CDK environment, asking STS when NETPLAN_RESOLVE_AWS_ENV is set
// and no CDK variables are. Nil keeps the stack environment-agnostic.
func env() *awscdk.Environment {
	cdkEnv := utils.CdkEnv()
	if utils.IsEnvResolved(cdkEnv) {
		return cdkEnv
	}

	vars, err := config.ParseEnvironment[config.NetworkEnvironmentVariables]()
	if err != nil {
		zap.L().Fatal("Failed to parse environment", zap.Error(err))
	}
	if !vars.ResolveAwsEnv {
		return nil
	}

	identity, err := awsenv.Resolve(context.Background())
	if err != nil {
		zap.L().Fatal("Failed to resolve AWS environment", zap.Error(err))
	}
	zap.L().Info("Resolved AWS environment", zap.String("account", identity.Account), zap.String("region", identity.Region))
	return &awscdk.Environment{
		Account: jsii.String(identity.Account),
		Region:  jsii.String(identity.Region),
	}
}
