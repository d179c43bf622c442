package stacks

import (
	"fmt"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsssm"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"

	"github.com/trufnetwork/netplan/config"
	"github.com/trufnetwork/netplan/lib/cdklogger"
	"github.com/trufnetwork/netplan/lib/constructs/dualstack"
)

type NetworkStackProps struct {
	awscdk.StackProps
	// Settings replaces the context and environment settings when set.
	Settings *config.NetworkSettings `json:",omitempty"`
}

type NetworkStackExports struct {
	Stack    awscdk.Stack
	Vpc      *dualstack.Vpc
	Jumphost *dualstack.Jumphost
}

// NetworkStack creates the dual-stack VPC and publishes its identifiers as stack
// outputs and SSM parameters. Invalid settings abort the synth.
func NetworkStack(scope constructs.Construct, id string, props *NetworkStackProps) NetworkStackExports {
	var sprops awscdk.StackProps
	if props != nil {
		sprops = props.StackProps
	}
	stack := awscdk.NewStack(scope, jsii.String(id), &sprops)
	exports := NetworkStackExports{Stack: stack}
	if !config.IsStackInSynthesis(stack) {
		return exports
	}

	settings, err := networkSettings(stack, props)
	if err == nil {
		err = buildNetwork(stack, settings, &exports)
	}
	if err != nil {
		cdklogger.LogError(stack, "", "%v", err)
		panic(err)
	}
	return exports
}

// networkSettings prefers the settings given in props over context and environment.
func networkSettings(stack awscdk.Stack, props *NetworkStackProps) (config.NetworkSettings, error) {
	if props == nil || props.Settings == nil {
		return config.LoadNetworkSettings(stack)
	}
	settings := *props.Settings
	if err := settings.Validate(); err != nil {
		return config.NetworkSettings{}, err
	}
	return settings, nil
}

func buildNetwork(stack awscdk.Stack, settings config.NetworkSettings, exports *NetworkStackExports) error {
	stage := settings.Stage
	if stage == "" {
		stage = config.DeploymentStage_PROD
	}
	cdklogger.LogInfo(stack, "", "Network settings: name=%s stage=%s ipv4MaskBits=%d ipv6Block=%q includeJumphost=%t",
		settings.Name, stage, settings.Ipv4MaskBits, settings.Ipv6Block, settings.IncludeJumphost)
	awscdk.Tags_Of(stack).Add(jsii.String("Stage"), jsii.String(string(stage)), nil)

	vpc, err := dualstack.NewVpc(stack, "Network", &dualstack.VpcProps{
		Name:         settings.Name,
		Ipv4MaskBits: settings.Ipv4MaskBits,
		Ipv6Block:    settings.Ipv6Block,
		Ipv6PoolId:   settings.Ipv6PoolId,
	})
	if err != nil {
		return err
	}
	exports.Vpc = vpc

	if settings.IncludeJumphost {
		exports.Jumphost, err = dualstack.NewJumphost(stack, "Jumphost", &dualstack.JumphostProps{
			Vpc:  vpc,
			Name: settings.Name + "-jumphost",
		})
		if err != nil {
			return err
		}
		awscdk.NewCfnOutput(stack, jsii.String("JumphostInstanceId"), &awscdk.CfnOutputProps{
			Value: exports.Jumphost.InstanceId,
		})
	}

	publishNetwork(stack, vpc)
	vpc.Seal()
	return nil
}

// publishNetwork exports the identifiers other stacks and tools look up.
func publishNetwork(stack awscdk.Stack, vpc *dualstack.Vpc) {
	awscdk.NewCfnOutput(stack, jsii.String("VpcId"), &awscdk.CfnOutputProps{Value: vpc.VpcId})
	awscdk.NewCfnOutput(stack, jsii.String("VpcIpv6Cidr"), &awscdk.CfnOutputProps{Value: vpc.CidrIpv6})
	awscdk.NewCfnOutput(stack, jsii.String("PublicSubnetIds"), &awscdk.CfnOutputProps{
		Value: awscdk.Fn_Join(jsii.String(","), toPtrSlice(vpc.PublicSubnetIds())),
	})
	awscdk.NewCfnOutput(stack, jsii.String("PrivateSubnetIds"), &awscdk.CfnOutputProps{
		Value: awscdk.Fn_Join(jsii.String(","), toPtrSlice(vpc.PrivateSubnetIds())),
	})
	awscdk.NewCfnOutput(stack, jsii.String("EicSecurityGroupId"), &awscdk.CfnOutputProps{
		Value: vpc.InstanceConnect.SecurityGroupId,
	})

	prefix := ParameterPrefix(*stack.StackName())
	putParameter(stack, "VpcIdParameter", prefix+"/vpc-id", vpc.VpcId)
	putParameter(stack, "EicSecurityGroupIdParameter", prefix+"/eic-security-group-id", vpc.InstanceConnect.SecurityGroupId)
	for _, subnets := range [][]*dualstack.Subnet{vpc.PublicSubnets, vpc.PrivateSubnets} {
		for _, s := range subnets {
			putParameter(stack, s.Name+"-parameter",
				fmt.Sprintf("%s/subnets/%s/%s", prefix, s.Class, s.Zone.Letter()), s.SubnetId)
		}
	}
}

// ParameterPrefix is the SSM path all network parameters of a stack live under.
func ParameterPrefix(stackName string) string {
	return "/" + stackName + "/network"
}

func putParameter(stack awscdk.Stack, id, name string, value *string) {
	awsssm.NewStringParameter(stack, jsii.String(id), &awsssm.StringParameterProps{
		ParameterName: jsii.String(name),
		StringValue:   value,
	})
}

func toPtrSlice(ids []*string) *[]*string {
	return &ids
}
