package dualstack

import (
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"

	"github.com/trufnetwork/netplan/lib/addressplan"
)

const DefaultJumphostInstanceType = "t4g.nano"

type JumphostProps struct {
	Vpc *Vpc
	// Name defaults to the construct id.
	Name         string
	InstanceType string
}

// Jumphost is an ARM Amazon Linux 2023 instance in the first private subnet. It has
// no public SSH port and is reached through the Instance Connect endpoint.
type Jumphost struct {
	constructs.Construct

	SecurityGroup *StdSecurityGroup
	Instance      awsec2.CfnInstance
	InstanceId    *string
}

func NewJumphost(scope constructs.Construct, id string, props *JumphostProps) (*Jumphost, error) {
	if props == nil || props.Vpc == nil {
		return nil, &addressplan.PreconditionError{Op: "jumphost " + id, Reason: "a vpc is required"}
	}
	name := props.Name
	if name == "" {
		name = id
	}
	instanceType := props.InstanceType
	if instanceType == "" {
		instanceType = DefaultJumphostInstanceType
	}

	j := &Jumphost{Construct: constructs.NewConstruct(scope, jsii.String(id))}

	var err error
	j.SecurityGroup, err = NewStdSecurityGroup(j.Construct, "SecurityGroup", &StdSecurityGroupProps{
		Vpc:         props.Vpc,
		Name:        name,
		Description: "jumphost " + name,
	})
	if err != nil {
		return nil, err
	}
	if err := props.Vpc.GrantEicIngressFor(j.SecurityGroup); err != nil {
		return nil, err
	}

	image := awsec2.MachineImage_LatestAmazonLinux2023(&awsec2.AmazonLinux2023ImageSsmParameterProps{
		CpuType: awsec2.AmazonLinuxCpuType_ARM_64,
	}).GetImage(j.Construct)

	j.Instance = awsec2.NewCfnInstance(j.Construct, jsii.String("Instance"), &awsec2.CfnInstanceProps{
		ImageId:          image.ImageId,
		InstanceType:     jsii.String(instanceType),
		SubnetId:         props.Vpc.PrivateSubnets[0].SubnetId,
		SecurityGroupIds: &[]*string{j.SecurityGroup.SecurityGroupId},
		Tags:             nameTags(name),
	})
	j.InstanceId = j.Instance.Ref()
	return j, nil
}
