// Package dualstack renders a planned dual-stack topology as CloudFormation
// resources: the VPC with its /56, three public and three private subnets, one
// route table per subnet, the gateways, security groups and the EC2 Instance
// Connect endpoint.
package dualstack

import (
	"fmt"
	"sync"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/samber/lo"

	"github.com/trufnetwork/netplan/lib/addressplan"
	"github.com/trufnetwork/netplan/lib/cdklogger"
	"github.com/trufnetwork/netplan/lib/topology"
)

type VpcProps struct {
	// Name prefixes every resource name. Defaults to the construct id.
	Name string
	// Ipv4MaskBits is the subnet size in [20,24]. 0 selects /22.
	Ipv4MaskBits int
	// Ipv6Block is an optional BYOIP /56. Without it AWS assigns the block at deploy time.
	Ipv6Block string
	// Ipv6PoolId is the BYOIP pool Ipv6Block is taken from. Required with Ipv6Block.
	Ipv6PoolId string
}

type Vpc struct {
	constructs.Construct

	Layout *topology.Layout

	Resource awsec2.CfnVPC
	VpcId    *string
	// CidrIpv4 is always 10.0.0.0/16.
	CidrIpv4 *string
	// CidrIpv6 is the /56, either literal or a token resolved at deploy time.
	CidrIpv6 *string

	PublicSubnets  []*Subnet
	PrivateSubnets []*Subnet

	InternetGateway   awsec2.CfnInternetGateway
	EgressOnlyGateway awsec2.CfnEgressOnlyInternetGateway
	InstanceConnect   *InstanceConnect

	ipv6Block awsec2.CfnVPCCidrBlock

	mu       sync.Mutex
	groupIds map[string]*string
}

// NewVpc plans the topology and renders it. Configuration problems are returned
// before any construct is added to scope.
func NewVpc(scope constructs.Construct, id string, props *VpcProps) (*Vpc, error) {
	if props == nil {
		props = &VpcProps{}
	}
	name := props.Name
	if name == "" {
		name = id
	}

	space, err := newAddressSpace(props)
	if err != nil {
		return nil, fmt.Errorf("vpc %s: %w", id, err)
	}
	layout, err := topology.Plan(space, topology.WithName(name))
	if err != nil {
		return nil, fmt.Errorf("vpc %s: %w", id, err)
	}
	if err := layout.Verify(); err != nil {
		return nil, fmt.Errorf("vpc %s: %w", id, err)
	}

	v := &Vpc{
		Construct: constructs.NewConstruct(scope, jsii.String(id)),
		Layout:    layout,
		groupIds:  map[string]*string{},
	}

	cfnVpc := awsec2.NewCfnVPC(v.Construct, jsii.String("Vpc"), &awsec2.CfnVPCProps{
		CidrBlock:          jsii.String(space.Ipv4Base().String()),
		EnableDnsSupport:   jsii.Bool(true),
		EnableDnsHostnames: jsii.Bool(true),
		Tags:               nameTags(name),
	})
	v.Resource = cfnVpc
	v.VpcId = cfnVpc.Ref()
	v.CidrIpv4 = jsii.String(space.Ipv4Base().String())

	blockProps := &awsec2.CfnVPCCidrBlockProps{VpcId: v.VpcId}
	if base, known := space.Ipv6Base(); known {
		blockProps.Ipv6CidrBlock = jsii.String(base.String())
		blockProps.Ipv6Pool = jsii.String(props.Ipv6PoolId)
		v.CidrIpv6 = jsii.String(base.String())
	} else {
		blockProps.AmazonProvidedIpv6CidrBlock = jsii.Bool(true)
		v.CidrIpv6 = awscdk.Fn_Select(jsii.Number(0), cfnVpc.AttrIpv6CidrBlocks())
	}
	v.ipv6Block = awsec2.NewCfnVPCCidrBlock(v.Construct, jsii.String("Ipv6Block"), blockProps)

	v.InternetGateway = awsec2.NewCfnInternetGateway(v.Construct, jsii.String("InternetGateway"), &awsec2.CfnInternetGatewayProps{
		Tags: nameTags(name + "-igw"),
	})
	attachment := awsec2.NewCfnVPCGatewayAttachment(v.Construct, jsii.String("InternetGatewayAttachment"), &awsec2.CfnVPCGatewayAttachmentProps{
		VpcId:             v.VpcId,
		InternetGatewayId: v.InternetGateway.Ref(),
	})
	v.EgressOnlyGateway = awsec2.NewCfnEgressOnlyInternetGateway(v.Construct, jsii.String("EgressOnlyGateway"), &awsec2.CfnEgressOnlyInternetGatewayProps{
		VpcId: v.VpcId,
	})

	region := awscdk.Stack_Of(v.Construct).Region()
	if *awscdk.Token_IsUnresolved(region) {
		cdklogger.LogWarning(v.Construct, id, "environment-agnostic stack, availability zones resolve against the deploy region")
	}
	for _, d := range layout.Subnets() {
		s := v.newSubnet(d, region, attachment)
		if d.Class == addressplan.Public {
			v.PublicSubnets = append(v.PublicSubnets, s)
		} else {
			v.PrivateSubnets = append(v.PrivateSubnets, s)
		}
	}

	v.InstanceConnect, err = newInstanceConnect(v)
	if err != nil {
		return nil, fmt.Errorf("vpc %s: %w", id, err)
	}

	cdklogger.LogInfo(v.Construct, id, "planned %s with /%d IPv4 subnets, IPv6 %s",
		space.Ipv4Base(), space.Ipv4MaskBits(), ipv6Summary(space))
	return v, nil
}

func newAddressSpace(props *VpcProps) (addressplan.AddressSpace, error) {
	base, err := addressplan.ParseIpv6Base(props.Ipv6Block)
	if err != nil {
		return addressplan.AddressSpace{}, err
	}
	if base.IsValid() && props.Ipv6PoolId == "" {
		return addressplan.AddressSpace{}, &addressplan.ConfigurationError{Field: "ipv6PoolId", Value: props.Ipv6PoolId, Reason: "is required together with ipv6Block"}
	}
	return addressplan.NewAddressSpace(props.Ipv4MaskBits, base)
}

func ipv6Summary(space addressplan.AddressSpace) string {
	if base, known := space.Ipv6Base(); known {
		return base.String()
	}
	return "assigned by AWS"
}

func (v *Vpc) PublicSubnetIds() []*string {
	return lo.Map(v.PublicSubnets, func(s *Subnet, _ int) *string { return s.SubnetId })
}

func (v *Vpc) PrivateSubnetIds() []*string {
	return lo.Map(v.PrivateSubnets, func(s *Subnet, _ int) *string { return s.SubnetId })
}

// Seal closes the access gate; later grants fail. Returns the number of grants.
func (v *Vpc) Seal() int {
	grants := v.InstanceConnect.Gate.Finalize()
	cdklogger.LogInfo(v.Construct, "", "access gate sealed with %d grants", len(grants))
	return len(grants)
}

// dependOnIpv6Block orders resource after the /56 association whenever it reads a
// token derived from it.
func (v *Vpc) dependOnIpv6Block(resource awscdk.CfnResource) {
	if _, known := v.Layout.Space().Ipv6Base(); !known {
		resource.AddDependency(v.ipv6Block)
	}
}

func (v *Vpc) registerGroup(name string, groupId *string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.groupIds[name] = groupId
}

// peer maps a symbolic rule peer to exactly one of the CloudFormation source fields.
func (v *Vpc) peer(p topology.Peer) (cidrIp, cidrIpv6, groupId *string, err error) {
	switch p.Kind {
	case topology.PeerAnyIpv4:
		return jsii.String(string(topology.DefaultIpv4Route)), nil, nil, nil
	case topology.PeerAnyIpv6:
		return nil, jsii.String(string(topology.DefaultIpv6Route)), nil, nil
	case topology.PeerVpcIpv4:
		return v.CidrIpv4, nil, nil, nil
	case topology.PeerVpcIpv6:
		return nil, v.CidrIpv6, nil, nil
	case topology.PeerGroup:
		v.mu.Lock()
		defer v.mu.Unlock()
		id, ok := v.groupIds[p.Group]
		if !ok {
			return nil, nil, nil, &addressplan.PreconditionError{Op: "resolve peer", Reason: "security group " + p.Group + " is not rendered in this vpc"}
		}
		return nil, nil, id, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown peer kind %d", p.Kind)
	}
}

func nameTags(name string) *[]*awscdk.CfnTag {
	return &[]*awscdk.CfnTag{
		{Key: jsii.String("Name"), Value: jsii.String(name)},
	}
}
