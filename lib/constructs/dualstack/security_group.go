package dualstack

import (
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"

	"github.com/trufnetwork/netplan/lib/addressplan"
	"github.com/trufnetwork/netplan/lib/topology"
)

type StdSecurityGroupProps struct {
	Vpc *Vpc
	// Name of the group inside the topology. Defaults to the construct id.
	Name         string
	Description  string
	IngressPorts []uint16
	// PublicIngress opens IngressPorts to 0.0.0.0/0 and ::/0 instead of the VPC blocks.
	PublicIngress bool
}

// StdSecurityGroup is a group with explicit TCP ingress ports on both protocols
// and unrestricted TCP egress.
type StdSecurityGroup struct {
	constructs.Construct

	Group           *topology.SecurityGroup
	Resource        awsec2.CfnSecurityGroup
	SecurityGroupId *string

	vpc *Vpc
}

func NewStdSecurityGroup(scope constructs.Construct, id string, props *StdSecurityGroupProps) (*StdSecurityGroup, error) {
	if props == nil || props.Vpc == nil {
		return nil, &addressplan.PreconditionError{Op: "security group " + id, Reason: "a vpc is required"}
	}
	name := props.Name
	if name == "" {
		name = id
	}

	group, err := props.Vpc.Layout.BuildSecurityGroup(topology.SecurityGroupSpec{
		Name:                name,
		Description:         props.Description,
		AllowedIngressPorts: props.IngressPorts,
		PublicIngress:       props.PublicIngress,
	})
	if err != nil {
		return nil, err
	}

	sg := &StdSecurityGroup{
		Construct: constructs.NewConstruct(scope, jsii.String(id)),
		Group:     group,
		vpc:       props.Vpc,
	}
	sg.Resource, err = props.Vpc.renderGroup(sg.Construct, group)
	if err != nil {
		return nil, err
	}
	sg.SecurityGroupId = sg.Resource.AttrGroupId()

	for _, rule := range group.IngressRules() {
		if _, err := props.Vpc.renderIngress(sg.Construct, sg.SecurityGroupId, rule); err != nil {
			return nil, err
		}
	}
	return sg, nil
}

func (sg *StdSecurityGroup) Name() string { return sg.Group.Name() }

// renderGroup creates the group with its egress rules inline, which replaces the
// allow-all egress rule EC2 adds by default.
func (v *Vpc) renderGroup(scope constructs.Construct, group *topology.SecurityGroup) (awsec2.CfnSecurityGroup, error) {
	var egress []interface{}
	readsIpv6Block := false
	for _, rule := range group.EgressRules() {
		cidrIp, cidrIpv6, groupId, err := v.peer(rule.Peer)
		if err != nil {
			return nil, err
		}
		readsIpv6Block = readsIpv6Block || rule.Peer.Kind == topology.PeerVpcIpv6
		egress = append(egress, &awsec2.CfnSecurityGroup_EgressProperty{
			IpProtocol:                 jsii.String(rule.Protocol),
			FromPort:                   jsii.Number(float64(rule.FromPort)),
			ToPort:                     jsii.Number(float64(rule.ToPort)),
			CidrIp:                     cidrIp,
			CidrIpv6:                   cidrIpv6,
			DestinationSecurityGroupId: groupId,
			Description:                jsii.String(rule.Name),
		})
	}

	resource := awsec2.NewCfnSecurityGroup(scope, jsii.String("SecurityGroup"), &awsec2.CfnSecurityGroupProps{
		GroupDescription:    jsii.String(group.Description()),
		VpcId:               v.VpcId,
		SecurityGroupEgress: &egress,
		Tags:                nameTags(group.Name()),
	})
	if readsIpv6Block {
		v.dependOnIpv6Block(resource)
	}
	v.registerGroup(group.Name(), resource.AttrGroupId())
	return resource, nil
}

// renderIngress creates one standalone ingress resource, so rules granted after the
// group exists are rendered the same way as its own.
func (v *Vpc) renderIngress(scope constructs.Construct, groupId *string, rule topology.Rule) (awsec2.CfnSecurityGroupIngress, error) {
	cidrIp, cidrIpv6, sourceId, err := v.peer(rule.Peer)
	if err != nil {
		return nil, err
	}
	ingress := awsec2.NewCfnSecurityGroupIngress(scope, jsii.String(rule.Name), &awsec2.CfnSecurityGroupIngressProps{
		GroupId:               groupId,
		IpProtocol:            jsii.String(rule.Protocol),
		FromPort:              jsii.Number(float64(rule.FromPort)),
		ToPort:                jsii.Number(float64(rule.ToPort)),
		CidrIp:                cidrIp,
		CidrIpv6:              cidrIpv6,
		SourceSecurityGroupId: sourceId,
		Description:           jsii.String(rule.Name),
	})
	if rule.Peer.Kind == topology.PeerVpcIpv6 {
		v.dependOnIpv6Block(ingress)
	}
	return ingress, nil
}
