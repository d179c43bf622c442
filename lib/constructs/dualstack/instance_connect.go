package dualstack

import (
	"sync"

	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"

	"github.com/trufnetwork/netplan/lib/addressplan"
	"github.com/trufnetwork/netplan/lib/cdklogger"
	"github.com/trufnetwork/netplan/lib/topology"
)

// InstanceConnect is the EC2 Instance Connect endpoint in the first private subnet.
type InstanceConnect struct {
	constructs.Construct

	Gate            *topology.AccessGate
	Endpoint        awsec2.CfnInstanceConnectEndpoint
	SecurityGroup   awsec2.CfnSecurityGroup
	SecurityGroupId *string

	vpc      *Vpc
	mu       sync.Mutex
	rendered map[*topology.SecurityGroup]bool
}

func newInstanceConnect(v *Vpc) (*InstanceConnect, error) {
	gate, err := v.Layout.Anchor(v.Layout.FirstPrivate())
	if err != nil {
		return nil, err
	}

	eic := &InstanceConnect{
		Construct: constructs.NewConstruct(v.Construct, jsii.String("InstanceConnect")),
		Gate:      gate,
		vpc:       v,
		rendered:  map[*topology.SecurityGroup]bool{},
	}
	eic.SecurityGroup, err = v.renderGroup(eic.Construct, gate.Group())
	if err != nil {
		return nil, err
	}
	eic.SecurityGroupId = eic.SecurityGroup.AttrGroupId()

	eic.Endpoint = awsec2.NewCfnInstanceConnectEndpoint(eic.Construct, jsii.String("Endpoint"), &awsec2.CfnInstanceConnectEndpointProps{
		SubnetId:         v.PrivateSubnets[0].SubnetId,
		SecurityGroupIds: &[]*string{eic.SecurityGroupId},
		Tags:             nameTags(gate.Group().Name()),
	})
	return eic, nil
}

// GrantEicIngressFor lets the Instance Connect endpoint reach group on port 22.
// Granting the same group twice renders a single rule.
func (v *Vpc) GrantEicIngressFor(group *StdSecurityGroup) error {
	if group == nil {
		return &addressplan.PreconditionError{Op: "grant eic ingress", Reason: "security group is nil"}
	}
	if group.vpc != v {
		return &addressplan.PreconditionError{Op: "grant eic ingress", Reason: "security group " + group.Name() + " belongs to another vpc"}
	}
	return v.InstanceConnect.grant(group)
}

func (eic *InstanceConnect) grant(group *StdSecurityGroup) error {
	eic.mu.Lock()
	defer eic.mu.Unlock()

	rule, err := eic.Gate.GrantIngressFor(group.Group)
	if err != nil {
		return err
	}
	if eic.rendered[group.Group] {
		return nil
	}
	if _, err := eic.vpc.renderIngress(group.Construct, group.SecurityGroupId, rule); err != nil {
		return err
	}
	eic.rendered[group.Group] = true
	cdklogger.LogInfo(group.Construct, "", "granted SSH from the instance connect endpoint")
	return nil
}
