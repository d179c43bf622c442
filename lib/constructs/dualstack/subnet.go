package dualstack

import (
	"strconv"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"

	"github.com/trufnetwork/netplan/lib/addressplan"
	"github.com/trufnetwork/netplan/lib/topology"
)

// Subnet is a rendered subnet with its dedicated route table.
type Subnet struct {
	constructs.Construct
	topology.SubnetDescriptor

	Resource   awsec2.CfnSubnet
	SubnetId   *string
	RouteTable awsec2.CfnRouteTable
	// Ipv6CidrBlock is the /64, literal when the /56 is known, else an Fn::Cidr selection.
	Ipv6CidrBlock *string
}

func (v *Vpc) newSubnet(d topology.SubnetDescriptor, region *string, igwAttachment awsec2.CfnVPCGatewayAttachment) *Subnet {
	s := &Subnet{
		Construct:        constructs.NewConstruct(v.Construct, jsii.String(d.Name)),
		SubnetDescriptor: d,
		Ipv6CidrBlock:    v.subnetIpv6Cidr(d),
	}

	s.Resource = awsec2.NewCfnSubnet(s.Construct, jsii.String("Subnet"), &awsec2.CfnSubnetProps{
		VpcId:                       v.VpcId,
		AvailabilityZone:            availabilityZone(d, region),
		CidrBlock:                   jsii.String(d.Ipv4Cidr.String()),
		Ipv6CidrBlock:               s.Ipv6CidrBlock,
		AssignIpv6AddressOnCreation: jsii.Bool(true),
		MapPublicIpOnLaunch:         jsii.Bool(false),
		Tags:                        nameTags(d.Name),
	})
	// Subnets need the /56 associated before a /64 can be carved from it.
	s.Resource.AddDependency(v.ipv6Block)
	s.SubnetId = s.Resource.Ref()

	s.RouteTable = awsec2.NewCfnRouteTable(s.Construct, jsii.String("RouteTable"), &awsec2.CfnRouteTableProps{
		VpcId: v.VpcId,
		Tags:  nameTags(d.Name),
	})
	awsec2.NewCfnSubnetRouteTableAssociation(s.Construct, jsii.String("RouteTableAssociation"), &awsec2.CfnSubnetRouteTableAssociationProps{
		RouteTableId: s.RouteTable.Ref(),
		SubnetId:     s.SubnetId,
	})

	for _, r := range topology.PolicyFor(d.Class).Routes {
		props := &awsec2.CfnRouteProps{RouteTableId: s.RouteTable.Ref()}
		id := "DefaultRoute"
		if r.IsIpv6() {
			id = "DefaultIpv6Route"
			props.DestinationIpv6CidrBlock = jsii.String(string(r.Destination))
		} else {
			props.DestinationCidrBlock = jsii.String(string(r.Destination))
		}

		switch r.Target {
		case topology.InternetGateway:
			props.GatewayId = v.InternetGateway.Ref()
		case topology.EgressOnlyGateway:
			props.EgressOnlyInternetGatewayId = v.EgressOnlyGateway.Ref()
		}

		route := awsec2.NewCfnRoute(s.Construct, jsii.String(id), props)
		if r.Target == topology.InternetGateway {
			route.AddDependency(igwAttachment)
		}
	}
	return s
}

// subnetIpv6Cidr selects the subnet's /64. Fn::Cidr splits the /56 into /64s in
// order, so entry i equals the block with the subnet index right after the /56.
func (v *Vpc) subnetIpv6Cidr(d topology.SubnetDescriptor) *string {
	if d.HasIpv6Cidr() {
		return jsii.String(d.Ipv6Cidr.String())
	}
	hostBits := 128 - addressplan.Ipv6SubnetPrefixLen
	blocks := awscdk.Fn_Cidr(v.CidrIpv6, jsii.Number(float64(addressplan.MaxSubnetIndex+1)), jsii.String(strconv.Itoa(hostBits)))
	return awscdk.Fn_Select(jsii.Number(float64(d.Index)), blocks)
}

// availabilityZone appends the zone letter to the stack region. Environment-agnostic
// stacks only know the region at deploy time.
func availabilityZone(d topology.SubnetDescriptor, region *string) *string {
	if region != nil && !*awscdk.Token_IsUnresolved(region) {
		return jsii.String(d.AvailabilityZone(*region))
	}
	return awscdk.Fn_Join(jsii.String(""), &[]*string{region, jsii.String(d.Zone.Letter())})
}
