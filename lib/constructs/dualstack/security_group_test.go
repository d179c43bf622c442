package dualstack_test

import (
	"testing"

	"github.com/aws/aws-cdk-go/awscdk/v2/assertions"
	"github.com/aws/jsii-runtime-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trufnetwork/netplan/internal/testutil"
	"github.com/trufnetwork/netplan/lib/addressplan"
	"github.com/trufnetwork/netplan/lib/constructs/dualstack"
)

func TestPublicSecurityGroup(t *testing.T) {
	stack, vpc := newTestVpc(t, &dualstack.VpcProps{Name: "test"})
	web, err := dualstack.NewStdSecurityGroup(stack, "Web", &dualstack.StdSecurityGroupProps{
		Vpc:           vpc,
		Name:          "web",
		IngressPorts:  []uint16{443, 80, 443},
		PublicIngress: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "web", web.Name())

	template := assertions.Template_FromStack(stack, nil)
	template.ResourceCountIs(jsii.String("AWS::EC2::SecurityGroupIngress"), jsii.Number(4))
	template.HasResourceProperties(jsii.String("AWS::EC2::SecurityGroupIngress"), map[string]interface{}{
		"IpProtocol":  "tcp",
		"FromPort":    443,
		"ToPort":      443,
		"CidrIpv6":    "::/0",
		"Description": "web-ipv6-443",
	})
	template.HasResourceProperties(jsii.String("AWS::EC2::SecurityGroupIngress"), map[string]interface{}{
		"FromPort": 80,
		"CidrIp":   "0.0.0.0/0",
	})
	template.HasResourceProperties(jsii.String("AWS::EC2::SecurityGroup"), map[string]interface{}{
		"GroupDescription": "web",
		"SecurityGroupEgress": []interface{}{
			map[string]interface{}{"IpProtocol": "tcp", "FromPort": 0, "ToPort": 65535, "CidrIp": "0.0.0.0/0", "Description": "web-ipv4"},
			map[string]interface{}{"IpProtocol": "tcp", "FromPort": 0, "ToPort": 65535, "CidrIpv6": "::/0", "Description": "web-ipv6"},
		},
	})
}

func TestInternalSecurityGroup(t *testing.T) {
	stack, vpc := newTestVpc(t, nil)
	_, err := dualstack.NewStdSecurityGroup(stack, "Db", &dualstack.StdSecurityGroupProps{
		Vpc:          vpc,
		IngressPorts: []uint16{5432},
	})
	require.NoError(t, err)

	template := assertions.Template_FromStack(stack, nil)
	template.HasResourceProperties(jsii.String("AWS::EC2::SecurityGroupIngress"), map[string]interface{}{
		"FromPort":    5432,
		"CidrIp":      "10.0.0.0/16",
		"Description": "Db-ipv4-5432",
	})
	ipv6 := testutil.Properties(template, "AWS::EC2::SecurityGroupIngress", map[string]interface{}{
		"FromPort": 5432,
		"CidrIpv6": assertions.Match_AnyValue(),
	})
	assert.Len(t, ipv6, 1)
	assert.Empty(t, testutil.Properties(template, "AWS::EC2::SecurityGroupIngress", map[string]interface{}{
		"CidrIp": "0.0.0.0/0",
	}))
}

func TestSecurityGroupWithoutPorts(t *testing.T) {
	stack, vpc := newTestVpc(t, nil)
	_, err := dualstack.NewStdSecurityGroup(stack, "Closed", &dualstack.StdSecurityGroupProps{Vpc: vpc})
	require.NoError(t, err)

	template := assertions.Template_FromStack(stack, nil)
	template.ResourceCountIs(jsii.String("AWS::EC2::SecurityGroup"), jsii.Number(2))
	template.ResourceCountIs(jsii.String("AWS::EC2::SecurityGroupIngress"), jsii.Number(0))
}

func TestSecurityGroupErrors(t *testing.T) {
	stack, vpc := newTestVpc(t, nil)

	_, err := dualstack.NewStdSecurityGroup(stack, "NoVpc", &dualstack.StdSecurityGroupProps{})
	assert.ErrorIs(t, err, addressplan.ErrPrecondition)

	_, err = dualstack.NewStdSecurityGroup(stack, "First", &dualstack.StdSecurityGroupProps{Vpc: vpc, Name: "app"})
	require.NoError(t, err)
	_, err = dualstack.NewStdSecurityGroup(stack, "Second", &dualstack.StdSecurityGroupProps{Vpc: vpc, Name: "app"})
	assert.ErrorIs(t, err, addressplan.ErrConfiguration)
}
