package testutil

import (
	"testing"

	"github.com/aws/aws-cdk-go/awscdk/v2/assertions"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/jsii-runtime-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProperties(t *testing.T) {
	stack := NewStack(t, nil)
	awsec2.NewCfnVPC(stack, jsii.String("Main"), &awsec2.CfnVPCProps{CidrBlock: jsii.String("10.0.0.0/16")})
	awsec2.NewCfnVPC(stack, jsii.String("Other"), &awsec2.CfnVPCProps{CidrBlock: jsii.String("10.1.0.0/16")})
	template := assertions.Template_FromStack(stack, nil)

	all := Properties(template, "AWS::EC2::VPC", nil)
	require.Len(t, all, 2)
	for _, props := range all {
		assert.Contains(t, props, "CidrBlock")
	}

	matched := Properties(template, "AWS::EC2::VPC", map[string]interface{}{"CidrBlock": "10.1.0.0/16"})
	require.Len(t, matched, 1)
	for _, props := range matched {
		assert.Equal(t, "10.1.0.0/16", props["CidrBlock"])
	}

	assert.Empty(t, Properties(template, "AWS::EC2::Subnet", nil))
}

func TestAsMap(t *testing.T) {
	m := map[string]interface{}{"Type": "AWS::EC2::VPC"}
	assert.Equal(t, m, asMap(m))
	assert.Equal(t, m, asMap(&m))
	assert.Nil(t, asMap((*map[string]interface{})(nil)))
	assert.Nil(t, asMap("AWS::EC2::VPC"))
}
