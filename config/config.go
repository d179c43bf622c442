package config

import (
	"fmt"
	"math"
	"strconv"

	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
)

// Context keys, set in cdk.json or with `cdk synth --context key=value`.
const (
	ContextStackSuffix     = "stackSuffix"
	ContextStage           = "deploymentStage"
	ContextVpcName         = "vpcName"
	ContextIpv4MaskBits    = "ipv4MaskBits"
	ContextIpv6Block       = "ipv6Block"
	ContextIpv6PoolId      = "ipv6PoolId"
	ContextIncludeJumphost = "includeJumphost"
)

type DeploymentStageType string

const (
	DeploymentStage_DEV  DeploymentStageType = "DEV"
	DeploymentStage_PROD DeploymentStageType = "PROD"
)

// StackSuffix separates several deployments of the same stacks in one account.
func StackSuffix(scope constructs.Construct) string {
	return contextString(scope, ContextStackSuffix, "")
}

// WithStackSuffix appends the context stack suffix, if any, to name.
func WithStackSuffix(scope constructs.Construct, name string) string {
	if suffix := StackSuffix(scope); suffix != "" {
		return name + "-" + suffix
	}
	return name
}

// GetStage reads the deployment stage. Unknown values are rejected by NetworkSettings.Validate.
func GetStage(scope constructs.Construct) DeploymentStageType {
	return DeploymentStageType(contextString(scope, ContextStage, string(DeploymentStage_PROD)))
}

// VpcName is the name prefix of every network resource. Defaults to "vpc".
func VpcName(scope constructs.Construct) string {
	return contextString(scope, ContextVpcName, "vpc")
}

// Ipv4MaskBits returns the subnet size from context, or 0 when unset so the planner
// default applies. Unparsable values are returned as an error, not dropped.
func Ipv4MaskBits(scope constructs.Construct) (int, error) {
	switch v := scope.Node().TryGetContext(jsii.String(ContextIpv4MaskBits)).(type) {
	case nil:
		return 0, nil
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("context %s=%v is not a whole number", ContextIpv4MaskBits, v)
		}
		return int(v), nil
	case int:
		return v, nil
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("context %s=%q is not a number: %w", ContextIpv4MaskBits, v, err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("context %s has unsupported type %T", ContextIpv4MaskBits, v)
	}
}

func Ipv6Block(scope constructs.Construct) string {
	return contextString(scope, ContextIpv6Block, "")
}

func Ipv6PoolId(scope constructs.Construct) string {
	return contextString(scope, ContextIpv6PoolId, "")
}

// IncludeJumphost is false when unset. Values that are not booleans are an error.
func IncludeJumphost(scope constructs.Construct) (bool, error) {
	switch v := scope.Node().TryGetContext(jsii.String(ContextIncludeJumphost)).(type) {
	case nil:
		return false, nil
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return false, fmt.Errorf("context %s=%q is not a boolean: %w", ContextIncludeJumphost, v, err)
		}
		return b, nil
	default:
		return false, fmt.Errorf("context %s has unsupported type %T", ContextIncludeJumphost, v)
	}
}

func contextString(scope constructs.Construct, key, fallback string) string {
	if v, ok := scope.Node().TryGetContext(jsii.String(key)).(string); ok && v != "" {
		return v
	}
	return fallback
}
