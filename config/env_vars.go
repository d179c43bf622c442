package config

import (
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/caarlos0/env/v11"
)

// NetworkEnvironmentVariables override the cdk.json context of the network stack.
type NetworkEnvironmentVariables struct {
	Ipv4MaskBits int    `env:"NETPLAN_IPV4_MASK_BITS"`
	Ipv6Block    string `env:"NETPLAN_IPV6_BLOCK"`
	Ipv6PoolId   string `env:"NETPLAN_IPV6_POOL_ID"`
	// ResolveAwsEnv asks STS for account and region when no CDK_* variables are set.
	ResolveAwsEnv bool `env:"NETPLAN_RESOLVE_AWS_ENV" envDefault:"false"`
}

// PlanEnvironmentVariables configure the netplan CLI.
type PlanEnvironmentVariables struct {
	ConfigFile string `env:"NETPLAN_CONFIG"`
	LogLevel   string `env:"NETPLAN_LOG_LEVEL" envDefault:"info"`
}

// GetEnvironmentVariables parses T from the environment. Outside of synthesis the
// zero value is returned, so `cdk ls` works without the variables being set.
func GetEnvironmentVariables[T any](scope constructs.Construct) T {
	var envObj T

	if !IsStackInSynthesis(scope) {
		return envObj
	}

	envObj, err := ParseEnvironment[T]()
	if err != nil {
		panic(err)
	}
	return envObj
}

// ParseEnvironment parses T from the environment without a construct scope.
func ParseEnvironment[T any]() (T, error) {
	var envObj T
	err := env.Parse(&envObj)
	return envObj, err
}
