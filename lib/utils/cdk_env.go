package utils

import (
	"os"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/jsii-runtime-go"
)

// CdkEnv determines the AWS environment (account+region) in which our stack is to
// be deployed. For more information see: https://docs.aws.amazon.com/cdk/latest/guide/environments.html
func CdkEnv() *awscdk.Environment {
	account, region := lookupEnv(os.Getenv)
	return &awscdk.Environment{
		Account: jsii.String(account),
		Region:  jsii.String(region),
	}
}

// IsEnvResolved reports whether both account and region are set.
func IsEnvResolved(env *awscdk.Environment) bool {
	return env != nil &&
		env.Account != nil && *env.Account != "" &&
		env.Region != nil && *env.Region != ""
}

func lookupEnv(getenv func(string) string) (account, region string) {
	account = getenv("CDK_DEPLOY_ACCOUNT")
	region = getenv("CDK_DEPLOY_REGION")

	if len(account) == 0 || len(region) == 0 {
		account = getenv("CDK_DEFAULT_ACCOUNT")
		region = getenv("CDK_DEFAULT_REGION")
	}
	return account, region
}
