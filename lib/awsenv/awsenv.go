// Package awsenv resolves the deployment account and region from the ambient AWS
// credentials, for synths that run without CDK_DEFAULT_* variables.
package awsenv

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/sts"
	"github.com/aws/aws-sdk-go/service/sts/stsiface"
)

var ErrNoRegion = errors.New("no AWS region configured")

type Identity struct {
	Account string
	Region  string
	Arn     string
}

// Resolve asks STS who the current credentials belong to. The region comes from
// the shared config or AWS_REGION.
func Resolve(ctx context.Context) (Identity, error) {
	sess, err := session.NewSessionWithOptions(session.Options{
		SharedConfigState: session.SharedConfigEnable,
	})
	if err != nil {
		return Identity{}, fmt.Errorf("creating aws session: %w", err)
	}
	return resolve(ctx, sts.New(sess), aws.StringValue(sess.Config.Region))
}

func resolve(ctx context.Context, api stsiface.STSAPI, region string) (Identity, error) {
	if region == "" {
		return Identity{}, ErrNoRegion
	}
	out, err := api.GetCallerIdentityWithContext(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return Identity{}, fmt.Errorf("get caller identity: %w", err)
	}
	return Identity{
		Account: aws.StringValue(out.Account),
		Region:  region,
		Arn:     aws.StringValue(out.Arn),
	}, nil
}
