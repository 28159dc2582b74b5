package secrets

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog/log"
	"golang.org/x/xerrors"
)

// DefaultRegion is the region of the AWS Secrets Manager store.
const DefaultRegion = "us-east-1"

type secretsManagerAPI interface {
	GetSecretValue(context.Context, *secretsmanager.GetSecretValueInput, ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// AWSStore reads secrets from AWS Secrets Manager.
type AWSStore struct {
	client secretsManagerAPI
	region string
}

// AWSOption configures AWSStore.
type AWSOption func(*awsOptions)

type awsOptions struct {
	region string
}

// WithRegion selects the region of the store.
func WithRegion(region string) AWSOption {
	return func(o *awsOptions) {
		if region != "" {
			o.region = region
		}
	}
}

// NewAWSStore builds a store using the default AWS credential chain.
func NewAWSStore(ctx context.Context, opts ...AWSOption) (*AWSStore, error) {
	o := &awsOptions{region: DefaultRegion}
	for _, opt := range opts {
		opt(o)
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(o.region))
	if err != nil {
		return nil, xerrors.Errorf("failed to load AWS config: %w", err)
	}

	return &AWSStore{client: secretsmanager.NewFromConfig(cfg), region: o.region}, nil
}

// Get fetches and decodes a secret. Failures are not retried.
func (s *AWSStore) Get(ctx context.Context, name string) (Secret, error) {
	l := log.Ctx(ctx)

	out, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		l.Error().Err(err).Str("secret", name).Str("region", s.region).Msg("failed to get secret value")
		return nil, &ResolutionError{Name: name, Err: classify(err)}
	}

	var raw []byte
	switch {
	case out.SecretString != nil:
		raw = []byte(aws.ToString(out.SecretString))
	case out.SecretBinary != nil:
		raw = out.SecretBinary
	default:
		return nil, &ResolutionError{Name: name, Err: xerrors.New("secret has no value")}
	}

	secret, err := Decode(raw)
	if err != nil {
		return nil, &ResolutionError{Name: name, Err: err}
	}

	return secret, nil
}

func classify(err error) error {
	var nf *types.ResourceNotFoundException
	if errors.As(err, &nf) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "AccessDeniedException" {
		return fmt.Errorf("%w: %v", ErrAccessDenied, err)
	}

	return err
}
