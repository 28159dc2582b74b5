package secrets

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/aws/smithy-go"
)

type testSecretsManager struct {
	values map[string]string
	err    error
	asked  []string
}

func (m *testSecretsManager) GetSecretValue(_ context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	m.asked = append(m.asked, aws.ToString(in.SecretId))
	if m.err != nil {
		return nil, m.err
	}

	v, ok := m.values[aws.ToString(in.SecretId)]
	if !ok {
		return nil, &types.ResourceNotFoundException{Message: aws.String("not found")}
	}

	return &secretsmanager.GetSecretValueOutput{SecretString: aws.String(v)}, nil
}

func TestAWSStore_Get(t *testing.T) {
	sm := &testSecretsManager{values: map[string]string{
		"db": `{"host":"example.com","port":5439,"dbname":"dev","username":"u","password":"p"}`,
	}}
	s := &AWSStore{client: sm, region: DefaultRegion}

	secret, err := s.Get(context.Background(), "db")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	host, err := secret.String("host")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if host != "example.com" {
		t.Errorf(`host should be "example.com", but %q`, host)
	}

	port, err := secret.Int("port")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if port != 5439 {
		t.Errorf("port should be 5439, but %d", port)
	}

	if len(sm.asked) != 1 || sm.asked[0] != "db" {
		t.Errorf("unexpected requests: %v", sm.asked)
	}
}

func TestAWSStore_Get_notFound(t *testing.T) {
	s := &AWSStore{client: &testSecretsManager{}, region: DefaultRegion}

	_, err := s.Get(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("error should be ErrNotFound, but %v", err)
	}

	var rerr *ResolutionError
	if !errors.As(err, &rerr) {
		t.Fatalf("error should be *ResolutionError, but %T", err)
	}
	if rerr.Name != "missing" {
		t.Errorf(`Name should be "missing", but %q`, rerr.Name)
	}
}

func TestAWSStore_Get_accessDenied(t *testing.T) {
	sm := &testSecretsManager{err: &smithy.GenericAPIError{Code: "AccessDeniedException", Message: "denied"}}
	s := &AWSStore{client: sm, region: DefaultRegion}

	_, err := s.Get(context.Background(), "db")
	if !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("error should be ErrAccessDenied, but %v", err)
	}
	if len(sm.asked) != 1 {
		t.Errorf("secret should be requested once without retries, but %d times", len(sm.asked))
	}
}

func TestAWSStore_Get_notJSON(t *testing.T) {
	sm := &testSecretsManager{values: map[string]string{"plain": "not json"}}
	s := &AWSStore{client: sm, region: DefaultRegion}

	_, err := s.Get(context.Background(), "plain")
	var rerr *ResolutionError
	if !errors.As(err, &rerr) {
		t.Fatalf("error should be *ResolutionError, but %v", err)
	}
}
