package secrets

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/pkg/errors"
)

// AWSConfig is the "aws" module. Without an access key pair the SDK's default credential chain
// is used.
type AWSConfig struct {
	Region          string `yaml:"region" json:"region" toml:"region" xml:"region"`
	AccessKeyID     string `yaml:"access_key_id" json:"access_key_id" toml:"access_key_id" xml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key" json:"secret_access_key" toml:"secret_access_key" xml:"secret_access_key"`
	SecretName      string `yaml:"secret_name" json:"secret_name" toml:"secret_name" xml:"secret_name"`
	// Endpoint replaces the service endpoint, e.g. with LocalStack's.
	Endpoint string `yaml:"endpoint" json:"endpoint" toml:"endpoint" xml:"endpoint"`
}

func (c AWSConfig) Validate() error {
	switch {
	case c.Region == "":
		return errors.New("aws region is required")
	case c.SecretName == "":
		return errors.New("aws secret_name is required")
	case (c.AccessKeyID == "") != (c.SecretAccessKey == ""):
		return errors.New("aws access_key_id and secret_access_key must be set together")
	}
	return nil
}

func (c AWSConfig) CreateClient() (*secretsmanager.Client, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(c.Region)}
	if c.Endpoint != "" {
		opts = append(opts, awsconfig.WithBaseEndpoint(c.Endpoint))
	}
	if c.AccessKeyID != "" {
		static := credentials.NewStaticCredentialsProvider(c.AccessKeyID, c.SecretAccessKey, "")
		opts = append(opts, awsconfig.WithCredentialsProvider(static))
	}

	sdkCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load AWS configuration")
	}
	return secretsmanager.NewFromConfig(sdkCfg), nil
}

// SecretValueGetter is the part of *secretsmanager.Client used by AWS.
type SecretValueGetter interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// AWS reads ${aws:key} from a Secrets Manager secret whose string is a JSON object, the shape the
// console's key/value editor produces.
type AWS struct {
	document
}

func NewAWS(client SecretValueGetter, secretName string) *AWS {
	return &AWS{document{fetch: func(ctx context.Context) (map[string]any, error) {
		out, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: aws.String(secretName)})
		if err != nil {
			return nil, errors.Wrapf(err, "aws secret %q", secretName)
		}
		if out.SecretString == nil {
			return nil, errors.Errorf("aws secret %q is binary", secretName)
		}
		var fields map[string]any
		if err := json.Unmarshal([]byte(*out.SecretString), &fields); err != nil {
			return nil, errors.Wrapf(err, "aws secret %q is not a JSON object", secretName)
		}
		return fields, nil
	}}}
}

func (a *AWS) Lookup(key string) (string, error) {
	return a.lookup(key)
}
