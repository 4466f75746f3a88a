//go:build unit

package secrets

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"
)

type fakeSecretsManager struct {
	secretString *string
	err          error
	requested    []string
}

func (f *fakeSecretsManager) GetSecretValue(_ context.Context, params *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.requested = append(f.requested, aws.ToString(params.SecretId))
	if f.err != nil {
		return nil, f.err
	}
	return &secretsmanager.GetSecretValueOutput{SecretString: f.secretString}, nil
}

var _ = Describe("AWS", func() {
	Context("AWSConfig", func() {
		DescribeTable("Validate",
			func(cfg AWSConfig, expected string) {
				Expect(cfg.Validate()).To(MatchError(expected))
			},
			Entry("region", AWSConfig{SecretName: "frontend"}, "aws region is required"),
			Entry("secret name", AWSConfig{Region: "eu-west-1"}, "aws secret_name is required"),
			Entry("half a key pair", AWSConfig{Region: "eu-west-1", SecretName: "frontend", AccessKeyID: "key"},
				"aws access_key_id and secret_access_key must be set together"),
		)

		It("should create a client with static credentials and a custom endpoint", func() {
			client, err := AWSConfig{
				Region:          "eu-west-1",
				AccessKeyID:     "key",
				SecretAccessKey: "secret",
				SecretName:      "frontend",
				Endpoint:        "http://localhost:4566",
			}.CreateClient()
			Expect(err).NotTo(HaveOccurred())
			Expect(client).NotTo(BeNil())
		})
	})

	Context("Lookup", func() {
		It("should read every key from a single request", func() {
			fake := &fakeSecretsManager{secretString: aws.String(`{"DOMAIN_PROD":"api.example.com","DOMAIN_STAG":"stg.example.com"}`)}
			provider := NewAWS(fake, "frontend")

			Expect(provider.Lookup("DOMAIN_STAG")).To(Equal("stg.example.com"))
			Expect(provider.Lookup("DOMAIN_PROD")).To(Equal("api.example.com"))
			Expect(fake.requested).To(Equal([]string{"frontend"}))
		})

		It("should report missing keys as not found", func() {
			fake := &fakeSecretsManager{secretString: aws.String(`{"DOMAIN_PROD":"api.example.com"}`)}

			_, err := NewAWS(fake, "frontend").Lookup("DOMAIN_DEV")
			Expect(err).To(MatchError(ErrNotFound))
		})

		It("should reject secrets that are not JSON objects", func() {
			fake := &fakeSecretsManager{secretString: aws.String("api.example.com")}

			_, err := NewAWS(fake, "domain-prod").Lookup("DOMAIN_PROD")
			Expect(err).To(MatchError(ContainSubstring(`aws secret "domain-prod" is not a JSON object`)))
		})

		It("should reject binary secrets", func() {
			_, err := NewAWS(&fakeSecretsManager{}, "frontend").Lookup("DOMAIN_PROD")
			Expect(err).To(MatchError(ContainSubstring("is binary")))
		})

		It("should keep the API error for later lookups", func() {
			fake := &fakeSecretsManager{err: errors.New("access denied")}
			provider := NewAWS(fake, "frontend")

			_, err := provider.Lookup("DOMAIN_PROD")
			Expect(err).To(MatchError(ContainSubstring("access denied")))
			_, err = provider.Lookup("APP_NAME")
			Expect(err).To(MatchError(ContainSubstring(`aws secret "frontend"`)))
			Expect(fake.requested).To(HaveLen(1))
		})

		It("should be usable as the aws provider", func() {
			fake := &fakeSecretsManager{secretString: aws.String(`{"APP_NAME":"MyApp"}`)}
			Register("aws", NewAWS(fake, "frontend"))
			DeferCleanup(Unregister, "aws")

			Expect(Resolve("aws:APP_NAME")).To(Equal("MyApp"))
		})
	})
})
