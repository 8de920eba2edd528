package auth

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/secretsmanager"
	"github.com/aws/aws-sdk-go/service/secretsmanager/secretsmanageriface"
	jsoniter "github.com/json-iterator/go"

	"github.com/developmentseed/mursst-icechunk-updater/pkg/auth/status"
	"github.com/developmentseed/mursst-icechunk-updater/pkg/model"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// secretDocument is the JSON document held by the managed secret
type secretDocument struct {
	AccessKeyID     string `json:"accessKeyId"`
	SecretAccessKey string `json:"secretAccessKey"`
	SessionToken    string `json:"sessionToken"`
	Expiration      string `json:"expiration"`
}

// SecretsManager sources credentials from an AWS Secrets Manager secret
// holding a JSON document. Wrap it with Refreshing so expiry is handled
// transparently.
func SecretsManager(secretARN string) Provider {
	return &secretsProvider{
		arn: secretARN,
		client: func() secretsmanageriface.SecretsManagerAPI {
			return secretsmanager.New(session.Must(session.NewSession()))
		},
	}
}

type secretsProvider struct {
	arn    string
	client func() secretsmanageriface.SecretsManagerAPI
}

func (s *secretsProvider) Credentials(ctx context.Context) (model.Credentials, error) {
	out, err := s.client().GetSecretValueWithContext(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(s.arn),
	})
	if err != nil {
		return model.Credentials{}, err
	}
	if out.SecretString == nil {
		return model.Credentials{}, status.ErrSecretFormat.WrapMessage("secret %s is not a string", s.arn)
	}

	var doc secretDocument
	if err := json.Unmarshal([]byte(*out.SecretString), &doc); err != nil {
		return model.Credentials{}, status.ErrSecretFormat.Wrap(err)
	}
	if doc.AccessKeyID == "" || doc.SecretAccessKey == "" {
		return model.Credentials{}, status.ErrSecretFormat.WrapMessage("secret %s misses key material", s.arn)
	}

	creds := model.Credentials{
		AccessKey:    doc.AccessKeyID,
		SecretKey:    doc.SecretAccessKey,
		SessionToken: doc.SessionToken,
	}
	if doc.Expiration != "" {
		expires, err := time.Parse(time.RFC3339, doc.Expiration)
		if err != nil {
			return model.Credentials{}, status.ErrSecretFormat.WrapMessage("secret %s expiration: %v", s.arn, err)
		}
		creds.ExpiresAt = expires.UTC()
	}
	return creds, nil
}
