package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// ErrSecretMalformed is returned when the signing secret lacks a usable key pair.
var ErrSecretMalformed = errors.New("signing secret malformed")

// SecretsClient is the subset of the Secrets Manager API used to fetch signing keys.
type SecretsClient interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// NewSecretsClient builds a Secrets Manager client from the default AWS credential chain.
func NewSecretsClient(ctx context.Context) (SecretsClient, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return secretsmanager.NewFromConfig(cfg), nil
}

// signingSecret is the JSON stored in the secret. The env var names are accepted as
// aliases so the same key/value pairs can back both deployments.
type signingSecret struct {
	PrivateKey string `json:"private_key"`
	PublicKey  string `json:"public_key"`
	EnvPriv    string `json:"MP_SIGN_PRIV"`
	EnvPub     string `json:"MP_SIGN_PUB"`
}

// ResolveSigningKeys fills the key pair from the secret named by SignSecretID. Keys already
// present in the environment win and no request is made. Secret contents are never logged.
func ResolveSigningKeys(ctx context.Context, cfg *Config, client SecretsClient) error {
	id := strings.TrimSpace(cfg.SignSecretID)
	if id == "" || cfg.SigningConfigured() {
		return nil
	}
	if client == nil {
		return fmt.Errorf("fetch signing secret %s: no secrets client", id)
	}

	out, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(id),
	})
	if err != nil {
		return fmt.Errorf("fetch signing secret %s: %w", id, err)
	}
	raw := aws.ToString(out.SecretString)
	if raw == "" {
		return fmt.Errorf("%w: %s has no string value", ErrSecretMalformed, id)
	}

	var secret signingSecret
	if err := json.Unmarshal([]byte(raw), &secret); err != nil {
		return fmt.Errorf("%w: %s is not a JSON object", ErrSecretMalformed, id)
	}
	priv := firstNonEmpty(secret.PrivateKey, secret.EnvPriv)
	pub := firstNonEmpty(secret.PublicKey, secret.EnvPub)
	if priv == "" || pub == "" {
		return fmt.Errorf("%w: %s needs both private_key and public_key", ErrSecretMalformed, id)
	}
	cfg.SignPrivateKey = priv
	cfg.SignPublicKey = pub
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
