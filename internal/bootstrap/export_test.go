package bootstrap

import (
	"context"
	"testing"

	"madeproof-backend/internal/shared/config"
)

// UseSecretsClient swaps the Secrets Manager client for the duration of a test.
func UseSecretsClient(t testing.TB, client config.SecretsClient) {
	prev := newSecretsClient
	newSecretsClient = func(context.Context) (config.SecretsClient, error) {
		return client, nil
	}
	t.Cleanup(func() { newSecretsClient = prev })
}
