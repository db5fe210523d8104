package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/cartloom/gmo-payment-service/internal/domain/ports"
)

// envSecretStore implements SecretStore using environment variables.
// WARNING: This is for development only. Use AWS Secrets Manager or Vault in production.
type envSecretStore struct {
	logger *zap.Logger
}

// NewEnvSecretStore creates a secret store that reads from the environment.
func NewEnvSecretStore(logger *zap.Logger) ports.SecretStore {
	return &envSecretStore{logger: logger}
}

// GetSecret looks up the secret in the environment. The secret name is
// normalized to an environment variable name: "gmo/shop_pass" becomes
// "GMO_SHOP_PASS".
func (s *envSecretStore) GetSecret(ctx context.Context, name string) (string, error) {
	envName := strings.ToUpper(strings.NewReplacer("/", "_", "-", "_", ".", "_").Replace(name))

	value := os.Getenv(envName)
	if value == "" {
		return "", fmt.Errorf("secret not found in environment: %s", envName)
	}

	s.logger.Debug("Secret read from environment", zap.String("name", envName))
	return value, nil
}

// Close releases adapter resources.
func (s *envSecretStore) Close() error {
	return nil
}
