package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cartloom/gmo-payment-service/internal/adapters/secrets"
	"github.com/cartloom/gmo-payment-service/internal/config"
	"github.com/cartloom/gmo-payment-service/internal/domain/ports"
)

// Secret names resolved through the configured backend. The env backend maps
// these to GMO_SITE_PASS / GMO_SHOP_PASS.
const (
	secretSitePass = "gmo/site_pass"
	secretShopPass = "gmo/shop_pass"
)

// newSecretStore builds the secret backend selected by SECRETS_BACKEND.
func newSecretStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ports.SecretStore, error) {
	switch cfg.Secrets.Backend {
	case "aws":
		awsCfg := secrets.DefaultAWSSecretsManagerConfig(cfg.Secrets.AWSRegion)
		awsCfg.Endpoint = cfg.Secrets.AWSEndpoint
		return secrets.NewAWSSecretsManagerAdapter(ctx, awsCfg, logger)

	case "vault":
		vaultCfg := secrets.DefaultVaultConfig(cfg.Secrets.VaultAddress)
		vaultCfg.Token = cfg.Secrets.VaultToken
		vaultCfg.MountPath = cfg.Secrets.VaultMount
		return secrets.NewVaultAdapter(ctx, vaultCfg, logger)

	case "env":
		return secrets.NewEnvSecretStore(logger), nil

	default:
		return nil, fmt.Errorf("unknown secrets backend: %s", cfg.Secrets.Backend)
	}
}

// resolveGatewaySecrets fills in the gateway credential passwords from the
// secret store. Values already present in the config (direct env injection)
// win, so local development does not need a backend round trip.
func resolveGatewaySecrets(ctx context.Context, cfg *config.Config, store ports.SecretStore) error {
	if cfg.Gateway.SitePass == "" {
		value, err := store.GetSecret(ctx, secretSitePass)
		if err != nil {
			return fmt.Errorf("failed to resolve site password: %w", err)
		}
		cfg.Gateway.SitePass = value
	}

	if cfg.Gateway.ShopPass == "" {
		value, err := store.GetSecret(ctx, secretShopPass)
		if err != nil {
			return fmt.Errorf("failed to resolve shop password: %w", err)
		}
		cfg.Gateway.ShopPass = value
	}

	return nil
}
