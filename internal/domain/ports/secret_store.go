package ports

import "context"

// SecretStore resolves named secrets (gateway credentials) from a backend.
type SecretStore interface {
	GetSecret(ctx context.Context, name string) (string, error)
	Close() error
}
