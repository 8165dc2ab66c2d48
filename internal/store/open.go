package store

import (
	"context"
	"fmt"

	"github.com/cawebapp/ca-backend/internal/config"
)

// Open constructs the backend selected by cfg.Backend.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Backend {
	case config.BackendFirestore, "":
		s, err := NewFirestoreStore(ctx, cfg.CredentialsFile, cfg.ProjectID, cfg.Timeout)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.BackendPostgres:
		s, err := NewPostgresStore(ctx, cfg.DatabaseURL, cfg.Timeout)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
