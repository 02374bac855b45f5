package auth

import (
	"os"
	"time"
)

// Environment variables read by EnvironmentStore
const (
	EnvDeployKey  = "WALLETCHECKIN_DEPLOY_KEY"
	EnvBackendURL = "WALLETCHECKIN_BACKEND_URL"
)

// EnvironmentStore is a read-only store over WALLETCHECKIN_DEPLOY_KEY.
// It answers for any name.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(cred *Credential) error {
	return ErrStoreUnavailable
}

// Retrieve builds a credential from the environment
func (e *EnvironmentStore) Retrieve(name string) (*Credential, error) {
	key := os.Getenv(EnvDeployKey)
	if key == "" {
		return nil, ErrCredentialsNotFound
	}
	if name == "" {
		name = DefaultName
	}

	return &Credential{
		Name:         name,
		DeployKey:    key,
		BackendURL:   os.Getenv(EnvBackendURL),
		LastModified: time.Time{},
	}, nil
}

// List returns the environment credential if one is set
func (e *EnvironmentStore) List() ([]*Credential, error) {
	cred, err := e.Retrieve("")
	if err != nil {
		return []*Credential{}, nil
	}
	return []*Credential{cred}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(name string) error {
	return ErrStoreUnavailable
}

// Exists checks if a deploy key is set in the environment
func (e *EnvironmentStore) Exists(name string) bool {
	return os.Getenv(EnvDeployKey) != ""
}
