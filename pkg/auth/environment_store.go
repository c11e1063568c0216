package auth

import (
	"os"
	"time"
)

// EnvVars are read in order; the first non-empty one wins
var EnvVars = []string{"POSTSCOPE_API_KEY", "SOCIALDATA_API_KEY", "TWITTER_API_KEY"}

// EnvironmentStore implements CredentialStore over environment variables.
// It is read-only and answers for any profile.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

func envKey() string {
	for _, name := range EnvVars {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(cred *Credential) error {
	return ErrStoreUnavailable
}

// Retrieve returns the key from the environment
func (e *EnvironmentStore) Retrieve(profile string) (*Credential, error) {
	key := envKey()
	if key == "" {
		return nil, ErrCredentialsNotFound
	}
	if profile == "" {
		profile = DefaultProfile
	}
	return &Credential{
		Profile:      profile,
		APIKey:       key,
		Note:         "environment",
		LastModified: time.Time{},
	}, nil
}

// List returns the environment key as the default profile, if set
func (e *EnvironmentStore) List() ([]*Credential, error) {
	cred, err := e.Retrieve(DefaultProfile)
	if err != nil {
		return []*Credential{}, nil
	}
	return []*Credential{cred}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(profile string) error {
	return ErrStoreUnavailable
}

// Exists reports whether any key variable is set
func (e *EnvironmentStore) Exists(profile string) bool {
	return envKey() != ""
}
