package secrets

import (
	"context"

	"github.com/hashicorp/vault/api"
	"github.com/pkg/errors"
)

// VaultConfig is the "vault" module.
type VaultConfig struct {
	Address   string `yaml:"address" json:"address" toml:"address" xml:"address"`
	Token     string `yaml:"token" json:"token" toml:"token" xml:"token"`
	Path      string `yaml:"path" json:"path" toml:"path" xml:"path"`
	Namespace string `yaml:"namespace" json:"namespace" toml:"namespace" xml:"namespace"`
}

func (c VaultConfig) Validate() error {
	switch {
	case c.Address == "":
		return errors.New("vault address is required")
	case c.Token == "":
		return errors.New("vault token is required")
	case c.Path == "":
		return errors.New("vault path is required")
	}
	return nil
}

func (c VaultConfig) CreateClient() (*api.Client, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	vaultCfg := api.DefaultConfig()
	vaultCfg.Address = c.Address
	client, err := api.NewClient(vaultCfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Vault client")
	}
	client.SetToken(c.Token)
	if c.Namespace != "" {
		client.SetNamespace(c.Namespace)
	}
	return client, nil
}

// Vault reads ${vault:key} from the fields of the secret at one path. KV v1 and KV v2 mounts are
// both understood; for KV v2 the path includes "data/", e.g. "secret/data/frontend".
type Vault struct {
	document
}

func NewVault(client *api.Client, path string) *Vault {
	return &Vault{document{fetch: func(ctx context.Context) (map[string]any, error) {
		secret, err := client.Logical().ReadWithContext(ctx, path)
		if err != nil {
			return nil, errors.Wrapf(err, "vault read %q", path)
		}
		if secret == nil || secret.Data == nil {
			return nil, errors.Errorf("nothing stored at vault path %q", path)
		}
		return kvFields(secret.Data)
	}}}
}

func (v *Vault) Lookup(key string) (string, error) {
	return v.lookup(key)
}

// kvFields unwraps the KV v2 envelope {"data": {...}, "metadata": {...}}.
func kvFields(data map[string]any) (map[string]any, error) {
	if _, versioned := data["metadata"]; !versioned {
		return data, nil
	}
	fields, ok := data["data"].(map[string]any)
	if !ok {
		return nil, errors.Errorf("KV v2 secret data is %T, not an object", data["data"])
	}
	return fields, nil
}
