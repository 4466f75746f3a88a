package main

import (
	"github.com/animalet/appenv/pkg/config"
	"github.com/animalet/appenv/pkg/secrets"
	"github.com/animalet/appenv/pkg/server"
	"github.com/animalet/appenv/pkg/settings"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/hashicorp/vault/api"
	"github.com/pkg/errors"
)

// loadConfig reads the configuration file and registers all secret providers.
// With no path the built-in configuration reading the PUBLIC_APP_* variables is used.
func loadConfig(configPath string) (*config.Config, error) {
	if configPath == "" {
		return settings.DefaultConfig()
	}

	cfg, err := config.NewConfig(configPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load configuration file")
	}

	// Providers must exist before any module referencing them is decoded
	if err := registerSecretProviders(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// registerSecretProviders binds the providers whose modules are present.
func registerSecretProviders(cfg *config.Config) error {
	vaultCfg, vaultClient, err := config.GetClient[secrets.VaultConfig, *api.Client](cfg, "vault")
	if err != nil {
		return errors.Wrap(err, "failed to load or create Vault client")
	}
	if vaultCfg != nil {
		secrets.Register("vault", secrets.NewVault(vaultClient, vaultCfg.Path))
	}

	fileCfg, files, err := config.GetClient[secrets.FileConfig, *secrets.Files](cfg, "file_resolver")
	if err != nil {
		return errors.Wrap(err, "failed to load or create file secret provider")
	}
	if fileCfg != nil {
		secrets.Register("file", files)
	}

	awsCfg, awsClient, err := config.GetClient[secrets.AWSConfig, *secretsmanager.Client](cfg, "aws")
	if err != nil {
		return errors.Wrap(err, "failed to load or create AWS Secrets Manager client")
	}
	if awsCfg != nil {
		secrets.Register("aws", secrets.NewAWS(awsClient, awsCfg.SecretName))
	}

	return nil
}

// serverConfig reads the "server" module. A non-empty listen address replaces the configured
// one, and the module is validated only after that.
func serverConfig(cfg *config.Config, listen string) (*server.ServerConfig, error) {
	serverCfg, err := config.Decode[server.ServerConfig](cfg, server.ModuleName)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load server configuration")
	}
	if serverCfg == nil {
		if listen == "" {
			return nil, errors.New("server configuration is required, add a server module or use -listen")
		}
		serverCfg = &server.ServerConfig{}
	}
	if listen != "" {
		serverCfg.Address = listen
	}
	if err := serverCfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid server configuration")
	}
	return serverCfg, nil
}
