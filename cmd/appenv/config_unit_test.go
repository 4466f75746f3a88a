//go:build unit

package main

import (
	"os"
	"path/filepath"

	"github.com/animalet/appenv/pkg/config"
	"github.com/animalet/appenv/pkg/secrets"
	"github.com/animalet/appenv/pkg/settings"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func writeConfig(name, content string) string {
	path := filepath.Join(GinkgoT().TempDir(), name)
	Expect(os.WriteFile(path, []byte(content), 0644)).To(Succeed())
	return path
}

var _ = Describe("Configuration Loading", func() {
	Describe("loadConfig", func() {
		It("should load valid config file", func() {
			configPath := writeConfig("config.yaml", `app:
  environment: staging
  domains:
    production: api.example.com
    staging: staging.example.com
    development: localhost:3000
  name: Demo
`)

			cfg, err := loadConfig(configPath)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg).NotTo(BeNil())
			Expect(cfg.Modules()).To(ConsistOf("app"))
		})

		It("should fall back to the built-in configuration without a path", func() {
			cfg, err := loadConfig("")
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Modules()).To(ContainElement(settings.ModuleName))
		})

		It("should fail with missing file", func() {
			cfg, err := loadConfig("/nonexistent/path/config.yaml")
			Expect(err).To(HaveOccurred())
			Expect(cfg).To(BeNil())
			Expect(err.Error()).To(ContainSubstring("failed to load configuration file"))
		})

		It("should fail with invalid YAML", func() {
			configPath := writeConfig("invalid.yaml", "invalid: yaml: [[[")

			cfg, err := loadConfig(configPath)
			Expect(err).To(HaveOccurred())
			Expect(cfg).To(BeNil())
		})

		It("should fail with invalid Vault config", func() {
			configPath := writeConfig("config-vault-invalid.yaml", `vault:
  address: http://localhost:8200
`)

			cfg, err := loadConfig(configPath)
			Expect(err).To(HaveOccurred())
			Expect(cfg).To(BeNil())
			Expect(err.Error()).To(ContainSubstring("failed to load or create Vault client"))
		})

		It("should fail with invalid AWS config", func() {
			configPath := writeConfig("config-aws-invalid.yaml", `aws:
  region: eu-west-1
`)

			_, err := loadConfig(configPath)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("failed to load or create AWS Secrets Manager client"))
		})

		It("should fail with a missing secrets directory", func() {
			configPath := writeConfig("config-file-invalid.yaml", `file_resolver:
  secrets_dir: /nonexistent/secrets
`)

			_, err := loadConfig(configPath)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("failed to load or create file secret provider"))
		})
	})

	Describe("registerSecretProviders", func() {
		It("should register the file provider and use it for other modules", func() {
			secretsDir := GinkgoT().TempDir()
			Expect(os.WriteFile(filepath.Join(secretsDir, "prod_domain"), []byte("api.example.com\n"), 0600)).To(Succeed())
			DeferCleanup(secrets.Unregister, "file")

			configPath := writeConfig("config.yaml", `file_resolver:
  secrets_dir: `+secretsDir+`
app:
  environment: production
  domains:
    production: ${file:prod_domain}
    staging: staging.example.com
    development: localhost:3000
  name: Demo
`)

			cfg, err := loadConfig(configPath)
			Expect(err).NotTo(HaveOccurred())
			_, bound := secrets.Lookup("file")
			Expect(bound).To(BeTrue())

			s, err := settings.Load(cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.APIURL()).To(Equal("https://api.example.com"))
		})

		It("should register nothing when no provider is configured", func() {
			cfg, err := config.NewConfigFromBytes([]byte("app: {}\n"), config.YamlFormat)
			Expect(err).NotTo(HaveOccurred())

			Expect(registerSecretProviders(cfg)).To(Succeed())
			Expect(secrets.Prefixes()).To(Equal([]string{secrets.DefaultPrefix}))
		})
	})

	Describe("serverConfig", func() {
		It("should read the server module", func() {
			cfg, err := config.NewConfigFromBytes([]byte("server:\n  address: 127.0.0.1:8080\n  path: /config.json\n"), config.YamlFormat)
			Expect(err).NotTo(HaveOccurred())

			serverCfg, err := serverConfig(cfg, "")
			Expect(err).NotTo(HaveOccurred())
			Expect(serverCfg.Address).To(Equal("127.0.0.1:8080"))
			Expect(serverCfg.Path).To(Equal("/config.json"))
		})

		It("should let the listen address override the module", func() {
			cfg, err := config.NewConfigFromBytes([]byte("server:\n  address: 127.0.0.1:8080\n"), config.YamlFormat)
			Expect(err).NotTo(HaveOccurred())

			serverCfg, err := serverConfig(cfg, "127.0.0.1:9090")
			Expect(err).NotTo(HaveOccurred())
			Expect(serverCfg.Address).To(Equal("127.0.0.1:9090"))
		})

		It("should accept a listen address without a server module", func() {
			cfg, err := config.NewConfigFromBytes([]byte("app: {}\n"), config.YamlFormat)
			Expect(err).NotTo(HaveOccurred())

			serverCfg, err := serverConfig(cfg, ":9090")
			Expect(err).NotTo(HaveOccurred())
			Expect(serverCfg.Address).To(Equal(":9090"))
		})

		It("should require a server module or a listen address", func() {
			cfg, err := config.NewConfigFromBytes([]byte("app: {}\n"), config.YamlFormat)
			Expect(err).NotTo(HaveOccurred())

			_, err = serverConfig(cfg, "")
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("server configuration is required"))
		})

		It("should reject an invalid listen address", func() {
			cfg, err := config.NewConfigFromBytes([]byte("app: {}\n"), config.YamlFormat)
			Expect(err).NotTo(HaveOccurred())

			_, err = serverConfig(cfg, "not an address")
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("invalid server configuration"))
		})

		It("should complete a module without address with the listen address", func() {
			cfg, err := config.NewConfigFromBytes([]byte("server:\n  path: /cfg.json\n  allowed_hosts: [app.example.com]\n"), config.YamlFormat)
			Expect(err).NotTo(HaveOccurred())

			serverCfg, err := serverConfig(cfg, "127.0.0.1:0")
			Expect(err).NotTo(HaveOccurred())
			Expect(serverCfg.Address).To(Equal("127.0.0.1:0"))
			Expect(serverCfg.Path).To(Equal("/cfg.json"))
			Expect(serverCfg.AllowedHosts).To(Equal([]string{"app.example.com"}))
		})

		It("should validate the module when no listen address is given", func() {
			cfg, err := config.NewConfigFromBytes([]byte("server:\n  path: /cfg.json\n"), config.YamlFormat)
			Expect(err).NotTo(HaveOccurred())

			_, err = serverConfig(cfg, "")
			Expect(err).To(MatchError(ContainSubstring("address must be set and non-empty")))
		})

		It("should validate the rest of the module after the override", func() {
			cfg, err := config.NewConfigFromBytes([]byte("server:\n  path: /env.js\n"), config.YamlFormat)
			Expect(err).NotTo(HaveOccurred())

			_, err = serverConfig(cfg, "127.0.0.1:0")
			Expect(err).To(MatchError(ContainSubstring("reserved")))
		})
	})
})
