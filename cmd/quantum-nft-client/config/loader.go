package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/quantumauth-io/quantum-nft-client/internal/chains"
)

//go:embed config.yaml
var EmbeddedConfigYAML []byte

const EnvPrefix = "QNC"

// Plain environment variables, read after the config files.
const (
	EnvAlchemyAPIKey      = "ALCHEMY_API_KEY"
	EnvPrivateKey         = "PRIVATE_KEY"
	EnvKeystorePassphrase = "KEYSTORE_PASSPHRASE"
)

type ClientSettings struct {
	LocalHost           string
	Port                string
	AllowedOrigins      []string
	InteractiveApproval bool
}

type ContractConfig struct {
	Address string
}

type GatewayConfig struct {
	BaseURL string
}

type MetadataConfig struct {
	Timeout      time.Duration
	MaxBodyBytes int64
}

type PipelineConfig struct {
	MaxConcurrency int
}

type TransferConfig struct {
	RefreshDelay time.Duration
}

type ChainConfig struct {
	HeaderRefreshInterval time.Duration
}

type WalletConfig struct {
	KeystoreDir string
	Passphrase  string
	PrivateKeys []string
}

type GalleryConfig struct {
	APIKey   string
	Network  string
	BaseURL  string
	CacheTTL time.Duration
	Timeout  time.Duration
}

type RedisConfig struct {
	Addrs    []string
	Password string
	DB       int
}

type Config struct {
	ClientSettings *ClientSettings
	Networks       *chains.NetworksConfig
	Collection     ContractConfig
	Registry       ContractConfig
	Gateway        GatewayConfig
	Metadata       MetadataConfig
	Pipeline       PipelineConfig
	Transfer       TransferConfig
	Chain          ChainConfig
	Wallet         WalletConfig
	Gallery        GalleryConfig
	Redis          RedisConfig
}

func Load() (*Config, error) {
	home, _ := os.UserHomeDir()
	paths := []string{
		filepath.Join(home, ".config", "quantum-nft-client"),
		filepath.Join(home, "config"),
		".",
	}

	// .env is optional
	_ = godotenv.Load()

	return LoadFrom(paths)
}

// LoadFrom merges the embedded defaults with the first config.yaml found in
// paths, then applies QNC_* overrides and the plain environment variables.
func LoadFrom(paths []string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(EmbeddedConfigYAML)); err != nil {
		return nil, fmt.Errorf("read embedded config: %w", err)
	}

	v.SetConfigName("config")
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	if err := v.MergeInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("merge config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.ApplyEnv()
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyEnv fills secrets from the environment when the config leaves them empty.
func (c *Config) ApplyEnv() {
	if strings.TrimSpace(c.Gallery.APIKey) == "" {
		c.Gallery.APIKey = strings.TrimSpace(os.Getenv(EnvAlchemyAPIKey))
	}
	if strings.TrimSpace(c.Wallet.Passphrase) == "" {
		c.Wallet.Passphrase = os.Getenv(EnvKeystorePassphrase)
	}
	if key := strings.TrimSpace(os.Getenv(EnvPrivateKey)); key != "" {
		c.Wallet.PrivateKeys = append(c.Wallet.PrivateKeys, key)
	}
}

func (c *Config) Normalize() error {
	if c.ClientSettings == nil {
		return errors.New("ClientSettings section is missing")
	}
	if c.Networks == nil || len(c.Networks.Networks) == 0 {
		return errors.New("Networks section is missing")
	}
	c.Networks.Normalize()
	if _, ok := c.Networks.Networks[c.Networks.ActiveNetwork]; !ok {
		return fmt.Errorf("active network %q not found in config", c.Networks.ActiveNetwork)
	}

	var err error
	if c.Collection.Address, err = normalizeAddress("Collection.Address", c.Collection.Address, true); err != nil {
		return err
	}
	if c.Registry.Address, err = normalizeAddress("Registry.Address", c.Registry.Address, false); err != nil {
		return err
	}

	c.Gateway.BaseURL = strings.TrimRight(strings.TrimSpace(c.Gateway.BaseURL), "/")
	if c.Gateway.BaseURL != "" {
		if err := validateURL("Gateway.BaseURL", c.Gateway.BaseURL); err != nil {
			return err
		}
	}
	c.Gallery.BaseURL = strings.TrimRight(strings.TrimSpace(c.Gallery.BaseURL), "/")
	if c.Gallery.BaseURL != "" {
		if err := validateURL("Gallery.BaseURL", c.Gallery.BaseURL); err != nil {
			return err
		}
	}
	if c.Gallery.Network == "" {
		c.Gallery.Network = c.Networks.Networks[c.Networks.ActiveNetwork].IndexerNetwork
	}

	if c.Metadata.Timeout < 0 || c.Gallery.Timeout < 0 || c.Gallery.CacheTTL < 0 {
		return errors.New("timeouts and TTLs must not be negative")
	}
	if c.Pipeline.MaxConcurrency < 0 {
		return errors.New("Pipeline.MaxConcurrency must not be negative")
	}

	origins := c.ClientSettings.AllowedOrigins[:0]
	for _, o := range c.ClientSettings.AllowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	c.ClientSettings.AllowedOrigins = origins

	addrs := c.Redis.Addrs[:0]
	for _, a := range c.Redis.Addrs {
		if a = strings.TrimSpace(a); a != "" {
			addrs = append(addrs, a)
		}
	}
	c.Redis.Addrs = addrs

	return nil
}

func normalizeAddress(field, raw string, required bool) (string, error) {
	a := strings.TrimSpace(raw)
	if a == "" {
		if required {
			return "", fmt.Errorf("%s is required", field)
		}
		return "", nil
	}
	if !strings.HasPrefix(a, "0x") && !strings.HasPrefix(a, "0X") {
		a = "0x" + a
	}
	if !common.IsHexAddress(a) {
		return "", fmt.Errorf("%s invalid address: %q", field, raw)
	}
	return common.HexToAddress(a).Hex(), nil
}

func validateURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s invalid url: %q", field, raw)
	}
	return nil
}
