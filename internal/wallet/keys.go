package wallet

import (
	"crypto/ecdsa"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/crypto"
)

type KeyConfig struct {
	// KeystoreDir holds go-ethereum keystore JSON files.
	KeystoreDir string
	Passphrase  string
	// PrivateKeys are hex encoded, with or without 0x.
	PrivateKeys []string
}

// LoadKeys decrypts every keystore file in cfg.KeystoreDir and parses
// cfg.PrivateKeys. Duplicate accounts are kept once, first occurrence wins.
func LoadKeys(cfg KeyConfig) ([]*ecdsa.PrivateKey, error) {
	var keys []*ecdsa.PrivateKey
	seen := map[string]bool{}

	add := func(k *ecdsa.PrivateKey) {
		addr := crypto.PubkeyToAddress(k.PublicKey).Hex()
		if seen[addr] {
			return
		}
		seen[addr] = true
		keys = append(keys, k)
	}

	for i, raw := range cfg.PrivateKeys {
		raw = strings.TrimPrefix(strings.TrimSpace(raw), "0x")
		if raw == "" {
			continue
		}
		k, err := crypto.HexToECDSA(raw)
		if err != nil {
			return nil, fmt.Errorf("wallet: private key #%d: %w", i, err)
		}
		add(k)
	}

	if dir := strings.TrimSpace(cfg.KeystoreDir); dir != "" {
		fromDir, err := loadKeystoreDir(dir, cfg.Passphrase)
		if err != nil {
			return nil, err
		}
		for _, k := range fromDir {
			add(k)
		}
	}

	return keys, nil
}

func loadKeystoreDir(dir, passphrase string) ([]*ecdsa.PrivateKey, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("wallet: read keystore dir: %w", err)
	}

	var keys []*ecdsa.PrivateKey
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		blob, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("wallet: read %s: %w", e.Name(), err)
		}
		key, err := keystore.DecryptKey(blob, passphrase)
		if err != nil {
			return nil, fmt.Errorf("wallet: decrypt %s: %w", e.Name(), err)
		}
		keys = append(keys, key.PrivateKey)
	}
	return keys, nil
}
