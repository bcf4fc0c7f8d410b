package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/unitstake/poolmgr/internal/lib/ledger"
)

// LocalConfig is the operator-editable configuration: the ledger settings
// plus the role assignments feeding the access table.
type LocalConfig struct {
	Settings ledger.Settings `json:"settings"`

	Admins         []string `json:"admins"`
	Operators      []string `json:"operators"`
	WalletManagers []string `json:"walletManagers"`
}

func NewLocalConfig() *LocalConfig {
	return &LocalConfig{Settings: ledger.DefaultSettings()}
}

// RoleAddresses decodes the configured role lists into addresses.
func (lc *LocalConfig) RoleAddresses() (admins, operators, walletManagers []ledger.Address, err error) {
	decode := func(role string, list []string) ([]ledger.Address, error) {
		addrs := make([]ledger.Address, 0, len(list))
		for _, s := range list {
			addr, err := ledger.DecodeAddress(s)
			if err != nil {
				return nil, fmt.Errorf("bad %s address in config: %w", role, err)
			}
			addrs = append(addrs, addr)
		}
		return addrs, nil
	}
	if admins, err = decode("admin", lc.Admins); err != nil {
		return nil, nil, nil, err
	}
	if operators, err = decode("operator", lc.Operators); err != nil {
		return nil, nil, nil, err
	}
	if walletManagers, err = decode("wallet manager", lc.WalletManagers); err != nil {
		return nil, nil, nil, err
	}
	return admins, operators, walletManagers, nil
}

func ConfigFilename() (string, error) {
	cfgDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	cfgPath := filepath.Join(cfgDir, "poolmgr", "poolmgr.json")
	err = os.MkdirAll(filepath.Dir(cfgPath), 0775) // user+group RWX, others RX
	if err != nil {
		return "", fmt.Errorf("error making directory:%s, error:%w", cfgDir, err)
	}
	return cfgPath, nil
}

func SaveConfig(cfg *LocalConfig) error {
	// Save into a temp file first and replace the config file only if
	// successfully written.
	cfgName, err := ConfigFilename()
	if err != nil {
		return err
	}
	temp, err := os.CreateTemp(filepath.Dir(cfgName), filepath.Base(cfgName)+".*")
	if err != nil {
		return err
	}
	encoder := json.NewEncoder(temp)
	encoder.SetIndent("", "  ")
	err = encoder.Encode(cfg)
	if err != nil {
		_ = temp.Close()
		_ = os.Remove(temp.Name())
		return fmt.Errorf("error saving configuration: %w", err)
	}

	err = temp.Close()
	if err != nil {
		return err
	}

	err = os.Rename(temp.Name(), cfgName)
	if err != nil {
		return err
	}
	slog.Info("config saved", "file", cfgName)
	return nil
}

func LoadConfig() (*LocalConfig, error) {
	cfgName, err := ConfigFilename()
	if err != nil {
		return nil, err
	}
	file, err := os.Open(cfgName)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	var cfg LocalConfig
	err = decoder.Decode(&cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Settings.UserDepositMinUnit == nil || cfg.Settings.ValidatorDepositAmount == nil {
		return nil, fmt.Errorf("config %s is missing deposit settings - run 'settings init'", cfgName)
	}
	return &cfg, nil
}
