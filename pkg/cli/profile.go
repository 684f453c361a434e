package cli

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/p2pkit/secio/internal/log"
)

// EnvSecioConfig names a YAML profile read by [Config.LoadProfile].
const EnvSecioConfig = "SECIO_CONFIG"

// Profile holds defaults for options that are tedious to repeat on every command line. Command-line
// flags and environment variables take precedence over a profile.
//
//	key_file: ~/.secio/host.pem
//	known_peers: ~/.secio/known_peers.json
//	ciphers: [AES-256, ChaCha20]
//	log_level: info
type Profile struct {
	KeyFile     string   `yaml:"key_file"`
	KeyName     string   `yaml:"key_name"`
	KeyringType string   `yaml:"keyring_type"`
	KeyringPath string   `yaml:"keyring_path"`
	Peer        string   `yaml:"peer"`
	KnownPeers  string   `yaml:"known_peers"`
	LogLevel    string   `yaml:"log_level"`
	Curves      []string `yaml:"curves"`
	Ciphers     []string `yaml:"ciphers"`
	Hashes      []string `yaml:"hashes"`
}

// ReadProfile parses a YAML profile.
func ReadProfile(filename string) (*Profile, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("invalid profile %s: %w", filename, err)
	}
	return &p, nil
}

func setList(list *AlgorithmList, names []string) error {
	if len(list.Names) > 0 {
		return nil
	}
	for _, name := range names {
		if err := list.Set(name); err != nil {
			return err
		}
	}
	return nil
}

// LoadProfile fills fields of c that are still empty from c.ProfileFilename. Call it after
// [flag.Parse] and [Config.ReadFromEnvironment]. If no profile is configured, it does nothing.
func (c *Config) LoadProfile() error {
	if c.ProfileFilename == "" {
		return nil
	}
	log.Debug("Loading profile from %s...", c.ProfileFilename)
	p, err := ReadProfile(c.ProfileFilename)
	if err != nil {
		return err
	}
	if c.LogLevel == "" {
		c.LogLevel = p.LogLevel
	}
	if c.Flags.isSet(FlagPrivateKey) {
		if c.KeyFilename == "" && c.KeyringKeyName == "" {
			c.KeyFilename = p.KeyFile
			c.KeyringKeyName = p.KeyName
		}
		if len(c.Backend.AllowedBackends) == 0 {
			if err := c.BackendType.Set(p.KeyringType); err != nil {
				return fmt.Errorf("profile keyring_type: %w", err)
			}
		}
		if c.Backend.FileDir == "" {
			c.Backend.FileDir = p.KeyringPath
		}
	}
	if c.Flags.isSet(FlagPeer) {
		if c.Peer == "" {
			c.Peer = p.Peer
		}
		if c.KnownPeersFilename == "" {
			c.KnownPeersFilename = p.KnownPeers
		}
	}
	if c.Flags.isSet(FlagAlgorithms) {
		if err := setList(&c.Curves, p.Curves); err != nil {
			return fmt.Errorf("profile curves: %w", err)
		}
		if err := setList(&c.Ciphers, p.Ciphers); err != nil {
			return fmt.Errorf("profile ciphers: %w", err)
		}
		if err := setList(&c.Hashes, p.Hashes); err != nil {
			return fmt.Errorf("profile hashes: %w", err)
		}
	}
	return nil
}
