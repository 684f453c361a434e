/*
Package cli facilitates building command-line applications that open secio sessions. It defines a
[Config] type that can be used to register common command-line flags (using the Golang flag
package) and environment variable equivalents.

The package uses [keyring]'s platform-agnostic interface for storing host private keys in an
OS-dependent credential store.

# Examples

	import flag

	config, err := NewConfig(FlagAll)
	if err != nil {
		panic(err)
	}
	config.RegisterCommandLineFlags() // Adds command-line flags for private keys, peers, etc.
	flag.Parse()
	config.ReadFromEnvironment()      // Fills in missing fields using environment variables
	config.LoadProfile()              // Then from the -config YAML file, if any
	config.LoadCredentials()          // Prompt for Keyring password if needed

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		panic(err)
	}
	sessionConfig, err := config.SessionConfig(addr)
	if err != nil {
		panic(err)
	}
	session, err := secio.Secure(ctx, conn, sessionConfig)
	if err != nil {
		panic(err)
	}
	config.RememberPeer(addr, session) // Pins the peer's identity if -known-peers is set

Alternatively, you can use a [Flag] mask to control what [Config] fields are populated. Note that
config.Flags must be set before calling [flag.Parse] or [Config.ReadFromEnvironment]:

	config, err = NewConfig(FlagPrivateKey) // Any peer is accepted.
	config, err = NewConfig(FlagPrivateKey | FlagPeer | FlagAlgorithms)
*/
package cli

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/99designs/keyring"

	"github.com/p2pkit/secio/internal/algorithms"
	"github.com/p2pkit/secio/internal/log"
	"github.com/p2pkit/secio/pkg/cache"
	"github.com/p2pkit/secio/pkg/identity"
	"github.com/p2pkit/secio/pkg/secio"
)

// AlgorithmList is a preference-ordered list of algorithm names given on the command line. The flag
// may be repeated or given a comma-separated list.
type AlgorithmList struct {
	Names []string
	parse func(string) error
}

func newAlgorithmList[T any](parse func(string) (T, error)) AlgorithmList {
	return AlgorithmList{parse: func(name string) error {
		_, err := parse(name)
		return err
	}}
}

// Set updates an AlgorithmList from a command-line argument.
func (a *AlgorithmList) Set(value string) error {
	names := algorithms.SplitNames(value)
	if len(names) == 0 {
		return fmt.Errorf("empty algorithm list")
	}
	for _, name := range names {
		if a.parse != nil {
			if err := a.parse(name); err != nil {
				return err
			}
		}
		a.Names = append(a.Names, name)
	}
	return nil
}

func (a *AlgorithmList) String() string {
	return strings.Join(a.Names, ",")
}

// Environment variable names used are used by [Config.ReadFromEnvironment] to set common parameters.
const (
	EnvSecioKeyName      = "SECIO_KEY_NAME"
	EnvSecioKeyFile      = "SECIO_KEY_FILE"
	EnvSecioPeer         = "SECIO_PEER"
	EnvSecioKnownPeers   = "SECIO_KNOWN_PEERS"
	EnvSecioKeyringType  = "SECIO_KEYRING_TYPE"
	EnvSecioKeyringPass  = "SECIO_KEYRING_PASSWORD"
	EnvSecioKeyringPath  = "SECIO_KEYRING_PATH"
	EnvSecioKeyringDebug = "SECIO_KEYRING_DEBUG"
	EnvSecioLogLevel     = "SECIO_LOG_LEVEL"
)

// Flag controls what options should be scanned from the command line and/or environment variables.
type Flag int

func (f Flag) isSet(other Flag) bool {
	return (f & other) == other
}

const (
	FlagPrivateKey Flag = 1 // Enable host key options. Required to open sessions.
	FlagPeer       Flag = 2 // Enable expected peer and known-peers options.
	FlagAlgorithms Flag = 4 // Enable algorithm restriction options.
	FlagAll        Flag = FlagPrivateKey | FlagPeer | FlagAlgorithms
)

// knownPeersLimit bounds the known-peers file; the least recently seen address is evicted.
const knownPeersLimit = 1000

var (
	ErrNoKeySpecified = errors.New("private key location not provided")
	ErrKeyNotFound    = keyring.ErrKeyNotFound
)

// Config fields determine how a client authenticates itself and its peers.
type Config struct {
	Flags              Flag   // Controls which set of environment variables/CLI flags to use.
	KeyringKeyName     string // Username for private key in system keyring
	KeyFilename        string
	Peer               string // Hex peer ID, or a PEM file holding the peer's key.
	KnownPeersFilename string
	LogLevel           string
	ProfileFilename    string // YAML defaults; see [Profile].
	Backend            keyring.Config
	BackendType        backendType
	Debug              bool // Enable keyring debug messages

	// Curves, Ciphers and Hashes restrict the algorithms offered in a handshake. Empty lists
	// offer everything.
	Curves  AlgorithmList
	Ciphers AlgorithmList
	Hashes  AlgorithmList

	password   *string
	knownPeers *cache.KnownPeers
	hostKey    *identity.HostKey
}

func NewConfig(flags Flag) (*Config, error) {
	c := Config{
		Flags: flags,
		Backend: keyring.Config{
			ServiceName:              keyringServiceName,
			KeychainTrustApplication: true,
			KeyCtlScope:              "user",
		},
		Curves:  newAlgorithmList(algorithms.ParseCurve),
		Ciphers: newAlgorithmList(algorithms.ParseCipher),
		Hashes:  newAlgorithmList(algorithms.ParseHash),
	}
	c.BackendType = backendType{&c}
	c.Backend.KeychainPasswordFunc = c.getPassword
	c.Backend.FilePasswordFunc = c.getPassword

	return &c, nil
}

func (c *Config) RegisterCommandLineFlags() {
	flag.StringVar(&c.LogLevel, "log-level", "", "Log `level` (none|error|warn|info|debug). Defaults to $SECIO_LOG_LEVEL.")
	flag.StringVar(&c.ProfileFilename, "config", "", "Read defaults from YAML `file`. Defaults to $SECIO_CONFIG.")
	if c.Flags.isSet(FlagPrivateKey) {
		flag.StringVar(&c.KeyringKeyName, "key-name", "", "System keyring `name` for private key. Defaults to $SECIO_KEY_NAME.")
		flag.StringVar(&c.KeyFilename, "key-file", "", "A `file` containing private key. Defaults to $SECIO_KEY_FILE.")

		var names []string
		for _, name := range keyring.AvailableBackends() {
			names = append(names, string(name))
		}
		sort.Strings(names)
		flag.Var(&c.BackendType, "keyring-type", "Keyring `type` ("+strings.Join(names, "|")+"). Defaults to $SECIO_KEYRING_TYPE.")
		flag.StringVar(&c.Backend.FileDir, "keyring-file-dir", keyringDirectory, "keyring `directory` for file-backed keyring types")
		flag.BoolVar(&c.Debug, "keyring-debug", false, "Enable keyring debug logging")
		c.registerCommandLineFlagsOsSpecific()
	}
	if c.Flags.isSet(FlagPeer) {
		flag.StringVar(&c.Peer, "peer", "", "Expected peer `id` (hex) or public key file. Defaults to $SECIO_PEER.")
		flag.StringVar(&c.KnownPeersFilename, "known-peers", "", "Pin peer identities by address in `file`. Defaults to $SECIO_KNOWN_PEERS.")
	}
	if c.Flags.isSet(FlagAlgorithms) {
		flag.Var(&c.Curves, "curves", "Key exchange curves to offer, most preferred first ("+strings.Join(algorithms.Names(algorithms.AllCurves()), "|")+")")
		flag.Var(&c.Ciphers, "ciphers", "Ciphers to offer, most preferred first ("+strings.Join(algorithms.Names(algorithms.AllCiphers()), "|")+")")
		flag.Var(&c.Hashes, "hashes", "MAC hashes to offer, most preferred first ("+strings.Join(algorithms.Names(algorithms.AllHashes()), "|")+")")
	}
}

// LoadCredentials attempts to open a keyring, prompting for a password if needed. Call this method
// before dialing to prevent interactive prompts from counting against handshake timeouts.
func (c *Config) LoadCredentials() error {
	if c.Flags.isSet(FlagPrivateKey) {
		if _, err := c.PrivateKey(); err != nil {
			return err
		}
	}
	return nil
}

// ReadFromEnvironment populates c using environment variables. Values that are already populated
// are not overwritten.
//
// Calling ReadFromEnvironment after flag.Parse() (or other initialization method) will prevent the
// environment from overriding explicit command-line parameters and avoid potentially misleading
// debug log messages.
func (c *Config) ReadFromEnvironment() {
	if c.LogLevel == "" {
		c.LogLevel = os.Getenv(EnvSecioLogLevel)
	}
	if c.ProfileFilename == "" {
		c.ProfileFilename = os.Getenv(EnvSecioConfig)
	}
	if c.Flags.isSet(FlagPrivateKey) {
		if c.KeyringKeyName == "" && c.KeyFilename == "" {
			c.KeyringKeyName = os.Getenv(EnvSecioKeyName)
			log.Debug("Set key name to '%s'", c.KeyringKeyName)

			c.KeyFilename = os.Getenv(EnvSecioKeyFile)
			log.Debug("Set key file to '%s'", c.KeyFilename)
		}
		if c.BackendType.String() == string(keyring.InvalidBackend) {
			if err := c.BackendType.Set(os.Getenv(EnvSecioKeyringType)); err == nil {
				log.Debug("Set keyring type to '%s'", c.BackendType)
			}
		}
		if c.password == nil {
			password := os.Getenv(EnvSecioKeyringPass)
			c.password = &password
			if len(password) > 0 {
				log.Debug("Set keyring File Password to %s", strings.Repeat("*", len("hunter2")))
			}
		}
		if c.Backend.FileDir == "" {
			c.Backend.FileDir = os.Getenv(EnvSecioKeyringPath)
			log.Debug("Set keyring File Path to '%s'", c.Backend.FileDir)
		}
		if !c.Debug {
			_, c.Debug = os.LookupEnv(EnvSecioKeyringDebug)
			log.Debug("Set keyring Debug Logging to '%v'", c.Debug)
		}
	}
	if c.Flags.isSet(FlagPeer) {
		if c.Peer == "" {
			c.Peer = os.Getenv(EnvSecioPeer)
			log.Debug("Set expected peer to '%s'", c.Peer)
		}
		if c.KnownPeersFilename == "" {
			c.KnownPeersFilename = os.Getenv(EnvSecioKnownPeers)
			log.Debug("Set known peers file to '%s'", c.KnownPeersFilename)
		}
	}
}

// ApplyLogLevel sets the global log level from c.LogLevel. An empty level leaves logging unchanged.
func (c *Config) ApplyLogLevel() error {
	if c.LogLevel == "" {
		return nil
	}
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return err
	}
	log.SetLevel(level)
	return nil
}

// PrivateKey loads a private key from the location specified in c.
//
// The private key is cached after it is first loaded, and subsequent calls will always return the
// same private key.
func (c *Config) PrivateKey() (skey *identity.HostKey, err error) {
	if c.hostKey != nil {
		return c.hostKey, nil
	}
	if !c.Flags.isSet(FlagPrivateKey) {
		log.Debug("Skipping private key loading because FlagPrivateKey is not set")
		return nil, ErrNoKeySpecified
	}
	if c.KeyFilename == "" && c.KeyringKeyName == "" {
		return nil, ErrNoKeySpecified
	}
	if c.KeyFilename != "" {
		skey, err = identity.LoadPrivateKey(c.KeyFilename)
	}
	if skey == nil && c.KeyringKeyName != "" {
		skey, err = c.LoadKeyFromKeyring()
	}
	if err != nil {
		return nil, err
	}
	c.hostKey = skey
	return skey, nil
}

// SavePrivateKey writes skey to the system keyring or file, depending on what options are
// configured. The method prefers the keyring if both options are available.
func (c *Config) SavePrivateKey(skey *identity.HostKey) error {
	if c.KeyringKeyName != "" {
		return c.saveKeyToKeyring(skey)
	}
	if c.KeyFilename != "" {
		return identity.SavePrivateKey(skey, c.KeyFilename)
	}
	return ErrNoKeySpecified
}

// ExpectedPeer returns the identity the peer at address must present. An explicit c.Peer takes
// precedence over the known-peers file. If neither applies, the result is identity.Unknown.
func (c *Config) ExpectedPeer(address string) (identity.ID, error) {
	if c.Peer != "" {
		if id, err := identity.ParseID(c.Peer); err == nil {
			return id, nil
		}
		id, err := identity.LoadPeerID(c.Peer)
		if err != nil {
			return identity.Unknown, fmt.Errorf("peer '%s' is neither a peer id nor a readable key file: %w", c.Peer, err)
		}
		return id, nil
	}
	if err := c.loadKnownPeers(); err != nil {
		return identity.Unknown, err
	}
	if c.knownPeers != nil {
		if id, ok := c.knownPeers.Lookup(address); ok {
			log.Debug("Expecting known peer %s at %s", id.ShortString(), address)
			return id, nil
		}
	}
	return identity.Unknown, nil
}

// SessionConfig builds a handshake configuration for a connection to (or from) address.
func (c *Config) SessionConfig(address string) (secio.Config, error) {
	skey, err := c.PrivateKey()
	if err != nil {
		return secio.Config{}, err
	}
	expected, err := c.ExpectedPeer(address)
	if err != nil {
		return secio.Config{}, err
	}
	return secio.Config{
		Identity:     skey,
		ExpectedPeer: expected,
		Curves:       c.Curves.Names,
		Ciphers:      c.Ciphers.Names,
		Hashes:       c.Hashes.Names,
	}, nil
}

// RememberPeer records the identity authenticated by session at address in the known-peers file.
//
// If c.KnownPeersFilename is not set, this method does nothing.
func (c *Config) RememberPeer(address string, session *secio.Session) {
	if c.KnownPeersFilename == "" {
		return
	}
	if err := c.loadKnownPeers(); err != nil {
		log.Error("Error loading known peers: %s", err)
		return
	}
	c.knownPeers.Update(address, session.RemotePeer().ID(), time.Now())
	if err := c.knownPeers.ExportToFile(c.KnownPeersFilename); err != nil {
		log.Error("Error updating known peers: %s", err)
	}
}

func (c *Config) loadKnownPeers() error {
	if c.KnownPeersFilename == "" || c.knownPeers != nil {
		return nil
	}
	log.Debug("Loading known peers from %s...", c.KnownPeersFilename)
	var err error
	c.knownPeers, err = cache.ImportFromFile(c.KnownPeersFilename)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load known peers: %s", err)
		}
		// Create a new store if one couldn't be loaded from the file
		c.knownPeers = cache.New(knownPeersLimit)
	}
	return nil
}
