// Utility for generating, saving, and migrating host identity keys

package main

import (
	"crypto/rand"
	"encoding/pem"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/p2pkit/secio/pkg/cli"
	"github.com/p2pkit/secio/pkg/identity"
)

func writeErr(format string, a ...interface{}) {
	fmt.Fprintf(os.Stderr, format, a...)
	fmt.Fprintf(os.Stderr, "\n")
}

const usageText = `
Creates or deletes a host private key and saves it in the system keyring or a file, or migrates a
key from a plaintext file into the system keyring.

The program writes the public key to stdout (except when deleting a key) and the peer ID that
other hosts can pin with -peer to stderr. When using the create option, the program will not
overwrite an existing key unless invoked with -f.

The type of keyring and name of the key inside that keyring are controlled by the command-line
options below, or through the corresponding environment variables.`

func cliUsage() {
	usage(flag.CommandLine.Output())
}

func usage(w io.Writer) {
	fmt.Fprintf(w, "usage: %s [OPTION...] create|delete|export|migrate|show\n", filepath.Base(os.Args[0]))
	fmt.Fprintln(w, usageText)
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "OPTIONS:")
	flag.PrintDefaults()
}

func printPublicKey(skey *identity.HostKey) bool {
	pemPublicKey, err := skey.PublicKeyPEM()
	if err != nil {
		return false
	}
	os.Stdout.Write(pemPublicKey)
	writeErr("Peer ID: %s", skey.ID())
	return true
}

func printPrivateKey(skey *identity.HostKey) error {
	der, err := skey.MarshalPKCS8()
	if err != nil {
		return fmt.Errorf("private key is not exportable: %w", err)
	}
	return pem.Encode(os.Stdout, &pem.Block{Type: "PRIVATE KEY", Bytes: der})
}

func main() {
	// Command-line variables
	var (
		overwrite bool
		keyType   string
		skey      *identity.HostKey
		err       error
	)
	status := 1
	defer func() {
		os.Exit(status)
	}()

	config, err := cli.NewConfig(cli.FlagPrivateKey)
	if err != nil {
		writeErr("Failed to load credential configuration: %s", err)
		return
	}
	config.RegisterCommandLineFlags()
	flag.Usage = cliUsage
	flag.BoolVar(&overwrite, "f", false, "Overwrite existing key if it exists")
	flag.StringVar(&keyType, "type", "ed25519", "Key `type` to create (ed25519|ecdsa)")
	flag.Parse()
	config.ReadFromEnvironment()
	if err := config.LoadProfile(); err != nil {
		writeErr("Failed to load profile: %s", err)
		return
	}
	if err := config.ApplyLogLevel(); err != nil {
		writeErr("%s", err)
		return
	}

	if flag.NArg() != 1 {
		usage(os.Stderr)
		return
	}

	switch flag.Arg(0) {
	case "migrate":
		if config.KeyFilename == "" || config.KeyringKeyName == "" {
			writeErr("Must provide path of existing key (-key-file) and name of new key (-key-name)")
			return
		}

		skey, err = identity.LoadPrivateKey(config.KeyFilename)
		if err != nil {
			writeErr("Unable to read key: %s", err)
			return
		}
		config.KeyFilename = "" // Prevent key from being re-written to a file
	case "delete":
		if err := config.DeletePrivateKey(); err != nil {
			writeErr("Failed to delete key: %s", err)
		} else {
			status = 0
		}
		return
	case "create":
		if !overwrite {
			// Print key and exit if it already exists
			skey, err = config.PrivateKey()
			if err == nil {
				if ok := printPublicKey(skey); !ok {
					writeErr("Failed to parse key. The keyring may be corrupted. Run with -f to generate new key.")
					return
				}
				status = 0
				return
			}
		}
		typ, err := identity.ParseKeyType(keyType)
		if err != nil {
			writeErr("%s", err)
			return
		}
		skey, err = identity.GenerateKey(typ, rand.Reader)
		if err != nil {
			writeErr("Failed to generate private key: %s", err)
			return
		}
	case "export":
		skey, err = config.PrivateKey()
		if err == nil {
			err = printPrivateKey(skey)
		}
		if err != nil {
			writeErr("Failed to export private key: %s", err)
			return
		}
		status = 0
		return
	case "show":
		skey, err = config.PrivateKey()
		if err != nil {
			writeErr("Failed to load private key: %s", err)
			return
		}
		if ok := printPublicKey(skey); ok {
			status = 0
		}
		return
	default:
		writeErr("Unrecognized command-line argument.")
		writeErr("")
		usage(os.Stderr)
		return
	}

	if err = config.SavePrivateKey(skey); err != nil {
		writeErr("Failed to save key: %s", err)
		return
	}

	if ok := printPublicKey(skey); !ok {
		writeErr("Failed to extract public key. Run with -f to generate new key pair.")
		return
	}
	status = 0
}
