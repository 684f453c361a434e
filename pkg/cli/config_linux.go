package cli

import "flag"

func (c *Config) registerCommandLineFlagsOsSpecific() {
	flag.StringVar(&c.Backend.KeyCtlScope, "keyctl-scope", c.Backend.KeyCtlScope, "Kernel keyring `scope` for the keyctl keyring type (user|session|process|thread)")
}
