package algorithms

import (
	"fmt"
	"strings"
)

// Ordering is the deterministic role assignment computed from both peers' proposals.
type Ordering int

const (
	Less    Ordering = -1
	Equal   Ordering = 0
	Greater Ordering = 1
)

func (o Ordering) String() string {
	switch o {
	case Less:
		return "less"
	case Equal:
		return "equal"
	case Greater:
		return "greater"
	}
	return fmt.Sprintf("Ordering(%d)", int(o))
}

// Swapped reports whether the local side keys its sending direction with the second KDF half.
func (o Ordering) Swapped() bool {
	return o == Less
}

// SelectBest picks one name present in both lists. The preference list of the peer whose ordering
// is Greater is walked first, so both peers arrive at the same choice independently. For Equal the
// local list is preferred.
func SelectBest(order Ordering, local, remote []string) (string, bool) {
	first, second := local, remote
	if order == Less {
		first, second = remote, local
	}
	for _, candidate := range first {
		for _, other := range second {
			if candidate == other {
				return candidate, true
			}
		}
	}
	return "", false
}

// Names returns the wire names of items, in order.
func Names[T fmt.Stringer](items []T) []string {
	names := make([]string, len(items))
	for i, item := range items {
		names[i] = item.String()
	}
	return names
}

// SplitNames parses a comma-separated wire list. Empty entries are dropped.
func SplitNames(list string) []string {
	var names []string
	for _, name := range strings.Split(list, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func ParseCurve(name string) (Curve, error) {
	for _, c := range allCurves {
		if c.String() == name {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unsupported curve '%s'", name)
}

func ParseCipher(name string) (Cipher, error) {
	for _, c := range allCiphers {
		if c.String() == name {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unsupported cipher '%s'", name)
}

func ParseHash(name string) (Hash, error) {
	for _, h := range allHashes {
		if h.String() == name {
			return h, nil
		}
	}
	return 0, fmt.Errorf("unsupported hash '%s'", name)
}
