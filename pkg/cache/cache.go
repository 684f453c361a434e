package cache

import (
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"

	"github.com/p2pkit/secio/pkg/identity"
)

// Entry records the identity last authenticated at an address.
type Entry struct {
	Peer     identity.ID `json:"peer"`
	LastSeen time.Time   `json:"last_seen"`
}

type KnownPeers struct {
	MaxEntries int
	Peers      map[string]Entry `json:"peers"`
	lock       sync.Mutex
}

// New returns a KnownPeers store that holds up to maxEntries addresses. When full, the entry that
// was seen least recently is evicted.
//
// Set maxEntries to zero for an unbounded store.
func New(maxEntries int) *KnownPeers {
	return &KnownPeers{
		MaxEntries: maxEntries,
		Peers:      make(map[string]Entry),
	}
}

// Import a KnownPeers store using data in r.
// The data should previously have been generated using [KnownPeers.Export].
func Import(r io.Reader) (*KnownPeers, error) {
	var c KnownPeers
	decoder := json.NewDecoder(r)
	if err := decoder.Decode(&c); err != nil {
		return nil, err
	}
	if c.Peers == nil {
		c.Peers = make(map[string]Entry)
	}
	return &c, nil
}

// ImportFromFile reads a KnownPeers store from disk.
func ImportFromFile(filename string) (*KnownPeers, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Import(file)
}

// Export writes a serialized KnownPeers store to w.
func (c *KnownPeers) Export(w io.Writer) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	return json.NewEncoder(w).Encode(c)
}

// ExportToFile writes a KnownPeers store to disk, replacing any previous contents.
func (c *KnownPeers) ExportToFile(filename string) error {
	file, err := os.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer file.Close()

	return c.Export(file)
}

// Lookup returns the identity recorded for address.
func (c *KnownPeers) Lookup(address string) (identity.ID, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()

	entry, ok := c.Peers[address]
	return entry.Peer, ok
}

// Update records that peer was authenticated at address at time seen.
func (c *KnownPeers) Update(address string, peer identity.ID, seen time.Time) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.Peers[address] = Entry{Peer: peer, LastSeen: seen}
	if c.MaxEntries > 0 && len(c.Peers) > c.MaxEntries {
		oldest := address
		oldestSeen := seen
		for a, entry := range c.Peers {
			if entry.LastSeen.Before(oldestSeen) {
				oldest = a
				oldestSeen = entry.LastSeen
			}
		}
		delete(c.Peers, oldest)
	}
}

// Forget removes address, so the next connection to it is trusted on first use again.
func (c *KnownPeers) Forget(address string) {
	c.lock.Lock()
	defer c.lock.Unlock()

	delete(c.Peers, address)
}
