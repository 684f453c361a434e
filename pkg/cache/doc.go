// Package cache remembers which peer identity answered at each network address.
//
// A client that dials an address without knowing the peer's identity in advance can record the
// identity it authenticated (trust on first use). Later connections to the same address then set
// [secio.Config.ExpectedPeer] from the cache, and the handshake fails with IdentityMismatch if a
// different key answers.
//
// A KnownPeers file is only as trustworthy as the file system that stores it. If it is exported
// using [KnownPeers.Export] or [KnownPeers.ExportToFile], access controls should be used to
// prevent third parties from tampering with the data.
//
// [secio.Config.ExpectedPeer]: github.com/p2pkit/secio/pkg/secio.Config
package cache
