// Package hash provides the content digests used as deduplication keys.
package hash

import (
	"crypto/sha1" //nolint:gosec // SHA-1 matches the digests already stored in the archive
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	stdhash "hash"
	"strings"
)

// Supported algorithm names.
const (
	SHA1   = "sha1"
	SHA256 = "sha256"
)

// Hasher implements crawler.Hasher with a fixed algorithm.
type Hasher struct {
	name    string
	newHash func() stdhash.Hash
}

// New returns a Hasher for the named algorithm. An empty name selects SHA-1.
func New(name string) (*Hasher, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", SHA1:
		return &Hasher{name: SHA1, newHash: sha1.New}, nil
	case SHA256:
		return &Hasher{name: SHA256, newHash: sha256.New}, nil
	default:
		return nil, fmt.Errorf("unsupported content hash %q", name)
	}
}

// Name returns the algorithm name.
func (h *Hasher) Name() string {
	return h.name
}

// Hash hashes the input and returns a hex digest.
func (h *Hasher) Hash(data []byte) (string, error) {
	d := h.newHash()
	if _, err := d.Write(data); err != nil {
		return "", fmt.Errorf("%s write: %w", h.name, err)
	}
	return hex.EncodeToString(d.Sum(nil)), nil
}
