// Package workspace derives stable storage identities from user-supplied
// workspace keys. The key itself is a low-grade shared secret and is never
// persisted; only its digest addresses storage.
package workspace

import (
	"crypto/sha256"
	"encoding/hex"
)

// IDLength is the number of hex characters kept from the key digest.
const IDLength = 16

// Resolve maps a workspace key to its storage id: the SHA-256 digest of the
// key, hex encoded and truncated to IDLength characters. The same key always
// resolves to the same id; different keys collide only by genuine digest
// collision. An empty key resolves to the empty id, which every dependent
// operation treats as "no workspace".
func Resolve(workspaceKey string) string {
	if workspaceKey == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(workspaceKey))
	return hex.EncodeToString(sum[:])[:IDLength]
}
