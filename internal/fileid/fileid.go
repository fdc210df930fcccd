// Package fileid derives deterministic document IDs for files picked up from inbox directories.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
)

const prefix = "file:"

// DocumentID returns a stable document ID for a file owned by organizationID.
// The same organization and path always yield the same ID, so a rewritten file replaces
// its earlier index entry; the same path under another organization yields a different ID.
func DocumentID(organizationID, absolutePath string) string {
	h := sha256.New()
	h.Write([]byte(organizationID))
	h.Write([]byte{0})
	h.Write([]byte(filepath.Clean(absolutePath)))
	return prefix + hex.EncodeToString(h.Sum(nil))
}
