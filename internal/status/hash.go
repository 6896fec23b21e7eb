package status

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// DomainDocument separates document hashes from any other SHA-256 use.
const DomainDocument = "ratchet/status/v1"

// Hash returns a content-addressed identity for d.
// Format: hex(SHA256(domain + 0x00 + compact sorted JSON)).
// Identifiers are already NFC normalized, so equal documents hash equal.
func Hash(d *Document) (string, error) {
	data, err := json.Marshal(struct {
		Tests map[string]TestState `json:"tests"`
	}{Tests: d.tests})
	if err != nil {
		return "", fmt.Errorf("hash status document: %w", err)
	}
	h := sha256.New()
	h.Write([]byte(DomainDocument))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}
