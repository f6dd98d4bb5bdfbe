// Package fingerprint derives stable identities for problem records.
package fingerprint

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

// Derive returns the deduplication id for a (title, domain) pair: the first
// 8 hex characters of the MD5 of the normalized concatenation. Normalization
// is lowercase + trim, so retitling whitespace or casing does not create a
// new identity. Existing problem databases keep their ids.
func Derive(title, domain string) string {
	content := strings.ToLower(strings.TrimSpace(title)) + "_" + strings.ToLower(strings.TrimSpace(domain))
	sum := md5.Sum([]byte(content))
	return hex.EncodeToString(sum[:])[:8]
}
