// Package util holds small helpers shared by the store and services.
package util

import (
	"crypto/rand"
	"encoding/hex"
)

// NewID returns a random identifier such as "prj_9f2c...". The prefix
// keeps IDs self-describing in logs and notification payloads.
func NewID(prefix string) string {
	buf := make([]byte, 12)
	_, _ = rand.Read(buf)
	suffix := hex.EncodeToString(buf)
	if prefix == "" {
		return suffix
	}
	return prefix + "_" + suffix
}
