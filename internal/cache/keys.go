package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// DocumentKey returns the key a service's metadata document is cached under.
// Service names are hashed so arbitrary URLs make valid, bounded keys.
func DocumentKey(serviceName string) string {
	name := strings.TrimSpace(serviceName)
	if name != "" && !strings.HasSuffix(name, "/") {
		name += "/"
	}
	hash := sha256.Sum256([]byte(name))
	return "metadata:" + hex.EncodeToString(hash[:16])
}

