// Package object holds the storage key scheme shared by every object backend.
package object

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"companion-backend/internal/shared/util"
)

// DefaultExtension is used when the uploaded file name has none.
const DefaultExtension = "jpg"

// KeyGen builds object keys of the form "{userId}/{millis}-{random}.{ext}".
type KeyGen struct {
	Now    func() time.Time
	Random func() string
}

// Key returns a fresh key for userID. The extension comes from fileName.
func (g KeyGen) Key(userID, fileName string) string {
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	random := RandomID
	if g.Random != nil {
		random = g.Random
	}
	ext := util.FileExtension(fileName, DefaultExtension)
	return fmt.Sprintf("%s/%d-%s.%s", userID, now().UnixMilli(), random(), ext)
}

// RandomID returns a short random token for object keys.
func RandomID() string {
	var b [6]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b[:])
}

// ValidKey rejects empty keys and path traversal.
func ValidKey(key string) bool {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return false
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return false
		}
	}
	return true
}
