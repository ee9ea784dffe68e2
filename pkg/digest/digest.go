// Package digest computes the content hash used as the primary duplicate key.
package digest

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/zeebo/blake3"
)

const (
	MD5    = "md5"
	BLAKE3 = "blake3"
)

// Hasher turns raw bytes into a lower-case hex digest
type Hasher interface {
	Algorithm() string
	Sum(data []byte) string
}

// New returns the hasher for algorithm. An empty name selects md5, which
// keeps hashes comparable with stores written by earlier versions.
func New(algorithm string) (Hasher, error) {
	switch strings.ToLower(strings.TrimSpace(algorithm)) {
	case "", MD5:
		return md5Hasher{}, nil
	case BLAKE3:
		return blake3Hasher{}, nil
	default:
		return nil, fmt.Errorf("unsupported hash algorithm %q", algorithm)
	}
}

// Algorithms lists the supported names
func Algorithms() []string {
	return []string{MD5, BLAKE3}
}

type md5Hasher struct{}

func (md5Hasher) Algorithm() string { return MD5 }

func (md5Hasher) Sum(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

type blake3Hasher struct{}

func (blake3Hasher) Algorithm() string { return BLAKE3 }

func (blake3Hasher) Sum(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
