package feature

import (
	"crypto/md5"
	"encoding/binary"
)

// Bucket maps a feature key and an identifier to a stable bucket in [0,99].
// It hashes "featureKey:identifier" with MD5 and reduces the first four bytes,
// read as a big-endian uint32, modulo 100.
func Bucket(featureKey, identifier string) int {
	sum := md5.Sum([]byte(featureKey + ":" + identifier))
	return int(binary.BigEndian.Uint32(sum[:4]) % 100)
}
