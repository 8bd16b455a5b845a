package badger

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/poiesic/tariff/core"
)

// Key prefixes for different data types
const (
	precedentPrefix     = "precrec"
	precedentDatePrefix = "precrecd"
	precedentCodePrefix = "precrecc"
)

// makePrecedentKey generates a key for a precedent by ID.
func makePrecedentKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", precedentPrefix, id))
}

// makeDateKey generates a composite key for the creation-time index.
// Format: prefix:timestamp:id
func makeDateKey(timestamp time.Time, id core.ID) []byte {
	prefix := precedentDatePrefix + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 16 // 8 bytes for timestamp + 8 bytes for ID
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(timestamp.UnixMicro()))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makePartialDateKey generates a partial key for date range queries.
// Format: prefix:timestamp
func makePartialDateKey(timestamp time.Time) []byte {
	prefix := precedentDatePrefix + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 8 // 8 bytes for timestamp
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(timestamp.UnixMicro()))
	return buf
}

// makeCodeKey generates a composite key for the tariff-code index.
// Format: prefix:code:id
func makeCodeKey(code string, id core.ID) []byte {
	partial := makePartialCodeKey(code)
	buf := make([]byte, len(partial)+8)
	offset := copy(buf, partial)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makePartialCodeKey generates a partial key for code lookups.
// Format: prefix:code:
func makePartialCodeKey(code string) []byte {
	return []byte(precedentCodePrefix + ":" + code + ":")
}
