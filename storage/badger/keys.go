package badger

import (
	"encoding/binary"

	"github.com/poiesic/mboxsearch/core"
)

// Key prefixes for different data types
const (
	embeddingPrefix = "emb:"
)

// makeEmbeddingKey generates a key for a cached embedding by content key.
// Format: prefix + 8-byte big-endian key
func makeEmbeddingKey(key core.ID) []byte {
	buf := make([]byte, len(embeddingPrefix)+8)
	offset := copy(buf, embeddingPrefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(key))
	return buf
}
