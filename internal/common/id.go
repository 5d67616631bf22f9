package common

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
)

// BookID derives a stable book identifier from the absolute source path.
// Re-ingesting the same source always resolves to the same book.
func BookID(sourcePath string) string {
	abs, err := filepath.Abs(sourcePath)
	if err != nil {
		abs = sourcePath
	}
	sum := sha256.Sum256([]byte(abs))
	return hex.EncodeToString(sum[:])[:32]
}

// ChunkID derives a stable chunk identifier from the owning book, the chunk's
// position within the book, and a digest of its text. IDs survive
// re-ingestion only when the content at that position is unchanged.
func ChunkID(bookID string, position int, text string) string {
	content := sha256.Sum256([]byte(text))
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d:%s", bookID, position, hex.EncodeToString(content[:]))))
	return hex.EncodeToString(sum[:])[:32]
}

// VectorPointID derives the deterministic UUID used as the vector index point
// ID for a chunk. Qdrant requires UUID (or integer) point IDs.
func VectorPointID(chunkID string) string {
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(chunkID)).String()
}
