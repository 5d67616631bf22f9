package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/liber/internal/common"
)

func newTestChunker(chunkSize, overlap, minSize int) *Chunker {
	cfg := &common.IngestionConfig{
		ChunkSize:    chunkSize,
		ChunkOverlap: overlap,
		MinChunkSize: minSize,
	}
	return New(cfg, common.GetLogger())
}

// sampleBook generates a two-chapter markdown book with roughly wordsPerChapter
// words in each chapter body.
func sampleBook(wordsPerChapter int) string {
	var b strings.Builder
	for ch := 1; ch <= 2; ch++ {
		fmt.Fprintf(&b, "# Chapter %d\n\n", ch)
		for i := 0; i < wordsPerChapter; i++ {
			fmt.Fprintf(&b, "word%d ", i)
			if i%15 == 14 {
				b.WriteString("\n")
			}
		}
		b.WriteString("\n\n")
	}
	return b.String()
}

func TestChunkDeterminism(t *testing.T) {
	c := newTestChunker(500, 50, 100)
	req := &Request{
		BookID:     "book-a",
		SourceFile: "chapter1.md",
		Text:       sampleBook(2000),
	}

	first := c.Chunk(req)
	second := c.Chunk(req)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
		assert.Equal(t, first[i].Text, second[i].Text)
		assert.Equal(t, first[i].Position, second[i].Position)
	}
}

func TestChunkPositionsContiguous(t *testing.T) {
	c := newTestChunker(500, 50, 100)
	chunks := c.Chunk(&Request{
		BookID:        "book-a",
		SourceFile:    "book.md",
		Text:          sampleBook(2000),
		StartPosition: 7,
	})

	require.NotEmpty(t, chunks)
	for i, chunk := range chunks {
		assert.Equal(t, 7+i, chunk.Position, "positions must be monotonic and gap-free")
	}
}

func TestChunkTwoChapterScenario(t *testing.T) {
	// 2 chapters, ~4000 words total, chunk_size=500, overlap=50.
	c := newTestChunker(500, 50, 100)
	chunks := c.Chunk(&Request{
		BookID:     "book-a",
		SourceFile: "book.md",
		Text:       sampleBook(2000),
	})

	assert.GreaterOrEqual(t, len(chunks), 8)
	assert.LessOrEqual(t, len(chunks), 12)
	for _, chunk := range chunks {
		require.NotNil(t, chunk.Chapter, "every chunk must carry chapter metadata")
		assert.True(t, strings.HasPrefix(*chunk.Chapter, "Chapter "))
	}
}

func TestChunkCoverage(t *testing.T) {
	// Concatenating chunk words minus per-boundary overlaps must reconstruct
	// the structural unit with no gaps.
	c := newTestChunker(100, 10, 20)
	text := strings.Repeat("alpha beta gamma delta epsilon ", 50) // 250 words, no headings

	chunks := c.Chunk(&Request{BookID: "b", SourceFile: "f.txt", Text: text})
	require.NotEmpty(t, chunks)

	var rebuilt []string
	for i, chunk := range chunks {
		words := strings.Fields(chunk.Text)
		if i == 0 {
			rebuilt = append(rebuilt, words...)
		} else {
			rebuilt = append(rebuilt, words[10:]...)
		}
	}

	assert.Equal(t, strings.Fields(text), rebuilt)
}

func TestChunkShortUnitBecomesSingleChunk(t *testing.T) {
	c := newTestChunker(500, 50, 100)
	chunks := c.Chunk(&Request{
		BookID:     "b",
		SourceFile: "f.md",
		Text:       "# Tiny\n\nJust a few words here.",
	})

	require.Len(t, chunks, 1)
	require.NotNil(t, chunks[0].Chapter)
	assert.Equal(t, "Tiny", *chunks[0].Chapter)
}

func TestChunkTrailingRemainderMergesBackward(t *testing.T) {
	// 520 words with size 500/overlap 50: the 70-word tail is below the
	// 100-word minimum and must merge into the previous chunk.
	c := newTestChunker(500, 50, 100)
	var b strings.Builder
	for i := 0; i < 520; i++ {
		fmt.Fprintf(&b, "w%d ", i)
	}

	chunks := c.Chunk(&Request{BookID: "b", SourceFile: "f.txt", Text: b.String()})

	require.Len(t, chunks, 1)
	assert.Equal(t, 520, len(strings.Fields(chunks[0].Text)))
}

func TestChunkSectionMetadata(t *testing.T) {
	text := "# The Book\n\nIntro paragraph for the chapter.\n\n" +
		"## First Section\n\nSection one body text goes here.\n\n" +
		"## Second Section\n\nSection two body text goes here.\n"

	c := newTestChunker(500, 50, 10)
	chunks := c.Chunk(&Request{BookID: "b", SourceFile: "f.md", Text: text})

	require.Len(t, chunks, 3)

	require.NotNil(t, chunks[0].Chapter)
	assert.Equal(t, "The Book", *chunks[0].Chapter)
	assert.Nil(t, chunks[0].Section)

	require.NotNil(t, chunks[1].Section)
	assert.Equal(t, "First Section", *chunks[1].Section)
	require.NotNil(t, chunks[1].Chapter)
	assert.Equal(t, "The Book", *chunks[1].Chapter)

	require.NotNil(t, chunks[2].Section)
	assert.Equal(t, "Second Section", *chunks[2].Section)
}

func TestChunkPlainTextHasNoStructure(t *testing.T) {
	c := newTestChunker(500, 50, 10)
	chunks := c.Chunk(&Request{
		BookID:     "b",
		SourceFile: "notes.txt",
		Text:       "Plain text with no headings at all, just prose.",
	})

	require.Len(t, chunks, 1)
	assert.Nil(t, chunks[0].Chapter)
	assert.Nil(t, chunks[0].Section)
}

func TestChunkIDChangesWithContent(t *testing.T) {
	assert.NotEqual(t,
		common.ChunkID("book", 0, "some text"),
		common.ChunkID("book", 0, "other text"))
	assert.NotEqual(t,
		common.ChunkID("book", 0, "some text"),
		common.ChunkID("book", 1, "some text"))
}
