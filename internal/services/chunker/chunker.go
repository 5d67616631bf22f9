package chunker

import (
	"bytes"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"

	"github.com/ternarybob/liber/internal/common"
	"github.com/ternarybob/liber/internal/models"
)

// Chunker splits raw book text into retrieval-sized chunks with stable
// identity and structural metadata. Splitting is deterministic: byte-identical
// input always yields identical chunk boundaries and IDs, which is what makes
// idempotent re-ingestion detectable.
type Chunker struct {
	chunkSize    int // target tokens per chunk (1 token ~= 1 word)
	chunkOverlap int // tokens shared between consecutive chunks within a unit
	minChunkSize int // trailing remainders below this merge backward
	parser       parser.Parser
	logger       arbor.ILogger
}

// Request describes one source file to chunk. StartPosition lets the caller
// keep positions monotonic and gap-free across a book's files.
type Request struct {
	BookID        string
	SourceFile    string
	Text          string
	StartPosition int
}

// structuralUnit is a run of text under one chapter/section heading. Overlap
// never crosses unit boundaries, so a chapter's chunks are never polluted
// with a neighboring chapter's content.
type structuralUnit struct {
	text    string
	chapter *string
	section *string
}

// New creates a chunker from ingestion configuration.
func New(cfg *common.IngestionConfig, logger arbor.ILogger) *Chunker {
	return &Chunker{
		chunkSize:    cfg.ChunkSize,
		chunkOverlap: cfg.ChunkOverlap,
		minChunkSize: cfg.MinChunkSize,
		parser:       goldmark.New().Parser(),
		logger:       logger,
	}
}

// Chunk splits a source file into an ordered sequence of chunks.
func (c *Chunker) Chunk(req *Request) []*models.Chunk {
	units := c.structuralUnits(req.Text)

	now := time.Now()
	position := req.StartPosition
	var chunks []*models.Chunk

	for _, unit := range units {
		for _, windowText := range c.windows(unit.text) {
			chunk := &models.Chunk{
				ID:         common.ChunkID(req.BookID, position, windowText),
				BookID:     req.BookID,
				Text:       windowText,
				SourceFile: req.SourceFile,
				Chapter:    unit.chapter,
				Section:    unit.section,
				Position:   position,
				TokenCount: estimateTokens(windowText),
				CreatedAt:  now,
			}
			chunks = append(chunks, chunk)
			position++
		}
	}

	c.logger.Debug().
		Str("source_file", req.SourceFile).
		Int("units", len(units)).
		Int("chunks", len(chunks)).
		Msg("Chunked source file")

	return chunks
}

// structuralUnits splits text along markdown heading boundaries. Level-1
// headings carry chapter titles, level-2 headings section titles; deeper
// headings stay inside their unit. Heading lines remain part of their unit so
// concatenating unit texts reconstructs the source.
func (c *Chunker) structuralUnits(rawText string) []structuralUnit {
	src := []byte(rawText)
	doc := c.parser.Parse(text.NewReader(src))

	type headingMark struct {
		level     int
		title     string
		lineStart int
	}

	var marks []headingMark
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		heading, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		if heading.Level > 2 || heading.Lines().Len() == 0 {
			return ast.WalkSkipChildren, nil
		}
		seg := heading.Lines().At(0)
		marks = append(marks, headingMark{
			level:     heading.Level,
			title:     strings.TrimSpace(string(src[seg.Start:seg.Stop])),
			lineStart: bytes.LastIndexByte(src[:seg.Start], '\n') + 1,
		})
		return ast.WalkSkipChildren, nil
	})

	var units []structuralUnit
	appendUnit := func(body string, chapter, section *string) {
		if strings.TrimSpace(body) == "" {
			return
		}
		units = append(units, structuralUnit{text: body, chapter: chapter, section: section})
	}

	if len(marks) == 0 {
		appendUnit(rawText, nil, nil)
		return units
	}

	// Text before the first heading has no structural metadata.
	appendUnit(string(src[:marks[0].lineStart]), nil, nil)

	var currentChapter *string
	for i, mark := range marks {
		end := len(src)
		if i+1 < len(marks) {
			end = marks[i+1].lineStart
		}

		var chapter, section *string
		if mark.level == 1 {
			title := mark.title
			currentChapter = &title
			chapter = currentChapter
		} else {
			title := mark.title
			chapter = currentChapter
			section = &title
		}

		appendUnit(string(src[mark.lineStart:end]), chapter, section)
	}

	return units
}

// windows splits a structural unit into fixed-size overlapping token windows.
// A unit shorter than the chunk size becomes one window; a trailing remainder
// below the minimum merges backward into the previous window unless it is the
// unit's only window.
func (c *Chunker) windows(unitText string) []string {
	words := strings.Fields(unitText)
	if len(words) == 0 {
		return nil
	}

	step := c.chunkSize - c.chunkOverlap
	if step <= 0 {
		step = c.chunkSize
	}

	type span struct{ start, end int }
	var spans []span
	for start := 0; start < len(words); start += step {
		end := start + c.chunkSize
		if end > len(words) {
			end = len(words)
		}
		// A final window fully contained in the previous one adds nothing.
		if start > 0 && end-start <= c.chunkOverlap {
			break
		}
		spans = append(spans, span{start, end})
		if end == len(words) {
			break
		}
	}

	if n := len(spans); n > 1 && spans[n-1].end-spans[n-1].start < c.minChunkSize {
		spans[n-2].end = len(words)
		spans = spans[:n-1]
	}

	out := make([]string, len(spans))
	for i, sp := range spans {
		out[i] = strings.Join(words[sp.start:sp.end], " ")
	}
	return out
}

// estimateTokens counts whitespace-delimited words, the same unit the window
// splitter uses for chunk sizing.
func estimateTokens(text string) int {
	return len(strings.Fields(text))
}
