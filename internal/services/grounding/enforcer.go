package grounding

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/liber/internal/common"
	"github.com/ternarybob/liber/internal/interfaces"
	"github.com/ternarybob/liber/internal/models"
)

// CitationExcerptLength caps the excerpt copied into a citation.
const CitationExcerptLength = 200

var markerPattern = regexp.MustCompile(`\[(\d+)\]`)

// attemptState is the enforcer's position in the generate/validate loop.
type attemptState int

const (
	stateFirstAttempt attemptState = iota
	stateRetry
)

// Enforcer generates answers constrained to retrieved candidates and refuses
// when the model strays. One validation failure earns one stricter retry; a
// second failure yields the refusal answer, never the ungrounded text.
type Enforcer struct {
	llm         interfaces.LLMService
	temperature float32
	timeout     time.Duration
	logger      arbor.ILogger
}

// NewEnforcer creates a grounding enforcer over the given generation gateway.
func NewEnforcer(llm interfaces.LLMService, cfg *common.GroundingConfig, logger arbor.ILogger) *Enforcer {
	return &Enforcer{
		llm:         llm,
		temperature: cfg.Temperature,
		timeout:     common.ParseDurationOr(cfg.RequestTimeout, 45*time.Second),
		logger:      logger,
	}
}

// Answer produces a grounded, cited answer from the candidates, or the
// refusal answer. With no candidates it refuses without calling the model.
func (e *Enforcer) Answer(ctx context.Context, query string, candidates []models.RetrievedCandidate, mode models.ChatMode) (*models.Answer, error) {
	answer := &models.Answer{
		Mode:            mode,
		ChunksRetrieved: len(candidates),
		ModelUsed:       e.llm.ModelName(),
		Citations:       []models.Citation{},
	}

	if len(candidates) == 0 {
		answer.Text = RefusalAnswer
		return answer, nil
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	contextBlocks := buildContextBlocks(candidates)

	state := stateFirstAttempt
	for {
		system := systemPromptStrict
		if state == stateRetry {
			system = systemPromptRetry
		}

		text, err := e.llm.Generate(ctx, &interfaces.GenerateRequest{
			SystemInstruction: system,
			ContextBlocks:     contextBlocks,
			Query:             query,
			Temperature:       e.temperature,
		})
		if err != nil {
			return nil, models.WrapError(models.ErrUpstreamUnavailable, err, "generation failed")
		}

		text = strings.TrimSpace(text)
		if isRefusal(text) {
			answer.Text = RefusalAnswer
			return answer, nil
		}

		markers, valid := validateMarkers(text, len(candidates))
		if valid {
			answer.Text = text
			answer.Citations = buildCitations(markers, candidates, mode)
			return answer, nil
		}

		if state == stateRetry {
			e.logger.Warn().
				Str("mode", string(mode)).
				Msg("Grounding validation failed twice, refusing")
			answer.Text = RefusalAnswer
			return answer, nil
		}

		e.logger.Debug().Str("mode", string(mode)).Msg("Grounding validation failed, retrying with stricter prompt")
		state = stateRetry
	}
}

// HealthCheck verifies the generation gateway is reachable.
func (e *Enforcer) HealthCheck(ctx context.Context) error {
	return e.llm.HealthCheck(ctx)
}

// isRefusal matches the refusal answer, tolerating surrounding punctuation
// the model sometimes adds.
func isRefusal(text string) bool {
	trimmed := strings.Trim(text, `"' `)
	return strings.EqualFold(trimmed, RefusalAnswer)
}

// validateMarkers extracts citation markers in first-appearance order and
// checks that the answer carries at least one marker and that every marker
// references a supplied candidate. Returns the ordered distinct marker list.
func validateMarkers(text string, candidateCount int) ([]int, bool) {
	matches := markerPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil, false
	}

	seen := make(map[int]bool)
	var ordered []int
	for _, m := range matches {
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 || n > candidateCount {
			return nil, false
		}
		if !seen[n] {
			seen[n] = true
			ordered = append(ordered, n)
		}
	}
	return ordered, true
}

// buildCitations maps cited markers to citation records in the order the
// markers first appear in the answer. In selected-text mode the highlighted
// passage leads the list whether or not the model cited it, so the caller can
// always find the selection at index zero with its reserved source label.
func buildCitations(markers []int, candidates []models.RetrievedCandidate, mode models.ChatMode) []models.Citation {
	if mode == models.ModeSelectedText && candidates[0].IsSelection() {
		markers = selectionFirst(markers)
	}
	citations := make([]models.Citation, 0, len(markers))
	for _, marker := range markers {
		c := candidates[marker-1]
		citations = append(citations, models.Citation{
			ChunkID: c.ChunkID,
			Text:    excerpt(c.Text),
			Source:  c.SourceFile,
			Chapter: c.Chapter,
			Section: c.Section,
			Score:   c.Score,
		})
	}
	return citations
}

// selectionFirst moves marker 1 (the selection pseudo-chunk) to the front,
// inserting it when the model never cited it.
func selectionFirst(markers []int) []int {
	ordered := make([]int, 0, len(markers)+1)
	ordered = append(ordered, 1)
	for _, m := range markers {
		if m != 1 {
			ordered = append(ordered, m)
		}
	}
	return ordered
}

// excerpt truncates chunk text for citation payloads, never splitting a rune.
func excerpt(text string) string {
	if len(text) <= CitationExcerptLength {
		return text
	}
	cut := CitationExcerptLength
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}
