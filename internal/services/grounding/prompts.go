package grounding

import (
	"fmt"
	"strings"

	"github.com/ternarybob/liber/internal/models"
)

// RefusalAnswer is the exact refusal string returned whenever a question
// cannot be answered from the supplied book content. Clients match on it.
const RefusalAnswer = "I cannot answer this from the book content provided."

const systemPromptStrict = `You are a reading assistant that answers questions using ONLY the book excerpts provided below.

Rules:
1. Answer using ONLY the information in the provided excerpts. Do not use outside knowledge.
2. After each claim, cite the excerpt that supports it using its marker, e.g. [1] or [2].
3. Every factual statement in your answer must carry at least one citation marker.
4. If the excerpts do not contain the information needed to answer, respond with exactly: "` + RefusalAnswer + `"
5. Do not speculate, infer beyond the text, or fill gaps with general knowledge.`

const systemPromptRetry = systemPromptStrict + `

Your previous answer cited excerpts that were not provided or contained uncited claims. This time, cite a provided marker after EVERY sentence, and if you cannot support every sentence from the excerpts, respond with exactly: "` + RefusalAnswer + `"`

// buildContextBlocks renders candidates as numbered excerpt blocks. Markers
// are 1-based and match the citation markers the model is told to emit.
func buildContextBlocks(candidates []models.RetrievedCandidate) string {
	var b strings.Builder
	for i, c := range candidates {
		fmt.Fprintf(&b, "[%d] ", i+1)
		if c.IsSelection() {
			b.WriteString("(reader-selected passage)")
		} else {
			b.WriteString(c.SourceFile)
			if c.Chapter != nil {
				fmt.Fprintf(&b, ", %s", *c.Chapter)
			}
			if c.Section != nil {
				fmt.Fprintf(&b, ", %s", *c.Section)
			}
		}
		b.WriteString("\n")
		b.WriteString(c.Text)
		b.WriteString("\n\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
