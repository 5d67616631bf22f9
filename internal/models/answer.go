package models

// ChatMode selects the retrieval behavior for a question.
type ChatMode string

const (
	ModeFullBook     ChatMode = "full_book"
	ModeSelectedText ChatMode = "selected_text"
)

// Citation points a generated claim back to the chunk that supports it.
type Citation struct {
	ChunkID string  `json:"chunk_id"`
	Text    string  `json:"text"`
	Source  string  `json:"source"`
	Chapter *string `json:"chapter"`
	Section *string `json:"section"`
	Score   float64 `json:"score"`
}

// Answer is the grounded response to a reader question. Answers are returned
// to the caller and never persisted.
type Answer struct {
	Text            string     `json:"answer"`
	Citations       []Citation `json:"citations"`
	Mode            ChatMode   `json:"mode"`
	ChunksRetrieved int        `json:"chunks_retrieved"`
	LatencyMS       float64    `json:"latency_ms"`
	ModelUsed       string     `json:"model_used"`
}
