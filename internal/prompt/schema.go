package prompt

import "github.com/TejasGadi/chess-cognify-ai-sub000/internal/llm"

func pieces(color string) *llm.Schema {
	return llm.Obj(color+" pieces by type",
		llm.P("king", llm.StringList("")),
		llm.P("queen", llm.StringList("")),
		llm.P("rook", llm.StringList("")),
		llm.P("bishop", llm.StringList("")),
		llm.P("knight", llm.StringList("")),
		llm.P("pawn", llm.StringList("")),
	)
}

// ClaimSchema is the response shape of a position extraction.
var ClaimSchema = llm.Obj("pieces on the board",
	llm.P("active_color", &llm.Schema{Type: llm.String, Enum: []string{"white", "black"}}),
	llm.P("white", pieces("white")),
	llm.P("black", pieces("black")),
)

// ExplanationSchema is the response shape of a commentary draft.
var ExplanationSchema = llm.Obj("move commentary",
	llm.P("explanation", &llm.Schema{Type: llm.String}),
)

// AuditSchema is the response shape of a commentary audit.
var AuditSchema = llm.Obj("audit verdict",
	llm.P("is_valid", &llm.Schema{Type: llm.Boolean}),
	llm.P("discrepancies", llm.StringList("one entry per problem found")),
	llm.P("confidence", &llm.Schema{Type: llm.Number}),
	llm.P("needs_revision", &llm.Schema{Type: llm.Boolean}),
)

// ExplanationResponse is the decoded commentary draft.
type ExplanationResponse struct {
	Explanation string `json:"explanation" validate:"required"`
}

// AuditResponse is the decoded commentary audit.
type AuditResponse struct {
	IsValid       bool     `json:"is_valid"`
	Discrepancies []string `json:"discrepancies"`
	Confidence    float64  `json:"confidence" validate:"min=0,max=1"`
	NeedsRevision bool     `json:"needs_revision"`
}
