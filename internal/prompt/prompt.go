// Package prompt renders the model prompts and response schemas used by the
// verification loops.
package prompt

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/TejasGadi/chess-cognify-ai-sub000/internal/board"
	"github.com/TejasGadi/chess-cognify-ai-sub000/internal/claim"
	"github.com/TejasGadi/chess-cognify-ai-sub000/internal/llm"
)

const extractionSystem = `You read chess positions. List every piece on the board, grouped by color and piece type, using lowercase square names.
Use both encodings you are given and make sure they agree before answering. Never add a piece that is not shown.
Answer only with JSON matching the schema.`

const extractionText = `Position diagram (uppercase = White, lowercase = Black, "." = empty):
{{.Grid}}
FEN: {{.FEN}}
Side to move: {{.ActiveColor}}
{{- if .LastMove}}
Last move played: {{.LastMove}}
{{- end}}
{{- if .Discrepancies}}

Your previous answer was wrong. These are the exact problems:
{{- range .Discrepancies}}
- {{.}}
{{- end}}

The verified piece list is:
{{.Correction}}
Reconcile your answer with the verified list square by square. Do not guess again from scratch.
{{- else if .PreviousError}}

Your previous answer could not be used ({{.PreviousError}}). Answer again with valid JSON only.
{{- end}}`

const explanationSystem = `You are a chess coach writing short move commentary for a game review.
Only mention pieces and squares that appear in the verified piece list. Only mention moves that are legal in the given position.
Keep it under {{.MaxWords}} words. Answer only with JSON matching the schema.`

const explanationText = `Move {{.MoveNumber}}{{if eq .Mover "black"}}...{{else}}.{{end}} {{.Played}} by {{.Mover}} was classified as {{.Label}} (centipawn loss {{.CentipawnLoss}}).
Engine evaluation before the move: {{.EvalBefore}}; after the move: {{.EvalAfter}} (White's perspective).
{{- if .Best}}
The engine preferred {{.Best}}{{if .BestLine}} with the line {{.BestLine}}{{end}}.
{{- end}}

Verified piece list after the move:
{{.PieceList}}
FEN after the move: {{.FEN}}
{{- if .Discrepancies}}

An audit rejected your previous draft:
{{- range .Discrepancies}}
- {{.}}
{{- end}}
Write a new explanation that fixes every problem above.
{{- end}}

Explain in plain language why {{.Played}} was {{article .Label}} {{lower .Label}}{{if .Best}} and what {{.Best}} achieves instead{{end}}.`

const auditSystem = `You audit chess commentary for factual errors. Be strict.
Report (a) every piece-on-square statement that is not in the verified piece list and (b) every move mentioned that is not legal from the stated position.
Answer only with JSON matching the schema.`

const auditText = `Commentary to audit:
"""
{{.Explanation}}
"""

Move context: {{.Mover}} played {{.Played}}{{if .Best}}; the engine preferred {{.Best}}{{end}}.
Position before the move (FEN): {{.FENBefore}}
Legal moves in that position: {{join .LegalMoves ", "}}

Verified piece list after the move:
{{.PieceList}}

Set is_valid to false if you find any problem, and list each problem as one discrepancy.`

var funcs = template.FuncMap{
	"join":  strings.Join,
	"lower": strings.ToLower,
	"article": func(s string) string {
		if s != "" && strings.ContainsRune("AEIOUaeiou", rune(s[0])) {
			return "an"
		}
		return "a"
	},
}

var (
	extractionTmpl  = template.Must(template.New("extraction").Funcs(funcs).Parse(extractionText))
	explanationSys  = template.Must(template.New("explanationSystem").Funcs(funcs).Parse(explanationSystem))
	explanationTmpl = template.Must(template.New("explanation").Funcs(funcs).Parse(explanationText))
	auditTmpl       = template.Must(template.New("audit").Funcs(funcs).Parse(auditText))
)

// Extraction holds the inputs of a position extraction prompt. Discrepancies and
// Correction are only set on retries.
type Extraction struct {
	Grid          string
	FEN           string
	ActiveColor   string
	LastMove      string
	Discrepancies []string
	Correction    string
	PreviousError string
}

// NewExtraction fills the redundant encodings of p.
func NewExtraction(p board.Position, lastMove string) Extraction {
	return Extraction{
		Grid:        p.Grid(),
		FEN:         p.FEN(),
		ActiveColor: p.Turn().String(),
		LastMove:    lastMove,
	}
}

// Request renders the extraction call.
func (e Extraction) Request() (llm.Request, error) {
	text, err := render(extractionTmpl, e)
	if err != nil {
		return llm.Request{}, err
	}
	return llm.Request{
		Name:   "position_extraction",
		Tier:   llm.Reasoning,
		System: extractionSystem,
		Prompt: text,
		Schema: ClaimSchema,
	}, nil
}

// Explanation holds the inputs of a move commentary prompt.
type Explanation struct {
	MoveNumber    int
	Mover         string
	Played        string
	Best          string
	BestLine      string
	Label         string
	CentipawnLoss int
	EvalBefore    string
	EvalAfter     string
	PieceList     string
	FEN           string
	MaxWords      int
	Discrepancies []string
}

// Request renders the generation call.
func (e Explanation) Request() (llm.Request, error) {
	if e.MaxWords == 0 {
		e.MaxWords = 100
	}
	sys, err := render(explanationSys, e)
	if err != nil {
		return llm.Request{}, err
	}
	text, err := render(explanationTmpl, e)
	if err != nil {
		return llm.Request{}, err
	}
	return llm.Request{
		Name:        "move_explanation",
		Tier:        llm.Fast,
		System:      sys,
		Prompt:      text,
		Schema:      ExplanationSchema,
		Temperature: 0.4,
	}, nil
}

// Audit holds the inputs of an explanation audit prompt.
type Audit struct {
	Explanation string
	Mover       string
	Played      string
	Best        string
	FENBefore   string
	LegalMoves  []string
	PieceList   string
}

// Request renders the audit call.
func (a Audit) Request() (llm.Request, error) {
	text, err := render(auditTmpl, a)
	if err != nil {
		return llm.Request{}, err
	}
	return llm.Request{
		Name:   "explanation_audit",
		Tier:   llm.Reasoning,
		System: auditSystem,
		Prompt: text,
		Schema: AuditSchema,
	}, nil
}

// PieceList renders a claim as one line per color, e.g.
// "White: king e1; queen d1; rook a1, h1".
func PieceList(c claim.Claim) string {
	var b strings.Builder
	for _, color := range []board.Color{board.White, board.Black} {
		var parts []string
		for _, t := range board.PieceTypes {
			if sq := c.Squares(color, t); len(sq) > 0 {
				parts = append(parts, fmt.Sprintf("%s %s", t, strings.Join(sq, ", ")))
			}
		}
		name := color.String()
		fmt.Fprintf(&b, "%s%s: %s\n", strings.ToUpper(name[:1]), name[1:], strings.Join(parts, "; "))
	}
	fmt.Fprintf(&b, "Side to move: %s\n", c.ActiveColor)
	return b.String()
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", t.Name(), err)
	}
	return buf.String(), nil
}
