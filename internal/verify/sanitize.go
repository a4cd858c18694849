package verify

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/TejasGadi/chess-cognify-ai-sub000/internal/board"
	"github.com/TejasGadi/chess-cognify-ai-sub000/internal/claim"
)

// MaxExplanationRunes is the length ceiling for commentary.
const MaxExplanationRunes = 700

var (
	// "[invalid]", "[INVALID: no knight on f3]", "[invalid claim]"
	invalidMarkerRegex = regexp.MustCompile(`(?i)\s*\[[^\]]*invalid[^\]]*\]`)
	// "white knight on f3", "the bishop at c4", "Rook on a1"
	mentionRegex    = regexp.MustCompile(`(?i)\b(?:(white|black)(?:'s)?\s+)?(king|queen|rook|bishop|knight|pawn)\s+(?:on|at)\s+([a-h][1-8])\b`)
	sentenceRegex   = regexp.MustCompile(`[^.!?]+[.!?]*`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
)

// Mention is a "<piece> on <square>" statement found in commentary.
type Mention struct {
	Color  board.Color // NoColor when the text does not say
	Type   board.PieceType
	Square string
	Text   string
}

// FindMentions lists every piece-on-square statement in text.
func FindMentions(text string) []Mention {
	var out []Mention
	for _, m := range mentionRegex.FindAllStringSubmatch(text, -1) {
		mention := Mention{Square: strings.ToLower(m[3]), Text: m[0]}
		switch strings.ToLower(m[1]) {
		case "white":
			mention.Color = board.White
		case "black":
			mention.Color = board.Black
		}
		for _, t := range board.PieceTypes {
			if t.String() == strings.ToLower(m[2]) {
				mention.Type = t
			}
		}
		out = append(out, mention)
	}
	return out
}

// supported reports whether any of the claims puts the mentioned piece there.
func (m Mention) supported(claims ...claim.Claim) bool {
	colors := []board.Color{board.White, board.Black}
	if m.Color != board.NoColor {
		colors = []board.Color{m.Color}
	}
	for _, c := range claims {
		for _, color := range colors {
			if c.Has(color, m.Type, m.Square) {
				return true
			}
		}
	}
	return false
}

// UnsupportedMentions returns the mentions none of the claims back up. Commentary
// may describe the position before or after the move, so both are usually passed.
func UnsupportedMentions(text string, claims ...claim.Claim) []Mention {
	var out []Mention
	for _, m := range FindMentions(text) {
		if !m.supported(claims...) {
			out = append(out, m)
		}
	}
	return out
}

func (m Mention) discrepancy() string {
	return fmt.Sprintf("explanation mentions %q but no such piece is on %s", m.Text, m.Square)
}

// TruncateRunes cuts s to at most max runes, ellipsis included, backing off to
// the last word boundary when the cut lands inside a word.
func TruncateRunes(s string, max int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	if max <= len(ellipsis) {
		return string(runes[:max])
	}
	keep := max - len(ellipsis)
	cut := string(runes[:keep])
	if !unicode.IsSpace(runes[keep]) {
		if i := strings.LastIndexAny(cut, " \n\t"); i > 0 {
			cut = cut[:i]
		}
	}
	return strings.TrimRight(cut, " ,;:-") + ellipsis
}

const ellipsis = "..."

// Sanitize strips bracketed "invalid" markers and drops every sentence that
// contains one of the flagged mentions.
func Sanitize(text string, flagged []Mention) string {
	text = invalidMarkerRegex.ReplaceAllString(text, "")
	if len(flagged) > 0 {
		var kept []string
		for _, sentence := range sentenceRegex.FindAllString(text, -1) {
			drop := false
			for _, m := range FindMentions(sentence) {
				for _, f := range flagged {
					if strings.EqualFold(m.Text, f.Text) {
						drop = true
					}
				}
			}
			if !drop {
				kept = append(kept, strings.TrimSpace(sentence))
			}
		}
		text = strings.Join(kept, " ")
	}
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(text, " "))
}
