// Package textfix repairs OCR noise and normalizes recognized text.
package textfix

import (
	"log/slog"
	"regexp"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
)

// Fuzzy-repair tuning. The threshold and linear best-match scan follow the
// observed behavior exactly; changing either changes which words get rewritten.
const (
	similarityThreshold = 0.7
	minRepairLength     = 3
)

var (
	spaceRunRe        = regexp.MustCompile(`[ \t]+`)
	spaceBeforePunct  = regexp.MustCompile(`[ \t]+([.,!?;:])`)
	punctThenLetterRe = regexp.MustCompile(`([.,!?;:])[ \t]*([a-zA-Z])`)
	repeatTerminalRe  = regexp.MustCompile(`(\.)\.+|(!)!+|(\?)\?+`)
	repeatClauseRe    = regexp.MustCompile(`(,),+|(;);+|(:):+`)
	doubleQuoteRe     = regexp.MustCompile("[“”\"]+")
	singleQuoteRe     = regexp.MustCompile("[‘’']+")
	blankLinesRe      = regexp.MustCompile(`\n\s*\n`)
	standaloneIRe     = regexp.MustCompile(`\bi\b`)
)

// Engine cleans and repairs recognized text. All dictionaries are loaded at
// construction and never mutated, so one Engine is safe for concurrent use.
type Engine struct {
	substitutions map[string]string
	words         []string
	wordSet       map[string]struct{}
}

// NewEngine creates an engine with the built-in dictionaries.
func NewEngine() *Engine {
	return &Engine{
		substitutions: wordSubstitutions,
		words:         commonWords,
		wordSet:       commonWordSet,
	}
}

// Clean normalizes whitespace, punctuation and capitalization. It is
// idempotent: Clean(Clean(t)) == Clean(t).
func (e *Engine) Clean(raw, sourceLang string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	text := strings.ReplaceAll(raw, "\r\n", "\n")
	text = spaceRunRe.ReplaceAllString(text, " ")
	text = fixPunctuationSpacing(text)
	text = repeatTerminalRe.ReplaceAllString(text, "$1$2$3")
	text = repeatClauseRe.ReplaceAllString(text, "$1$2$3")
	text = doubleQuoteRe.ReplaceAllString(text, `"`)
	text = singleQuoteRe.ReplaceAllString(text, "'")
	text = stripNonPrintable(text)
	text = blankLinesRe.ReplaceAllString(text, "\n")
	text = capitalizeSentences(text)
	text = standaloneIRe.ReplaceAllString(text, "I")
	return strings.TrimSpace(text)
}

// Repair fixes OCR-specific word errors: glyph confusions, the substitution
// table, then fuzzy dictionary matching. Best-effort: any internal failure
// returns the input unchanged rather than propagating.
func (e *Engine) Repair(raw, sourceLang string) (result string) {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("text repair failed, returning input unchanged", "panic", r)
			result = raw
		}
	}()

	fields := strings.Fields(raw)
	repaired := make([]string, len(fields))
	for i, token := range fields {
		repaired[i] = e.repairToken(token)
	}

	return fixPunctuationSpacing(strings.Join(repaired, " "))
}

// repairToken repairs one whitespace-delimited token, leaving surrounding
// punctuation in place.
func (e *Engine) repairToken(token string) string {
	prefix, core, suffix := splitPunctuation(token)
	if core == "" {
		return token
	}

	core = fixGlyphConfusions(core)
	lower := strings.ToLower(core)

	if sub, ok := e.substitutions[lower]; ok {
		return prefix + matchCapitalization(core, sub) + suffix
	}
	if _, known := e.wordSet[lower]; known {
		return prefix + core + suffix
	}
	if match, ok := e.findSimilarWord(lower); ok {
		return prefix + matchCapitalization(core, match) + suffix
	}
	return prefix + core + suffix
}

// findSimilarWord scans the dictionary in order for the best fuzzy match.
// Words under minRepairLength characters are never auto-corrected; the first
// candidate wins similarity ties.
func (e *Engine) findSimilarWord(word string) (string, bool) {
	if len(word) < minRepairLength {
		return "", false
	}

	best := ""
	bestScore := 0.0
	for _, candidate := range e.words {
		if len(candidate) < minRepairLength {
			continue
		}
		score := Similarity(word, candidate)
		if score > bestScore && score > similarityThreshold {
			bestScore = score
			best = candidate
		}
	}
	return best, best != ""
}

// Similarity is normalized edit distance: 1 - dist/max(len). Symmetric in its
// arguments; 1.0 means identical.
func Similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1.0 - float64(dist)/float64(max(len(a), len(b)))
}

// fixGlyphConfusions rewrites digits that OCR engines mistake for letters,
// but only in tokens that mix digits and letters. Pure numbers pass through.
func fixGlyphConfusions(core string) string {
	hasLetter, hasDigit := false, false
	for _, r := range core {
		if unicode.IsLetter(r) {
			hasLetter = true
		} else if unicode.IsDigit(r) {
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return core
	}

	out := []rune(core)
	for i, r := range out {
		if sub, ok := glyphConfusions[r]; ok {
			out[i] = sub
		}
	}
	return string(out)
}

// matchCapitalization carries the original word's leading capitalization onto
// the replacement.
func matchCapitalization(original, replacement string) string {
	if original == "" || replacement == "" {
		return replacement
	}
	first := []rune(original)[0]
	if unicode.IsUpper(first) {
		rs := []rune(replacement)
		rs[0] = unicode.ToUpper(rs[0])
		return string(rs)
	}
	return replacement
}

// splitPunctuation separates leading and trailing non-alphanumeric runs from
// the word core.
func splitPunctuation(token string) (prefix, core, suffix string) {
	rs := []rune(token)
	start := 0
	for start < len(rs) && !unicode.IsLetter(rs[start]) && !unicode.IsDigit(rs[start]) {
		start++
	}
	end := len(rs)
	for end > start && !unicode.IsLetter(rs[end-1]) && !unicode.IsDigit(rs[end-1]) {
		end--
	}
	return string(rs[:start]), string(rs[start:end]), string(rs[end:])
}

// fixPunctuationSpacing removes space before punctuation and ensures exactly
// one space between punctuation and a following letter.
func fixPunctuationSpacing(text string) string {
	text = spaceBeforePunct.ReplaceAllString(text, "$1")
	return punctThenLetterRe.ReplaceAllString(text, "$1 $2")
}

// stripNonPrintable drops characters outside printable ASCII, keeping newlines.
func stripNonPrintable(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if (r >= 0x20 && r <= 0x7E) || r == '\n' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// capitalizeSentences uppercases the first letter of the string and the first
// letter after sentence-ending punctuation.
func capitalizeSentences(text string) string {
	rs := []rune(text)
	capNext := true
	sawTerminal := false
	for i, r := range rs {
		switch {
		case r == '.' || r == '!' || r == '?':
			sawTerminal = true
		case r == ' ' || r == '\n':
			if sawTerminal {
				capNext = true
				sawTerminal = false
			}
		case unicode.IsLetter(r):
			if capNext {
				rs[i] = unicode.ToUpper(r)
			}
			capNext = false
			sawTerminal = false
		default:
			sawTerminal = false
			capNext = false
		}
	}
	return string(rs)
}
