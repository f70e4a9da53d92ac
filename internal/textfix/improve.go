package textfix

import (
	"log/slog"
	"regexp"
	"strings"
)

var (
	dupBeRe      = regexp.MustCompile(`\b(am|is|are)\s+(?:am|is|are)\b`)
	dupHaveRe    = regexp.MustCompile(`\b(have|has)\s+(?:have|has)\b`)
	dupDoRe      = regexp.MustCompile(`\b(do|does)\s+(?:do|does)\b`)
	thirdSingRe  = regexp.MustCompile(`\b(he|she)\s+(?:am|are)\b`)
	firstSingRe  = regexp.MustCompile(`\bI\s+(?:is|are)\b`)
	pluralSubjRe = regexp.MustCompile(`\b(you|we|they)\s+is\b`)
)

// ImproveTranslation applies light grammar and readability fixes to machine
// translation output. Best-effort: an internal failure returns the input
// unchanged, never an error, since improvement must not fail a translation.
func (e *Engine) ImproveTranslation(text, targetLang string) (result string) {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("translation improvement failed, returning input unchanged", "panic", r)
			result = text
		}
	}()

	improved := strings.TrimSpace(text)

	if strings.HasPrefix(targetLang, "en") {
		improved = dupBeRe.ReplaceAllString(improved, "is")
		improved = dupHaveRe.ReplaceAllString(improved, "has")
		improved = dupDoRe.ReplaceAllString(improved, "does")
		improved = thirdSingRe.ReplaceAllString(improved, "$1 is")
		improved = firstSingRe.ReplaceAllString(improved, "I am")
		improved = pluralSubjRe.ReplaceAllString(improved, "$1 are")
	}

	improved = repeatTerminalRe.ReplaceAllString(improved, "$1$2$3")
	improved = repeatClauseRe.ReplaceAllString(improved, "$1$2$3")
	improved = spaceRunRe.ReplaceAllString(improved, " ")

	if !strings.HasSuffix(improved, ".") && !strings.HasSuffix(improved, "!") && !strings.HasSuffix(improved, "?") {
		improved += "."
	}
	return strings.TrimSpace(improved)
}
