// Package embedder implements the deterministic, dependency-free hash
// projection embedder: canonicalise text, then project it into a
// fixed-dimension unit vector by hashing its tokens. There is no learned
// model and no inference step.
package embedder

import (
	"crypto/sha256"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// CanonicalizationVersion identifies the canonicalisation pipeline's
// behaviour (markdown-stripping rules, stop-list contents, truncation
// lengths). Extending the stop-list or changing the pipeline requires
// bumping this constant, per the low-signal-stop-list open question.
const CanonicalizationVersion = 1

// lowSignalContent is the canonical stop-list of §4.4, extended with the
// fuller set the original hash-embedder implementation carried.
var lowSignalContent = map[string]struct{}{
	"ok": {}, "done": {}, "done.": {}, "got it": {}, "got it.": {},
	"understood": {}, "understood.": {}, "sure": {}, "sure.": {},
	"yes": {}, "no": {}, "thanks": {}, "thanks.": {}, "thank you": {},
	"thank you.": {}, "lgtm": {}, "+1": {}, "👍": {}, "✓": {},
}

const (
	maxEmbedCharsShort = 280  // Tweet, Like
	maxEmbedCharsLong  = 2000 // DirectMessage, GrokMessage

	codeHeadLines = 20
	codeTailLines = 10
)

var (
	boldRe     = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	italicRe   = regexp.MustCompile(`\*([^*]+)\*`)
	linkRe     = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	headingRe  = regexp.MustCompile(`(?m)^\s{0,3}#{1,6}\s+`)
	listItemRe = regexp.MustCompile(`(?m)^\s*([-*+]|\d+[.)])\s+`)
	fenceRe    = regexp.MustCompile("^```")
	hSpaceRe   = regexp.MustCompile(`[ \t]+`)
	blankRunRe = regexp.MustCompile(`\n{2,}`)
)

// CanonicalizeForEmbedding runs the full canonicalisation pipeline of
// §4.4: NFC normalisation, markdown/code stripping, whitespace collapse,
// low-signal rejection, and truncation. maxChars selects the truncation
// length for the record's variant (use MaxCharsFor).
//
// ok is false when the text is low-signal (per the stop-list, or fewer
// than 3 non-whitespace characters after stripping) — the caller must not
// embed or store a vector for it.
func CanonicalizeForEmbedding(text string, maxChars int) (canonical string, ok bool) {
	s := norm.NFC.String(text)
	s = stripMarkdownAndCode(s)
	s = normalizeWhitespace(s)
	if isLowSignal(s) {
		return "", false
	}
	s = truncateToChars(s, maxChars)
	return s, true
}

// MaxCharsFor returns the truncation length for a record type: 280 for
// tweets and likes, 2000 for direct messages and grok turns.
func MaxCharsFor(isShort bool) int {
	if isShort {
		return maxEmbedCharsShort
	}
	return maxEmbedCharsLong
}

func stripMarkdownAndCode(s string) string {
	lines := strings.Split(s, "\n")
	var out []string
	i := 0
	for i < len(lines) {
		if fenceRe.MatchString(strings.TrimSpace(lines[i])) {
			j := i + 1
			var body []string
			for j < len(lines) && !fenceRe.MatchString(strings.TrimSpace(lines[j])) {
				body = append(body, lines[j])
				j++
			}
			out = append(out, collapseCodeBlock(body)...)
			if j < len(lines) {
				j++ // skip closing fence
			}
			i = j
			continue
		}
		out = append(out, lines[i])
		i++
	}
	s = strings.Join(out, "\n")

	s = linkRe.ReplaceAllString(s, "$1")
	s = boldRe.ReplaceAllString(s, "$1")
	s = italicRe.ReplaceAllString(s, "$1")
	s = headingRe.ReplaceAllString(s, "")
	s = listItemRe.ReplaceAllString(s, "")
	return s
}

func collapseCodeBlock(lines []string) []string {
	if len(lines) <= codeHeadLines+codeTailLines {
		return lines
	}
	head := lines[:codeHeadLines]
	tail := lines[len(lines)-codeTailLines:]
	out := make([]string, 0, codeHeadLines+codeTailLines+1)
	out = append(out, head...)
	out = append(out, "[...]")
	out = append(out, tail...)
	return out
}

func normalizeWhitespace(s string) string {
	s = hSpaceRe.ReplaceAllString(s, " ")
	s = blankRunRe.ReplaceAllString(s, "\n")
	return strings.TrimSpace(s)
}

func isLowSignal(s string) bool {
	if len([]rune(strings.TrimSpace(s))) < 3 {
		return true
	}
	_, stop := lowSignalContent[strings.ToLower(strings.TrimSpace(s))]
	return stop
}

func truncateToChars(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

// ContentHash returns the SHA-256 hash of canonicalised text, used to
// detect unchanged records across re-index runs.
func ContentHash(canonical string) [32]byte {
	return sha256.Sum256([]byte(canonical))
}
