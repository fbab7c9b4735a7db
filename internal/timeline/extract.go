package timeline

import (
	"regexp"
	"strings"

	"casetrack/internal/config"
	"casetrack/internal/dates"
)

// The filing-date field is rendered as an uppercase label with the value
// on the same or the following line.
var filedDatePattern = regexp.MustCompile(`(?i)FILED\s*DATE\s*\n?\s*([A-Za-z]+\s+\d+,?\s*\d{4})`)

// bareDatePattern recognizes a line that is nothing but a spelled-out
// date, e.g. "MAY 9, 2025".
var bareDatePattern = regexp.MustCompile(`^[A-Za-z]+\s+\d+,?\s*\d{4}$`)

// Extractor scans page text for a filing date and the history block.
// Markers and the status vocabulary come from configuration so layout
// drift upstream is a config change, not a code change.
type Extractor struct {
	vocab     config.Vocabulary
	history   *regexp.Regexp
	fallbacks []fallbackPattern
}

type fallbackPattern struct {
	phrase string
	re     *regexp.Regexp
}

// NewExtractor compiles the marker and fallback patterns for the given
// vocabulary.
func NewExtractor(vocab config.Vocabulary) *Extractor {
	ends := make([]string, 0, len(vocab.EndMarkers))
	for _, m := range vocab.EndMarkers {
		ends = append(ends, regexp.QuoteMeta(m))
	}
	historyExpr := `(?is)` + regexp.QuoteMeta(vocab.HistoryMarker) + `\s*\n(.*?)(?:` + strings.Join(ends, "|") + `|$)`

	fallbacks := make([]fallbackPattern, 0, len(vocab.Phrases))
	for _, phrase := range vocab.Phrases {
		// Same sentence only: stop the reach at sentence punctuation,
		// allowing an intervening "On" before the date.
		expr := `(?i)` + regexp.QuoteMeta(phrase) + `[^.!?]*?(?:\bOn\s+)?([A-Za-z]+\s+\d+,?\s*\d{4})`
		fallbacks = append(fallbacks, fallbackPattern{phrase: phrase, re: regexp.MustCompile(expr)})
	}

	return &Extractor{
		vocab:     vocab,
		history:   regexp.MustCompile(historyExpr),
		fallbacks: fallbacks,
	}
}

// Extract returns the (date, status) pairs found in pageText, deduplicated
// on the exact pair. A page with neither a filing date nor a history block
// yields an empty slice; that is "no data", not an error.
func (e *Extractor) Extract(pageText string) []Entry {
	var entries []Entry
	seen := make(map[Entry]struct{})
	add := func(date, status string) {
		entry := Entry{Date: date, Status: status}
		if _, dup := seen[entry]; dup {
			return
		}
		seen[entry] = struct{}{}
		entries = append(entries, entry)
	}

	if m := filedDatePattern.FindStringSubmatch(pageText); m != nil {
		add(dates.Normalize(m[1]), e.vocab.ReceivedLabel)
	}

	if m := e.history.FindStringSubmatch(pageText); m != nil {
		e.scanHistory(m[1], add)
	}

	// The structured passes can come up short on sparsely rendered pages;
	// rescan the whole text for phrase-then-date mentions.
	if len(entries) < 2 {
		for _, fb := range e.fallbacks {
			if m := fb.re.FindStringSubmatch(pageText); m != nil {
				add(dates.Normalize(m[1]), fb.phrase)
			}
		}
	}

	return entries
}

type scanState int

const (
	expectDate scanState = iota
	expectStatus
)

// scanHistory walks the history block line by line. A bare-date line
// switches to expectStatus; the line after a date is consumed as the
// status candidate whether or not it qualifies, mirroring the two-line
// layout of the rendered block.
func (e *Extractor) scanHistory(section string, add func(date, status string)) {
	state := expectDate
	pending := ""
	for _, raw := range strings.Split(section, "\n") {
		line := strings.TrimSpace(raw)
		switch state {
		case expectDate:
			if bareDatePattern.MatchString(line) {
				pending = dates.Normalize(line)
				state = expectStatus
			}
		case expectStatus:
			if status := e.statusCandidate(line); status != "" && pending != "" {
				add(pending, status)
			}
			pending = ""
			state = expectDate
		}
	}
}

// statusCandidate normalizes a line against the vocabulary, falling back
// to verbatim acceptance for non-trivial free text. Returns "" when the
// line cannot be a status.
func (e *Extractor) statusCandidate(line string) string {
	if line == "" {
		return ""
	}
	if phrase := e.vocab.MatchPhrase(line); phrase != "" {
		return phrase
	}
	if bareDatePattern.MatchString(line) {
		return ""
	}
	if len([]rune(line)) <= 3 || e.vocab.IsNoise(line) {
		return ""
	}
	return line
}
