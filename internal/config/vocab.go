package config

import "strings"

// Vocabulary captures the status phrases and section markers used to carve
// timeline entries out of rendered page text. The fields can be customized
// via the YAML config so a wording change upstream does not require a
// rebuild.
type Vocabulary struct {
	// ReceivedLabel is the canonical status attached to the filing-date
	// anchor regardless of how the page words it.
	ReceivedLabel string `json:"received_label" yaml:"received_label"`
	// Phrases are the known status spellings, matched case-insensitively
	// by substring against candidate status lines.
	Phrases []string `json:"phrases" yaml:"phrases"`
	// HistoryMarker starts the per-case history block.
	HistoryMarker string `json:"history_marker" yaml:"history_marker"`
	// EndMarkers terminate the history block; end of text also terminates.
	EndMarkers []string `json:"end_markers" yaml:"end_markers"`
	// NoisePrefixes disqualify a line from verbatim status acceptance.
	NoisePrefixes []string `json:"noise_prefixes" yaml:"noise_prefixes"`
}

// DefaultVocabulary returns the baked-in phrase set observed on the source
// pages.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		ReceivedLabel: "Case Was Received",
		Phrases: []string{
			"Interview Cancelled",
			"Interview Canceled",
			"Interview Was Scheduled",
			"Card Was Delivered",
			"Card Was Produced",
			"Card Is Being Produced",
			"Case Was Approved",
			"Case Was Updated",
			"Request for Evidence",
			"Request For Initial Evidence Was Sent",
			"New Card Is Being Produced",
			"Case Was Received",
			"Case Was Received and A Receipt Notice Was Sent",
			"Fingerprint Fee Was Received",
			"Case Was Transferred",
			"Case Is Being Actively Reviewed By USCIS",
			"Biometrics Appointment Was Scheduled",
		},
		HistoryMarker: "HISTORY",
		EndMarkers:    []string{"CASE NUMBER PATTERN", "Nearby Cases"},
		NoisePrefixes: []string{"Discover"},
	}
}

// MergeVocabulary overlays non-empty override fields onto the base set.
func MergeVocabulary(base Vocabulary, override Vocabulary) Vocabulary {
	if strings.TrimSpace(override.ReceivedLabel) != "" {
		base.ReceivedLabel = strings.TrimSpace(override.ReceivedLabel)
	}
	if len(override.Phrases) > 0 {
		base.Phrases = append([]string{}, override.Phrases...)
	}
	if strings.TrimSpace(override.HistoryMarker) != "" {
		base.HistoryMarker = strings.TrimSpace(override.HistoryMarker)
	}
	if len(override.EndMarkers) > 0 {
		base.EndMarkers = append([]string{}, override.EndMarkers...)
	}
	if len(override.NoisePrefixes) > 0 {
		base.NoisePrefixes = append([]string{}, override.NoisePrefixes...)
	}
	return base
}

// MatchPhrase returns the canonical phrase contained in line, or "".
// Matching is case-insensitive; the first vocabulary hit wins.
func (v Vocabulary) MatchPhrase(line string) string {
	lower := strings.ToLower(line)
	for _, phrase := range v.Phrases {
		if strings.Contains(lower, strings.ToLower(phrase)) {
			return phrase
		}
	}
	return ""
}

// IsNoise reports whether the line starts with a known noise prefix.
func (v Vocabulary) IsNoise(line string) bool {
	for _, prefix := range v.NoisePrefixes {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}
