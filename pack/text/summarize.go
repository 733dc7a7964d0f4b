package text

import (
	"errors"
	"math"
	"strings"
	"unicode/utf8"
)

// ErrEmptyText indicates there was nothing to summarize.
var ErrEmptyText = errors.New("empty text provided")

// Summary is the outcome of an extractive summarization.
type Summary struct {
	OriginalText     string  `json:"original_text"`
	Summary          string  `json:"summary"`
	OriginalLength   int     `json:"original_length"`
	SummaryLength    int     `json:"summary_length"`
	CompressionRatio float64 `json:"compression_ratio"`
}

const previewLength = 200

// Summarize keeps up to three sentences verbatim; longer texts are reduced
// to their first two sentences and the last one. The result is cut to
// maxLength characters with a trailing "...". Lengths count characters,
// not bytes.
func Summarize(text string, maxLength int) (Summary, error) {
	if strings.TrimSpace(text) == "" {
		return Summary{}, ErrEmptyText
	}

	sentences := splitSentences(text)

	summary := text
	if len(sentences) > 3 {
		picked := append(sentences[:2:2], sentences[len(sentences)-1])
		summary = strings.Join(picked, ". ") + "."
	}
	if maxLength > 0 {
		summary = truncate(summary, maxLength)
	}

	originalLength := utf8.RuneCountInString(text)
	summaryLength := utf8.RuneCountInString(summary)

	return Summary{
		OriginalText:     truncate(text, previewLength),
		Summary:          summary,
		OriginalLength:   originalLength,
		SummaryLength:    summaryLength,
		CompressionRatio: math.Round(float64(summaryLength)/float64(originalLength)*100) / 100,
	}, nil
}

func splitSentences(text string) []string {
	parts := strings.Split(text, ".")
	sentences := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

// truncate cuts s to n characters and appends "..." when it was longer.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "..."
}
