package text

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// ErrNoResults indicates answer_question received no usable search results.
var ErrNoResults = errors.New("no search results provided")

// Tuning for answer composition.
const (
	answerSources      = 5
	answerLength       = 300
	sourceSnippetChars = 100
)

// SearchResult is the subset of a search hit answer_question reads.
type SearchResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// Source cites a result an answer was built from.
type Source struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// Answer is the output of answer_question.
type Answer struct {
	Question     string   `json:"question"`
	Answer       string   `json:"answer"`
	Sources      []Source `json:"sources"`
	TotalSources int      `json:"total_sources"`
	CurrentDate  string   `json:"current_date"`
}

// Compose builds an answer from the top search results by summarizing
// their snippets.
func Compose(question string, results []SearchResult, currentDate string) (Answer, error) {
	if len(results) == 0 {
		return Answer{}, ErrNoResults
	}

	top := results
	if len(top) > answerSources {
		top = top[:answerSources]
	}

	snippets := make([]string, 0, len(top))
	sources := make([]Source, 0, len(top))
	for _, r := range top {
		if strings.TrimSpace(r.Snippet) == "" {
			continue
		}
		title := r.Title
		if title == "" {
			title = "Unknown"
		}
		snippets = append(snippets, r.Snippet)
		sources = append(sources, Source{
			Title:   title,
			Link:    r.Link,
			Snippet: truncate(r.Snippet, sourceSnippetChars),
		})
	}

	out := Answer{
		Question:     question,
		Sources:      sources,
		TotalSources: len(sources),
		CurrentDate:  currentDate,
	}

	combined := strings.Join(snippets, " ")
	if strings.TrimSpace(combined) == "" {
		out.Answer = "No detailed information was found to answer this question."
		return out, nil
	}

	summary, err := Summarize(combined, answerLength)
	if err != nil {
		out.Answer = "Based on the search results: " + truncate(combined, answerLength)
		return out, nil
	}
	out.Answer = fmt.Sprintf("Based on the search results (as of %s): %s", currentDate, summary.Summary)
	return out, nil
}

// ParseResults reads search results from a tool argument. It accepts a
// JSON array of results, an object with a "results" array, or a string
// holding either form. Strings cut short by observation truncation are
// repaired; any other text becomes a single snippet.
func ParseResults(raw json.RawMessage) ([]SearchResult, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}

	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("decode search_results: %w", err)
		}
		return parseResultText(s), nil
	}

	results, err := decodeResults(trimmed)
	if err != nil {
		return nil, fmt.Errorf("decode search_results: %w", err)
	}
	return results, nil
}

func parseResultText(s string) []SearchResult {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if strings.HasPrefix(s, "[") || strings.HasPrefix(s, "{") {
		if results, err := decodeResults(s); err == nil {
			return results
		}
		if repaired, err := jsonrepair.JSONRepair(s); err == nil {
			if results, err := decodeResults(repaired); err == nil {
				return results
			}
		}
	}
	return []SearchResult{{Title: "observation", Snippet: s}}
}

func decodeResults(s string) ([]SearchResult, error) {
	if strings.HasPrefix(s, "[") {
		var results []SearchResult
		if err := json.Unmarshal([]byte(s), &results); err != nil {
			return nil, err
		}
		return results, nil
	}

	var wrapped struct {
		Results []SearchResult `json:"results"`
	}
	if err := json.Unmarshal([]byte(s), &wrapped); err != nil {
		return nil, err
	}
	if wrapped.Results == nil {
		return nil, errors.New("object has no results array")
	}
	return wrapped.Results, nil
}
