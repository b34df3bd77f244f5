package workplan

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// ErrParse is wrapped by every ParseRawModelOutput failure.
var ErrParse = errors.New("unparseable model output")

var (
	thinkTagPattern  = regexp.MustCompile(`(?is)<think(?:ing)?>.*?</think(?:ing)?>`)
	codeFencePattern = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")
)

// modelPayload mirrors the structured output schema. Module is accepted
// either as a string or as a single-element "modules" array.
type modelPayload struct {
	Module         *string  `json:"module"`
	Modules        []string `json:"modules"`
	CurriculumRefs []any    `json:"curriculum_refs"`
	Objectives     []any    `json:"objectives"`
}

// ParseRawModelOutput turns model text into a RawModelOutput. It strips
// reasoning tags and markdown fences and falls back to the outermost JSON
// object when the text has surrounding prose.
func ParseRawModelOutput(text string) (RawModelOutput, error) {
	cleaned := cleanModelText(text)
	if cleaned == "" {
		return RawModelOutput{}, fmt.Errorf("%w: empty response", ErrParse)
	}

	payload, err := decodePayload(cleaned)
	if err != nil {
		start := strings.Index(cleaned, "{")
		end := strings.LastIndex(cleaned, "}")
		if start < 0 || end <= start {
			return RawModelOutput{}, fmt.Errorf("%w: no JSON object found", ErrParse)
		}
		payload, err = decodePayload(cleaned[start : end+1])
		if err != nil {
			return RawModelOutput{}, fmt.Errorf("%w: %v", ErrParse, err)
		}
	}

	if payload.Module == nil && payload.Modules == nil && payload.CurriculumRefs == nil && payload.Objectives == nil {
		return RawModelOutput{}, fmt.Errorf("%w: none of module, curriculum_refs, objectives present", ErrParse)
	}

	raw := RawModelOutput{
		CurriculumCandidates: stringItems(payload.CurriculumRefs, true),
		ObjectiveCandidates:  stringItems(payload.Objectives, false),
	}
	if payload.Module != nil {
		raw.ModuleCandidate = *payload.Module
	}
	if strings.TrimSpace(raw.ModuleCandidate) == "" {
		for _, m := range payload.Modules {
			if strings.TrimSpace(m) != "" {
				raw.ModuleCandidate = m
				break
			}
		}
	}
	return raw, nil
}

// decodePayload keeps numbers as json.Number so an unquoted 4.10 is not
// collapsed into the distinct code 4.1
func decodePayload(text string) (modelPayload, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	var payload modelPayload
	if err := dec.Decode(&payload); err != nil {
		return modelPayload{}, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return modelPayload{}, errors.New("trailing data after JSON object")
	}
	return payload, nil
}

func cleanModelText(text string) string {
	cleaned := thinkTagPattern.ReplaceAllString(text, "")
	cleaned = strings.TrimSpace(cleaned)
	if m := codeFencePattern.FindStringSubmatch(cleaned); m != nil {
		cleaned = strings.TrimSpace(m[1])
	}
	return cleaned
}

// stringItems keeps string entries. With numbers set, numeric entries keep
// their literal text since codes like 4.15 sometimes come back unquoted.
func stringItems(items []any, numbers bool) []string {
	if items == nil {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case string:
			out = append(out, v)
		case json.Number:
			if !numbers {
				continue
			}
			out = append(out, v.String())
		}
	}
	return out
}
