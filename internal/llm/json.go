package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

var (
	fencedBlock = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*\\n?(.*?)```")
	jsonArray   = regexp.MustCompile(`\[[\s\S]*\]`)
	jsonObject  = regexp.MustCompile(`\{[\s\S]*\}`)
)

// ExtractJSON returns the JSON document inside a model response: the first
// fenced code block if present, else the outermost array or object.
func ExtractJSON(response string) (string, error) {
	text := strings.TrimSpace(response)
	if m := fencedBlock.FindStringSubmatch(text); m != nil {
		text = strings.TrimSpace(m[1])
	}
	if strings.HasPrefix(text, "[") || strings.HasPrefix(text, "{") {
		return text, nil
	}
	arr := jsonArray.FindStringIndex(text)
	obj := jsonObject.FindStringIndex(text)
	switch {
	case arr != nil && (obj == nil || arr[0] < obj[0]):
		return text[arr[0]:arr[1]], nil
	case obj != nil:
		return text[obj[0]:obj[1]], nil
	}
	return "", ErrNoJSON
}

// UnmarshalFlexible decodes input into out, accepting double-encoded JSON
// and repairing common syntax damage such as trailing commas, single quotes
// or truncated brackets.
func UnmarshalFlexible(input string, out any) error {
	input = strings.TrimSpace(input)
	if err := json.Unmarshal([]byte(input), out); err == nil {
		return nil
	}

	var inner string
	if err := json.Unmarshal([]byte(input), &inner); err == nil {
		inner = strings.TrimSpace(inner)
		if err := json.Unmarshal([]byte(inner), out); err == nil {
			return nil
		}
		input = inner
	}

	repaired, err := jsonrepair.JSONRepair(input)
	if err != nil {
		return fmt.Errorf("json repair failed: %w", err)
	}
	if err := json.Unmarshal([]byte(repaired), out); err != nil {
		return fmt.Errorf("unmarshal after repair: %w", err)
	}
	return nil
}
