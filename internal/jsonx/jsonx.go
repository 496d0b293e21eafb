// Package jsonx recovers JSON values from LLM responses that wrap them in
// prose or markdown, or that carry trailing commas.
package jsonx

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

var (
	// ErrNoJSON is returned when the text contains no object at all.
	ErrNoJSON = eris.New("jsonx: no json object found")
	// ErrMalformed is returned when an object was found but could not be repaired.
	ErrMalformed = eris.New("jsonx: malformed json")
)

// Parse extracts and repairs the JSON value in text. Directly valid objects and
// arrays are returned untouched; otherwise code fences are stripped, the first
// balanced {...} span is extracted and trailing commas are removed.
func Parse(text string) (json.RawMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrNoJSON
	}
	if isContainer(text) && json.Valid([]byte(text)) {
		return json.RawMessage(text), nil
	}

	text = StripFences(text)
	if isContainer(text) && json.Valid([]byte(text)) {
		return json.RawMessage(text), nil
	}

	span, ok := FirstObject(text)
	if !ok {
		return nil, ErrNoJSON
	}
	if json.Valid([]byte(span)) {
		return json.RawMessage(span), nil
	}

	repaired := RemoveTrailingCommas(span)
	if !json.Valid([]byte(repaired)) {
		return nil, eris.Wrapf(ErrMalformed, "after repair: %s", Snippet(repaired, 200))
	}
	return json.RawMessage(repaired), nil
}

// Decode parses text leniently and unmarshals the result into v.
func Decode(text string, v any) error {
	raw, err := Parse(text)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return eris.Wrap(err, "jsonx: decode")
	}
	return nil
}

// StripFences removes a markdown code fence around the payload, including one
// preceded by prose.
func StripFences(text string) string {
	start := strings.Index(text, "```")
	if start < 0 {
		return text
	}
	body := text[start+3:]
	// Drop the language tag line (```json).
	if nl := strings.IndexByte(body, '\n'); nl >= 0 && !strings.ContainsAny(body[:nl], "{[") {
		body = body[nl+1:]
	} else {
		body = strings.TrimPrefix(body, "json")
	}
	if end := strings.LastIndex(body, "```"); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}

// FirstObject returns the first balanced {...} span in text, ignoring braces
// inside string literals. When the text is truncated before the object closes
// it falls back to the span from the first { to the last }.
func FirstObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}

	end := strings.LastIndexByte(text, '}')
	if end > start {
		return text[start : end+1], true
	}
	return "", false
}

// RemoveTrailingCommas drops commas that directly precede a closing } or ],
// leaving string contents intact.
func RemoveTrailingCommas(text string) string {
	var b bytes.Buffer
	b.Grow(len(text))

	inString := false
	escaped := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		if inString {
			b.WriteByte(c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		if c == '"' {
			inString = true
			b.WriteByte(c)
			continue
		}
		if c == ',' {
			j := i + 1
			for j < len(text) && isSpace(text[j]) {
				j++
			}
			if j < len(text) && (text[j] == '}' || text[j] == ']') {
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

// Snippet truncates s to at most n bytes for log fields.
func Snippet(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func isContainer(s string) bool {
	return strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[")
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\n' || c == '\t' || c == '\r'
}
