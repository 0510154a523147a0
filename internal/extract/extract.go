// Package extract digs candidate ticket objects out of raw LLM completion
// text. Model output is frequently wrapped in prose or markdown fences and
// may carry minor JSON defects (raw control characters inside strings,
// trailing commas); this package repairs what it can and surfaces whatever
// parses. It performs no transport: callers hand it bytes.
package extract

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
)

// JSON extracts the outermost JSON value from mixed content by locating the
// first opening brace or bracket and the matching last closer. Returns false
// when no plausible JSON boundaries exist.
func JSON(data []byte) ([]byte, bool) {
	objStart := bytes.IndexByte(data, '{')
	arrStart := bytes.IndexByte(data, '[')

	start := objStart
	closer := byte('}')
	if arrStart != -1 && (objStart == -1 || arrStart < objStart) {
		start = arrStart
		closer = ']'
	}
	if start == -1 {
		return nil, false
	}
	end := bytes.LastIndexByte(data, closer)
	if end <= start {
		return nil, false
	}
	return data[start : end+1], true
}

var trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)

// Sanitize repairs known defects in model-emitted JSON: raw control
// characters inside string literals are escaped, trailing commas are
// stripped, and the historical malformed `"recommendations": {...}` shape
// is rewritten into the array the schema expects.
func Sanitize(data []byte) []byte {
	out := escapeControlChars(data)
	out = trailingCommaRe.ReplaceAll(out, []byte("$1"))
	out = repairRecommendations(out)
	return out
}

// escapeControlChars escapes raw control characters that appear inside JSON
// string literals. Models occasionally emit literal newlines or tabs mid-string,
// which encoding/json rejects outright.
func escapeControlChars(data []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(len(data))
	inString := false
	escaped := false
	for _, b := range data {
		if escaped {
			buf.WriteByte(b)
			escaped = false
			continue
		}
		switch {
		case inString && b == '\\':
			buf.WriteByte(b)
			escaped = true
		case b == '"':
			inString = !inString
			buf.WriteByte(b)
		case inString && b < 0x20:
			switch b {
			case '\n':
				buf.WriteString(`\n`)
			case '\r':
				buf.WriteString(`\r`)
			case '\t':
				buf.WriteString(`\t`)
			default:
				// Other control characters carry nothing worth keeping.
			}
		default:
			buf.WriteByte(b)
		}
	}
	return buf.Bytes()
}

var recommendationsObjRe = regexp.MustCompile(`"recommendations"\s*:\s*\{[^{}]*\}`)

// repairRecommendations rewrites the known-bad `"recommendations": {...}`
// object shape to an empty array so the surrounding document stays parseable.
func repairRecommendations(data []byte) []byte {
	return recommendationsObjRe.ReplaceAll(data, []byte(`"recommendations": []`))
}

// Candidates parses raw completion text into a batch of loosely-typed
// candidate objects. It tries the text as-is, then sanitized, then the
// extracted JSON substring of each. A bare object is treated as a
// one-element batch. When nothing parses the result is an empty batch,
// never an error: unusable text means zero candidates.
func Candidates(data []byte) []map[string]any {
	attempts := [][]byte{data, Sanitize(data)}
	if extracted, ok := JSON(data); ok {
		attempts = append(attempts, extracted, Sanitize(extracted))
	}
	for _, attempt := range attempts {
		trimmed := bytes.TrimSpace(attempt)
		if len(trimmed) == 0 {
			continue
		}
		if batch, ok := parseBatch(trimmed); ok {
			return batch
		}
	}
	return []map[string]any{}
}

func parseBatch(data []byte) ([]map[string]any, bool) {
	if strings.HasPrefix(string(data), "[") {
		var items []any
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, false
		}
		out := make([]map[string]any, 0, len(items))
		for _, item := range items {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out, true
	}
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil || obj == nil {
		return nil, false
	}
	// Some models wrap the batch in a {"tickets": [...]} envelope.
	if nested, ok := obj["tickets"].([]any); ok {
		out := make([]map[string]any, 0, len(nested))
		for _, item := range nested {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out, true
	}
	return []map[string]any{obj}, true
}
