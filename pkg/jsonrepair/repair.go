// Package jsonrepair recovers JSON values from language-model output.
//
// Model output is often wrapped in Markdown fences, surrounded by prose, or cut
// off mid-value when the token budget runs out. Repair extracts the first JSON
// object or array from such text and closes whatever the model left open:
//   - strips a leading/trailing ``` fence (with or without a language tag)
//   - drops everything before the first '{' or '['
//   - drops trailing commentary after the root value closes
//   - closes an unterminated string
//   - removes a trailing comma before appended closers
//   - inserts a dropped '{' in the ["k":1] -> [{"k":1}] case
//
// Anything beyond that is handed to a general-purpose fallback repairer.
package jsonrepair

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// FallbackFunc repairs arbitrary malformed JSON text.
type FallbackFunc func(text string) (string, error)

// Repairer runs closure repair and, when that is not enough, a fallback.
// The zero value repairs without a fallback.
type Repairer struct {
	Fallback FallbackFunc
}

// Default uses kaptinlin/jsonrepair as its fallback.
var Default = Repairer{Fallback: jsonrepair.JSONRepair}

// Repair runs Default.Repair.
func Repair(text string) string { return Default.Repair(text) }

// SafeParse runs Default.SafeParse.
func SafeParse(text string) (any, error) { return Default.SafeParse(text) }

var (
	fenceOpenRe  = regexp.MustCompile("(?i)^```[a-z0-9_+-]*[ \\t]*\\r?\\n?")
	fenceCloseRe = regexp.MustCompile("\\r?\\n?```\\s*$")
)

// stripCodeFences removes one leading and one trailing Markdown fence.
func stripCodeFences(text string) string {
	s := strings.TrimSpace(text)
	s = fenceOpenRe.ReplaceAllString(s, "")
	s = fenceCloseRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// Repair extracts and closes the first JSON value in text. If no '{' or '['
// is present the fence-stripped text is returned unchanged. The result is not
// guaranteed to parse; SafeParse reports whether it does.
func (r Repairer) Repair(text string) string {
	out, found := closeFirstValue(text)
	if !found {
		return out
	}
	if json.Valid([]byte(out)) || r.Fallback == nil {
		return out
	}
	if fixed, err := r.Fallback(out); err == nil {
		return fixed
	}
	return out
}

// SafeParse parses text as JSON, repairing it if needed.
// Order: strict parse, closure repair (with fallback), fallback on the raw input.
// The returned error wraps ErrNoJSON or ErrUnrepairable.
func (r Repairer) SafeParse(text string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(text), &v); err == nil {
		return v, nil
	}

	candidate, found := closeFirstValue(text)
	if !found {
		return nil, &ParseError{Kind: ErrNoJSON, Candidate: candidate}
	}

	repaired := r.Repair(text)
	err := json.Unmarshal([]byte(repaired), &v)
	if err == nil {
		return v, nil
	}

	if r.Fallback != nil {
		if fixed, fbErr := r.Fallback(text); fbErr == nil {
			if json.Unmarshal([]byte(fixed), &v) == nil {
				return v, nil
			}
		}
	}
	return nil, &ParseError{Kind: ErrUnrepairable, Candidate: repaired, Cause: err}
}

// closeFirstValue performs the single-pass closure repair. found reports
// whether a '{' or '[' was present at all.
func closeFirstValue(text string) (out string, found bool) {
	src := stripCodeFences(text)
	start := strings.IndexAny(src, "{[")
	if start < 0 {
		return src, false
	}

	var (
		b        strings.Builder
		stack    []byte
		inString bool
		escaped  bool
		inserted bool
	)
	b.Grow(len(src) - start + 8)

scan:
	for i := start; i < len(src); i++ {
		ch := src[i]

		if inString {
			b.WriteByte(ch)
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
			b.WriteByte(ch)
		case '{':
			stack = append(stack, '}')
			b.WriteByte(ch)
		case '[':
			stack = append(stack, ']')
			b.WriteByte(ch)
			if !inserted && missingObjectAfterArray(src, i+1) {
				b.WriteByte('{')
				stack = append(stack, '}')
				inserted = true
			}
		case '}', ']':
			// Only a closer matching the innermost open value counts; any
			// other closer is dropped and left for the fallback to judge.
			if len(stack) == 0 || stack[len(stack)-1] != ch {
				continue
			}
			b.WriteByte(ch)
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				break scan
			}
		default:
			b.WriteByte(ch)
		}
	}

	out = b.String()
	if inString {
		out += `"`
	}
	if len(stack) > 0 {
		out = trimTrailingComma(out)
	}
	for i := len(stack) - 1; i >= 0; i-- {
		out += string(stack[i])
	}
	return out, true
}

func trimTrailingComma(s string) string {
	trimmed := strings.TrimRight(s, " \t\r\n")
	if strings.HasSuffix(trimmed, ",") {
		return trimmed[:len(trimmed)-1]
	}
	return s
}

// missingObjectAfterArray reports whether the array opened just before from
// starts with a property (`"key":` or a bare identifier) instead of a value.
func missingObjectAfterArray(src string, from int) bool {
	i := skipSpace(src, from)
	if i >= len(src) {
		return false
	}
	switch ch := src[i]; {
	case ch == '"':
		end := endOfString(src, i+1)
		if end < 0 {
			return false
		}
		return colonBeforeSeparator(src, end+1)
	case ch == '_' || ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z'):
		// bare identifiers are not JSON values (true/false/null excepted)
		return !startsWithLiteral(src[i:])
	default:
		return false
	}
}

func startsWithLiteral(s string) bool {
	for _, lit := range []string{"true", "false", "null"} {
		if strings.HasPrefix(s, lit) {
			rest := s[len(lit):]
			if rest == "" || !isIdentByte(rest[0]) {
				return true
			}
		}
	}
	return false
}

func isIdentByte(c byte) bool {
	return c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}

// colonBeforeSeparator scans from i and reports whether ':' appears before
// any of ',', ']', '{' at the current nesting level.
func colonBeforeSeparator(src string, i int) bool {
	for i < len(src) {
		switch src[i] {
		case ':':
			return true
		case ',', ']', '{', '}', '[':
			return false
		case '"':
			end := endOfString(src, i+1)
			if end < 0 {
				return false
			}
			i = end
		}
		i++
	}
	return false
}

// endOfString returns the index of the quote closing a string whose body
// starts at i, or -1 if the string never closes.
func endOfString(src string, i int) int {
	escaped := false
	for ; i < len(src); i++ {
		switch {
		case escaped:
			escaped = false
		case src[i] == '\\':
			escaped = true
		case src[i] == '"':
			return i
		}
	}
	return -1
}

func skipSpace(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\n' || s[i] == '\r') {
		i++
	}
	return i
}
