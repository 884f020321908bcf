// Copyright 2025 ViralVibe Studio Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package sanitize recovers a JSON document from the free text a generative
// model returns. Models are not guaranteed to emit syntactically valid JSON
// even when instructed to: they wrap it in markdown fences, add commentary
// around it, mangle escape sequences, or truncate the tail of the document
// when they run out of output tokens. Parse applies a fixed sequence of
// increasingly aggressive recovery passes and fails with ErrMalformed when
// none of them yields valid JSON. It never invents fields: every pass only
// removes or closes what is already there.
package sanitize

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformed indicates the response could not be recovered into valid
// JSON. Callers must not retry the identical prompt on this error: a
// structural failure is unlikely to fix itself without prompt changes.
var ErrMalformed = errors.New("malformed response: no JSON document could be recovered")

// ParseError carries the recovery failure detail alongside ErrMalformed.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%v: %s", ErrMalformed, e.Reason)
}

func (e *ParseError) Unwrap() error {
	return ErrMalformed
}

// Parse extracts a JSON value from raw model output. The passes run in
// order: fence stripping, slicing to the outermost brace/bracket span, a
// direct parse, a conservative escape repair, and finally a
// string-state-aware brace/bracket balance repair. The first pass that
// yields valid JSON wins.
func Parse(raw string) (json.RawMessage, error) {
	text := stripFences(raw)

	text, ok := sliceToDocument(text)
	if !ok {
		return nil, &ParseError{Reason: "no opening brace or bracket in response"}
	}

	if json.Valid([]byte(text)) {
		return json.RawMessage(text), nil
	}

	repaired := repairEscapes(text)
	if json.Valid([]byte(repaired)) {
		return json.RawMessage(repaired), nil
	}

	balanced := repairBalance(repaired)
	if json.Valid([]byte(balanced)) {
		return json.RawMessage(balanced), nil
	}

	return nil, &ParseError{Reason: "response survived no repair pass"}
}

// stripFences removes a surrounding markdown code fence, with or without a
// language tag, when one is present.
func stripFences(in string) string {
	out := strings.TrimSpace(in)
	if strings.HasPrefix(out, "```") {
		if idx := strings.IndexByte(out, '\n'); idx >= 0 {
			out = out[idx+1:]
		} else {
			out = strings.TrimPrefix(out, "```json")
			out = strings.TrimPrefix(out, "```")
		}
	}
	out = strings.TrimSpace(out)
	out = strings.TrimSuffix(out, "```")
	return strings.TrimSpace(out)
}

// sliceToDocument narrows the text to the span between the first opening
// brace/bracket and the last closing brace/bracket, discarding any
// commentary the model added around the document. When no closer follows
// the opener the tail is kept as-is for the later repair passes.
func sliceToDocument(in string) (string, bool) {
	start := strings.IndexAny(in, "{[")
	if start < 0 {
		return "", false
	}
	end := strings.LastIndexAny(in, "}]")
	if end > start {
		return in[start : end+1], true
	}
	return in[start:], true
}

// validEscapes are the characters allowed to follow a backslash in a JSON
// string literal, per RFC 8259.
const validEscapes = `"\/bfnrtu`

// repairEscapes removes escape sequences that would make a string literal
// unparseable: \u escapes not followed by four hex digits, backslashes
// escaping characters that are not legal escape targets, and a dangling
// backslash at end of input. Everything else is copied through verbatim.
func repairEscapes(in string) string {
	var b strings.Builder
	b.Grow(len(in))
	for i := 0; i < len(in); i++ {
		c := in[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		if i+1 >= len(in) {
			// Dangling trailing backslash.
			break
		}
		next := in[i+1]
		if next == 'u' {
			if i+6 <= len(in) && isHex(in[i+2:i+6]) {
				b.WriteString(in[i : i+6])
				i += 5
				continue
			}
			// Incomplete unicode escape: drop the marker, keep whatever
			// followed it.
			i++
			continue
		}
		if strings.IndexByte(validEscapes, next) >= 0 {
			b.WriteByte(c)
			b.WriteByte(next)
			i++
			continue
		}
		// Invalid escape target: drop the backslash, keep the character.
		b.WriteByte(next)
		i++
	}
	return b.String()
}

func isHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F') {
			return false
		}
	}
	return len(s) > 0
}

// repairBalance walks the document tracking string-literal state (respecting
// escaped quotes) and a stack of expected closers. Closers that match
// nothing are dropped; at end of input an unterminated string is closed and
// the still-open containers are closed in LIFO order. This recovers
// documents the model truncated mid-array or mid-object.
func repairBalance(in string) string {
	var b strings.Builder
	b.Grow(len(in) + 8)

	var stack []byte
	inString := false
	escaped := false

	for i := 0; i < len(in); i++ {
		c := in[i]
		if inString {
			b.WriteByte(c)
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == '"' {
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
			b.WriteByte(c)
		case '{':
			stack = append(stack, '}')
			b.WriteByte(c)
		case '[':
			stack = append(stack, ']')
			b.WriteByte(c)
		case '}', ']':
			if len(stack) > 0 && stack[len(stack)-1] == c {
				stack = stack[:len(stack)-1]
				b.WriteByte(c)
			}
			// An unmatched closer is dropped.
		default:
			b.WriteByte(c)
		}
	}

	if inString {
		b.WriteByte('"')
	}
	for i := len(stack) - 1; i >= 0; i-- {
		b.WriteByte(stack[i])
	}

	// A truncation can leave a dangling comma or colon right before the
	// appended closers; strip the separator so the close is legal.
	out := b.String()
	if len(stack) > 0 || inString {
		out = trimDanglingSeparators(out, len(stack))
	}
	return out
}

// trimDanglingSeparators removes a trailing comma before the repaired
// closers, and a trailing colon together with its now-valueless key, so the
// appended closers produce legal JSON. Data is only ever dropped, never
// invented.
func trimDanglingSeparators(in string, closers int) string {
	body := in[:len(in)-closers]
	tail := in[len(in)-closers:]
	trimmed := strings.TrimRight(body, " \t\r\n")
	for len(trimmed) > 0 {
		last := trimmed[len(trimmed)-1]
		if last == ',' {
			trimmed = strings.TrimRight(trimmed[:len(trimmed)-1], " \t\r\n")
			continue
		}
		if last == ':' {
			trimmed = strings.TrimRight(trimmed[:len(trimmed)-1], " \t\r\n")
			trimmed = strings.TrimRight(dropTrailingString(trimmed), " \t\r\n")
			continue
		}
		break
	}
	return trimmed + tail
}

// dropTrailingString removes a string literal sitting at the end of the
// input (the orphaned key of a dropped colon).
func dropTrailingString(in string) string {
	if len(in) == 0 || in[len(in)-1] != '"' {
		return in
	}
	for i := len(in) - 2; i >= 0; i-- {
		if in[i] != '"' {
			continue
		}
		// Count the run of backslashes before the quote; an even count
		// means the quote is unescaped and opens the literal.
		backslashes := 0
		for j := i - 1; j >= 0 && in[j] == '\\'; j-- {
			backslashes++
		}
		if backslashes%2 == 0 {
			return in[:i]
		}
	}
	return in
}
