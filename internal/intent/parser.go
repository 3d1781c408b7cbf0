// Package intent turns model output into a domain.Intent. Parse never fails:
// anything it cannot validate becomes an unknown intent carrying the raw text.
package intent

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"chaos-car/internal/domain"
)

// MaxExtraLen bounds the raw text copied into an unknown intent.
const MaxExtraLen = 200

var (
	fenceRe  = regexp.MustCompile("```json\\s*|\\s*```")
	objectRe = regexp.MustCompile(`\{[^}]*\}`)

	errNotObject = errors.New("intent is not a JSON object")
)

// Parse validates raw as an intent, trying in order: the text as-is, the text
// with Markdown code fences removed, and the first brace-delimited block.
func Parse(raw string) domain.Intent {
	if in, err := Decode(raw); err == nil {
		return in
	}

	if in, err := Decode(StripFences(raw)); err == nil {
		return in
	}

	if block := objectRe.FindString(raw); block != "" {
		if in, err := Decode(block); err == nil {
			return in
		}
	}

	return Unknown(raw)
}

// Decode is the strict step of Parse: raw must be a JSON object whose action
// is a known value and whose target and extra are null, absent or strings.
func Decode(raw string) (domain.Intent, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return domain.Intent{}, fmt.Errorf("decoding intent: %w", err)
	}
	if fields == nil {
		return domain.Intent{}, errNotObject
	}

	rawAction, ok := fields["action"]
	if !ok {
		return domain.Intent{}, errors.New("intent has no action")
	}
	var action string
	if err := json.Unmarshal(rawAction, &action); err != nil {
		return domain.Intent{}, fmt.Errorf("decoding action: %w", err)
	}
	if !domain.Action(action).Valid() {
		return domain.Intent{}, fmt.Errorf("invalid action %q", action)
	}

	target, err := nullableString(fields, "target")
	if err != nil {
		return domain.Intent{}, err
	}
	extra, err := nullableString(fields, "extra")
	if err != nil {
		return domain.Intent{}, err
	}

	return domain.Intent{
		Action: domain.Action(action),
		Target: target,
		Extra:  extra,
	}, nil
}

func nullableString(fields map[string]json.RawMessage, key string) (*string, error) {
	raw, ok := fields[key]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", key, err)
	}
	return &s, nil
}

// StripFences removes ```json openers and ``` closers wherever they appear.
func StripFences(s string) string {
	return strings.TrimSpace(fenceRe.ReplaceAllString(s, ""))
}

// Unknown builds the catch-all intent for text that could not be understood.
func Unknown(raw string) domain.Intent {
	extra := Truncate(raw, MaxExtraLen)
	return domain.Intent{Action: domain.ActionUnknown, Extra: &extra}
}

// Truncate returns at most n runes of s.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
