package agent

import (
	"fmt"
	"strconv"
	"strings"
)

// ContextExpression is a small boolean expression language evaluated against
// session state. It drives handoff conditions in group chats.
//
// Syntax:
//
//	${key} == 'value'
//	${loop_started} == true && ${current_stage} == 'planning'
//	${current_stage} != 'final' or ${iteration_needed} == true
//	${final_document}
//
// Operands reference state keys as ${key}. Literals are single-quoted
// strings, booleans (true/false, True/False) or numbers. Comparisons support
// == and !=. Clauses combine with && / "and" and || / "or"; "and" binds
// tighter than "or". A bare ${key} evaluates truthiness: the key must exist
// and be neither false, empty string nor zero.
type ContextExpression struct {
	raw     string
	orTerms [][]comparison
}

type comparison struct {
	key      string
	op       string // "==", "!=" or "" for bare truthiness
	literal  any
	presence bool
}

// StateLookup resolves a state key. It matches the signature of
// RunContext.GetState and Session.GetState.
type StateLookup func(key string) (any, bool)

// NewContextExpression parses the expression eagerly so malformed rules fail
// at wiring time instead of mid-conversation.
func NewContextExpression(expr string) (ContextExpression, error) {
	ce := ContextExpression{raw: expr}

	trimmed := strings.TrimSpace(expr)
	if trimmed == "" {
		return ce, fmt.Errorf("empty context expression")
	}

	for _, orPart := range splitClauses(trimmed, "||", " or ") {
		var andTerms []comparison
		for _, andPart := range splitClauses(orPart, "&&", " and ") {
			cmp, err := parseComparison(andPart)
			if err != nil {
				return ce, fmt.Errorf("invalid context expression %q: %w", expr, err)
			}
			andTerms = append(andTerms, cmp)
		}
		ce.orTerms = append(ce.orTerms, andTerms)
	}

	return ce, nil
}

// MustContextExpression is NewContextExpression that panics on parse errors.
// Intended for statically written workflow wiring.
func MustContextExpression(expr string) ContextExpression {
	ce, err := NewContextExpression(expr)
	if err != nil {
		panic(err)
	}
	return ce
}

// String returns the original expression text.
func (ce ContextExpression) String() string { return ce.raw }

// Evaluate resolves the expression against the given state lookup.
func (ce ContextExpression) Evaluate(get StateLookup) bool {
	for _, andTerms := range ce.orTerms {
		matched := true
		for _, cmp := range andTerms {
			if !cmp.evaluate(get) {
				matched = false
				break
			}
		}
		if matched {
			return true
		}
	}
	return false
}

func (c comparison) evaluate(get StateLookup) bool {
	value, ok := get(c.key)
	if c.presence {
		return ok && isTruthy(value)
	}
	if !ok {
		// A missing key only satisfies strict inequality.
		return c.op == "!="
	}

	equal := looselyEqual(value, c.literal)
	if c.op == "!=" {
		return !equal
	}
	return equal
}

// splitClauses splits on any of the separators, skipping separator text that
// appears inside single-quoted literals. The language has no parentheses, so
// a plain scan suffices.
func splitClauses(s string, seps ...string) []string {
	var parts []string
	start := 0
	inQuote := false

	for i := 0; i < len(s); {
		if s[i] == '\'' {
			inQuote = !inQuote
			i++
			continue
		}
		if inQuote {
			i++
			continue
		}

		advanced := false
		for _, sep := range seps {
			if strings.HasPrefix(s[i:], sep) {
				if piece := strings.TrimSpace(s[start:i]); piece != "" {
					parts = append(parts, piece)
				}
				i += len(sep)
				start = i
				advanced = true
				break
			}
		}
		if !advanced {
			i++
		}
	}

	if piece := strings.TrimSpace(s[start:]); piece != "" {
		parts = append(parts, piece)
	}
	return parts
}

func parseComparison(s string) (comparison, error) {
	s = strings.TrimSpace(s)

	op := ""
	idx := -1
	if i := strings.Index(s, "!="); i >= 0 {
		op, idx = "!=", i
	} else if i := strings.Index(s, "=="); i >= 0 {
		op, idx = "==", i
	}

	if op == "" {
		key, err := parseStateRef(s)
		if err != nil {
			return comparison{}, err
		}
		return comparison{key: key, presence: true}, nil
	}

	key, err := parseStateRef(strings.TrimSpace(s[:idx]))
	if err != nil {
		return comparison{}, err
	}

	literal, err := parseLiteral(strings.TrimSpace(s[idx+2:]))
	if err != nil {
		return comparison{}, err
	}

	return comparison{key: key, op: op, literal: literal}, nil
}

func parseStateRef(s string) (string, error) {
	if !strings.HasPrefix(s, "${") || !strings.HasSuffix(s, "}") {
		return "", fmt.Errorf("expected ${key} reference, got %q", s)
	}
	key := strings.TrimSpace(s[2 : len(s)-1])
	if key == "" {
		return "", fmt.Errorf("empty state key in %q", s)
	}
	return key, nil
}

func parseLiteral(s string) (any, error) {
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		return s[1 : len(s)-1], nil
	}
	switch strings.ToLower(s) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return n, nil
	}
	return nil, fmt.Errorf("unsupported literal %q", s)
}

// looselyEqual compares a state value against a parsed literal, tolerating
// the numeric type drift introduced by JSON round-trips.
func looselyEqual(value, literal any) bool {
	if lb, ok := literal.(bool); ok {
		if vb, ok := value.(bool); ok {
			return vb == lb
		}
		return false
	}
	if ln, ok := literal.(float64); ok {
		if vn, ok := toFloat(value); ok {
			return vn == ln
		}
		return false
	}
	return fmt.Sprintf("%v", value) == fmt.Sprintf("%v", literal)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func isTruthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	case int:
		return t != 0
	}
	return true
}
