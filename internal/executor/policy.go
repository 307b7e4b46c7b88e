package executor

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

var readOnlyVerbs = map[string]bool{
	"SELECT":   true,
	"SHOW":     true,
	"EXPLAIN":  true,
	"DESCRIBE": true,
	"DESC":     true,
	"VALUES":   true,
	"TABLE":    true,
}

var writeKeyword = regexp.MustCompile(`(?i)\b(INSERT|UPDATE|DELETE|MERGE|TRUNCATE|DROP|ALTER|CREATE|GRANT|REVOKE)\b`)

// Policy decides whether a statement may run. The zero Policy allows everything.
//
// The expression sees:
//
//	statement  the statement text
//	verb       the first keyword, upper-cased ("SELECT", "INSERT", ...)
//	read_only  true for a single statement whose verb only reads
type Policy struct {
	source string
	prog   *vm.Program
}

// CompilePolicy compiles a boolean expression. An empty expression allows every statement.
func CompilePolicy(expression string) (*Policy, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return &Policy{}, nil
	}
	prog, err := expr.Compile(expression, expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile statement policy: %w", err)
	}
	return &Policy{source: expression, prog: prog}, nil
}

// Allow evaluates the policy against statement.
func (p *Policy) Allow(statement string) (bool, error) {
	if p == nil || p.prog == nil {
		return true, nil
	}
	verb := Verb(statement)
	env := map[string]any{
		"statement": statement,
		"verb":      verb,
		"read_only": ReadOnly(statement),
	}
	result, err := expr.Run(p.prog, env)
	if err != nil {
		return false, fmt.Errorf("evaluate statement policy: %w", err)
	}
	allowed, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("statement policy did not return bool")
	}
	return allowed, nil
}

// Verb returns the first keyword of a statement, skipping comments and opening parentheses.
func Verb(statement string) string {
	s := stripLeading(statement)
	end := strings.IndexFunc(s, func(r rune) bool {
		return !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z')
	})
	if end >= 0 {
		s = s[:end]
	}
	return strings.ToUpper(s)
}

// ReadOnly reports whether statement is a single statement that only reads.
// Common table expressions count as reads unless they contain a write keyword.
func ReadOnly(statement string) bool {
	body := strings.TrimRight(strings.TrimSpace(statement), "; \t\r\n")
	if strings.Contains(body, ";") {
		return false
	}
	verb := Verb(body)
	if verb == "WITH" {
		return !writeKeyword.MatchString(body)
	}
	return readOnlyVerbs[verb]
}

func stripLeading(s string) string {
	for {
		s = strings.TrimLeft(s, " \t\r\n(")
		switch {
		case strings.HasPrefix(s, "--"):
			nl := strings.IndexByte(s, '\n')
			if nl < 0 {
				return ""
			}
			s = s[nl+1:]
		case strings.HasPrefix(s, "/*"):
			end := strings.Index(s, "*/")
			if end < 0 {
				return ""
			}
			s = s[end+2:]
		default:
			return s
		}
	}
}
