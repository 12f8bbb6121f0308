// Package expr implements the condition language used by section conditions
// and action enabled conditions:
//
//	is_manager
//	status == "active" && team_size >= 5
//	!(age < 18) || extras.role == "admin"
//
// Identifiers are read from visibility.Context.Values (dotted paths walk
// nested maps) and from visibility.Context.Extras through the `extras.`
// prefix. Bare identifiers on the right of a comparison are strings.
package expr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/goliatone/go-iform/pkg/visibility"
)

// Evaluator parses and evaluates conditions. Parsed expressions are cached by
// source text; the evaluator is safe for concurrent use.
type Evaluator struct {
	mu    sync.RWMutex
	cache map[string]node
}

func New() *Evaluator { return &Evaluator{cache: make(map[string]node)} }

// Eval evaluates rule. An empty rule is true.
func (e *Evaluator) Eval(_ string, rule string, ctx visibility.Context) (bool, error) {
	rule = strings.TrimSpace(rule)
	if rule == "" {
		return true, nil
	}
	n, err := e.compile(rule)
	if err != nil {
		return false, err
	}
	return n.eval(ctx)
}

// Check parses rule without evaluating it.
func (e *Evaluator) Check(rule string) error {
	if strings.TrimSpace(rule) == "" {
		return nil
	}
	_, err := e.compile(strings.TrimSpace(rule))
	return err
}

func (e *Evaluator) compile(rule string) (node, error) {
	if e == nil {
		return parse(rule)
	}
	e.mu.RLock()
	n, ok := e.cache[rule]
	e.mu.RUnlock()
	if ok {
		return n, nil
	}
	n, err := parse(rule)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	if e.cache == nil {
		e.cache = make(map[string]node)
	}
	e.cache[rule] = n
	e.mu.Unlock()
	return n, nil
}

func parse(rule string) (node, error) {
	toks, err := lex(rule)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	n, err := p.or()
	if err != nil {
		return nil, err
	}
	if !p.done() {
		return nil, fmt.Errorf("expr: unexpected %q in %q", p.peek().text, rule)
	}
	return n, nil
}

type kind int

const (
	kIdent kind = iota
	kString
	kNumber
	kBool
	kNull
	kOp
	kAnd
	kOr
	kNot
	kOpen
	kClose
)

type tok struct {
	kind kind
	text string
}

// operators are matched longest first.
var operators = []string{"==", "!=", "<=", ">=", "&&", "||", "<", ">", "!", "(", ")"}

func lex(src string) ([]tok, error) {
	var out []tok
	for i := 0; i < len(src); {
		c := src[i]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			i++
			continue
		}
		if c == '"' || c == '\'' {
			s, n, err := quoted(src[i:])
			if err != nil {
				return nil, err
			}
			out = append(out, tok{kind: kString, text: s})
			i += n
			continue
		}
		if op := operatorAt(src[i:]); op != "" {
			out = append(out, opToken(op))
			i += len(op)
			continue
		}
		if c == '=' || c == '&' || c == '|' {
			return nil, fmt.Errorf("expr: stray %q at offset %d", c, i)
		}
		start := i
		for i < len(src) && !strings.ContainsRune(" \t\r\n=!<>&|()\"'", rune(src[i])) {
			i++
		}
		out = append(out, word(src[start:i]))
	}
	return out, nil
}

func operatorAt(s string) string {
	for _, op := range operators {
		if strings.HasPrefix(s, op) {
			return op
		}
	}
	return ""
}

func opToken(op string) tok {
	switch op {
	case "&&":
		return tok{kind: kAnd, text: op}
	case "||":
		return tok{kind: kOr, text: op}
	case "!":
		return tok{kind: kNot, text: op}
	case "(":
		return tok{kind: kOpen, text: op}
	case ")":
		return tok{kind: kClose, text: op}
	}
	return tok{kind: kOp, text: op}
}

func word(w string) tok {
	switch strings.ToLower(w) {
	case "true", "false":
		return tok{kind: kBool, text: strings.ToLower(w)}
	case "null", "nil":
		return tok{kind: kNull, text: "null"}
	}
	if _, err := strconv.ParseFloat(w, 64); err == nil {
		return tok{kind: kNumber, text: w}
	}
	return tok{kind: kIdent, text: w}
}

// quoted reads a quoted literal at the start of s and returns its value and
// the number of bytes consumed.
func quoted(s string) (string, int, error) {
	q := s[0]
	escaped := false
	for i := 1; i < len(s); i++ {
		switch {
		case escaped:
			escaped = false
		case s[i] == '\\':
			escaped = true
		case s[i] == q:
			body := s[1:i]
			if q == '\'' {
				body = strings.ReplaceAll(body, `\'`, `'`)
				body = strings.ReplaceAll(body, `"`, `\"`)
			}
			v, err := strconv.Unquote(`"` + body + `"`)
			if err != nil {
				return "", 0, fmt.Errorf("expr: bad string literal %s: %w", s[:i+1], err)
			}
			return v, i + 1, nil
		}
	}
	return "", 0, errors.New("expr: unterminated string literal")
}

type parser struct {
	toks []tok
	pos  int
}

func (p *parser) done() bool { return p.pos >= len(p.toks) }

func (p *parser) peek() tok {
	if p.done() {
		return tok{kind: -1}
	}
	return p.toks[p.pos]
}

func (p *parser) accept(k kind) (tok, bool) {
	if p.done() || p.toks[p.pos].kind != k {
		return tok{}, false
	}
	t := p.toks[p.pos]
	p.pos++
	return t, true
}

func (p *parser) or() (node, error) {
	left, err := p.and()
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := p.accept(kOr); !ok {
			return left, nil
		}
		right, err := p.and()
		if err != nil {
			return nil, err
		}
		left = orNode{left, right}
	}
}

func (p *parser) and() (node, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := p.accept(kAnd); !ok {
			return left, nil
		}
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		left = andNode{left, right}
	}
}

func (p *parser) unary() (node, error) {
	if _, ok := p.accept(kNot); ok {
		inner, err := p.unary()
		if err != nil {
			return nil, err
		}
		return notNode{inner}, nil
	}
	if _, ok := p.accept(kOpen); ok {
		inner, err := p.or()
		if err != nil {
			return nil, err
		}
		if _, ok := p.accept(kClose); !ok {
			return nil, errors.New("expr: missing ')'")
		}
		return inner, nil
	}
	ident, ok := p.accept(kIdent)
	if !ok {
		if p.done() {
			return nil, errors.New("expr: unexpected end of expression")
		}
		return nil, fmt.Errorf("expr: expected identifier, got %q", p.peek().text)
	}
	op, ok := p.accept(kOp)
	if !ok {
		return truthNode{path: ident.text}, nil
	}
	if p.done() {
		return nil, fmt.Errorf("expr: missing operand after %s", op.text)
	}
	lit := p.toks[p.pos]
	p.pos++
	switch lit.kind {
	case kString, kNumber, kBool, kNull:
	case kIdent:
		lit.kind = kString
	default:
		return nil, fmt.Errorf("expr: expected literal after %s, got %q", op.text, lit.text)
	}
	cmp := compareNode{path: ident.text, op: op.text, lit: lit}
	if lit.kind == kNumber {
		cmp.num, _ = strconv.ParseFloat(lit.text, 64)
	} else if op.text != "==" && op.text != "!=" {
		return nil, fmt.Errorf("expr: %s needs a number, got %q", op.text, lit.text)
	}
	return cmp, nil
}

type node interface {
	eval(ctx visibility.Context) (bool, error)
}

type orNode struct{ left, right node }

func (n orNode) eval(ctx visibility.Context) (bool, error) {
	ok, err := n.left.eval(ctx)
	if err != nil || ok {
		return ok, err
	}
	return n.right.eval(ctx)
}

type andNode struct{ left, right node }

func (n andNode) eval(ctx visibility.Context) (bool, error) {
	ok, err := n.left.eval(ctx)
	if err != nil || !ok {
		return false, err
	}
	return n.right.eval(ctx)
}

type notNode struct{ inner node }

func (n notNode) eval(ctx visibility.Context) (bool, error) {
	ok, err := n.inner.eval(ctx)
	return !ok && err == nil, err
}

type truthNode struct{ path string }

func (n truthNode) eval(ctx visibility.Context) (bool, error) {
	v, _ := lookup(ctx, n.path)
	return truthy(v), nil
}

type compareNode struct {
	path string
	op   string
	lit  tok
	num  float64
}

func (n compareNode) eval(ctx visibility.Context) (bool, error) {
	v, _ := lookup(ctx, n.path)
	var eq bool
	switch n.lit.kind {
	case kNull:
		eq = v == nil
	case kBool:
		eq = truthy(v) == (n.lit.text == "true")
	case kNumber:
		got, ok := number(v)
		if !ok {
			// Ordering against a missing or non-numeric value is false.
			return n.op == "!=", nil
		}
		switch n.op {
		case "<":
			return got < n.num, nil
		case "<=":
			return got <= n.num, nil
		case ">":
			return got > n.num, nil
		case ">=":
			return got >= n.num, nil
		}
		eq = got == n.num
	default:
		eq = text(v) == n.lit.text
	}
	switch n.op {
	case "==":
		return eq, nil
	case "!=":
		return !eq, nil
	}
	return false, fmt.Errorf("expr: %s not supported for %s", n.op, n.lit.text)
}

func lookup(ctx visibility.Context, path string) (any, bool) {
	values := ctx.Values
	if rest, ok := cutFold(path, "extras."); ok {
		values, path = ctx.Extras, rest
	}
	if len(values) == 0 || path == "" {
		return nil, false
	}
	if v, ok := values[path]; ok {
		return v, true
	}
	var cur any = values
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[part]; !ok {
			return nil, false
		}
	}
	return cur, true
}

func cutFold(s, prefix string) (string, bool) {
	if len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
		return s[len(prefix):], true
	}
	return s, false
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(t)); err == nil {
			return b
		}
		return strings.TrimSpace(t) != ""
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	}
	if n, ok := number(v); ok {
		return n != 0
	}
	return true
}

func number(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint:
		return float64(t), true
	case uint64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	}
	return 0, false
}

func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}
