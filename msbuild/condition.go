package msbuild

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// conditionError is returned for conditions that cannot be parsed or evaluated.
type conditionError struct {
	Condition string
	Msg       string
}

func (e *conditionError) Error() string {
	return fmt.Sprintf("the condition %q is invalid: %s", e.Condition, e.Msg)
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokString
	tokWord
	tokLParen
	tokRParen
	tokComma
	tokNot
	tokAnd
	tokOr
	tokCompare
)

type token struct {
	kind  tokenKind
	value string
}

func tokenize(cond string) ([]token, error) {
	var toks []token
	for i := 0; i < len(cond); {
		c := cond[i]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			i++
		case c == '\'':
			end := strings.IndexByte(cond[i+1:], '\'')
			if end < 0 {
				return nil, &conditionError{Condition: cond, Msg: "unterminated quoted string"}
			}
			toks = append(toks, token{tokString, cond[i+1 : i+1+end]})
			i += end + 2
		case c == '(':
			toks = append(toks, token{kind: tokLParen})
			i++
		case c == ')':
			toks = append(toks, token{kind: tokRParen})
			i++
		case c == ',':
			toks = append(toks, token{kind: tokComma})
			i++
		case c == '=' || c == '!' || c == '<' || c == '>':
			if i+1 < len(cond) && cond[i+1] == '=' {
				toks = append(toks, token{tokCompare, cond[i : i+2]})
				i += 2
				continue
			}
			switch c {
			case '!':
				toks = append(toks, token{kind: tokNot})
			case '=':
				return nil, &conditionError{Condition: cond, Msg: "expected '=='"}
			default:
				toks = append(toks, token{tokCompare, string(c)})
			}
			i++
		default:
			start := i
			for i < len(cond) {
				ch := cond[i]
				if (ch == '$' || ch == '@' || ch == '%') && i+1 < len(cond) && cond[i+1] == '(' {
					end := matchParen(cond, i+1)
					if end < 0 {
						return nil, &conditionError{Condition: cond, Msg: "unbalanced parentheses"}
					}
					i = end + 1
					continue
				}
				if strings.IndexByte(" \t\r\n'(),=!<>", ch) >= 0 {
					break
				}
				i++
			}
			word := cond[start:i]
			switch strings.ToLower(word) {
			case "and":
				toks = append(toks, token{kind: tokAnd})
			case "or":
				toks = append(toks, token{kind: tokOr})
			default:
				toks = append(toks, token{tokWord, word})
			}
		}
	}
	return append(toks, token{kind: tokEOF}), nil
}

// conditionNode is a node of a parsed condition expression.
type conditionNode interface {
	eval(env *conditionEnv) (bool, error)
}

type (
	orNode struct{ left, right conditionNode }
	andNode struct{ left, right conditionNode }
	notNode struct{ operand conditionNode }

	compareNode struct {
		op          string
		left, right operand
	}

	functionNode struct {
		name string
		args []operand
	}

	// boolNode is a bare operand used as a boolean, e.g. 'true' or $(SignAssembly).
	boolNode struct{ value operand }
)

// operand is an unexpanded value of a condition.
type operand struct {
	raw    string
	quoted bool
}

// conditionEnv supplies values while evaluating a condition.
type conditionEnv struct {
	condition string
	props     propertyLookup
	items     itemLookup
	baseDir   string
}

func (e *conditionEnv) expand(o operand) string {
	s := expandProperties(o.raw, e.props)
	if e.items != nil {
		s = expandItems(s, e.items)
	}
	return s
}

func (e *conditionEnv) fail(format string, args ...any) error {
	return &conditionError{Condition: e.condition, Msg: fmt.Sprintf(format, args...)}
}

func (n *orNode) eval(env *conditionEnv) (bool, error) {
	l, err := n.left.eval(env)
	if err != nil || l {
		return l, err
	}
	return n.right.eval(env)
}

func (n *andNode) eval(env *conditionEnv) (bool, error) {
	l, err := n.left.eval(env)
	if err != nil || !l {
		return false, err
	}
	return n.right.eval(env)
}

func (n *notNode) eval(env *conditionEnv) (bool, error) {
	v, err := n.operand.eval(env)
	return !v, err
}

func (n *boolNode) eval(env *conditionEnv) (bool, error) {
	v := env.expand(n.value)
	switch {
	case IsTrue(v):
		return true, nil
	case IsFalse(v):
		return false, nil
	}
	return false, env.fail("%q evaluates to %q instead of a boolean", n.value.raw, v)
}

func (n *compareNode) eval(env *conditionEnv) (bool, error) {
	l := env.expand(n.left)
	r := env.expand(n.right)

	ln, lok := parseNumber(l)
	rn, rok := parseNumber(r)
	numeric := lok && rok

	switch n.op {
	case "==":
		if numeric {
			return ln == rn, nil
		}
		return strings.EqualFold(l, r), nil
	case "!=":
		if numeric {
			return ln != rn, nil
		}
		return !strings.EqualFold(l, r), nil
	}

	if !numeric {
		return false, env.fail("operator %q requires numeric operands but got %q and %q", n.op, l, r)
	}
	switch n.op {
	case "<":
		return ln < rn, nil
	case ">":
		return ln > rn, nil
	case "<=":
		return ln <= rn, nil
	case ">=":
		return ln >= rn, nil
	}
	return false, env.fail("unknown operator %q", n.op)
}

func (n *functionNode) eval(env *conditionEnv) (bool, error) {
	if len(n.args) != 1 {
		return false, env.fail("function %s expects one argument", n.name)
	}
	arg := env.expand(n.args[0])

	switch strings.ToLower(n.name) {
	case "exists":
		arg = strings.TrimSpace(arg)
		if arg == "" {
			return false, nil
		}
		path := ToSystemPath(arg)
		if !filepath.IsAbs(path) {
			path = filepath.Join(env.baseDir, path)
		}
		_, err := os.Stat(path)
		return err == nil, nil
	case "hastrailingslash":
		return strings.HasSuffix(arg, "/") || strings.HasSuffix(arg, "\\"), nil
	}
	return false, env.fail("unknown function %s", n.name)
}

func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err := strconv.ParseInt(s[2:], 16, 64)
		return float64(v), err == nil
	}
	v, err := strconv.ParseFloat(s, 64)
	return v, err == nil
}

// conditionParser is a recursive descent parser over the token stream:
//
//	or      := and { "or" and }
//	and     := unary { "and" unary }
//	unary   := "!" unary | primary
//	primary := "(" or ")" | func "(" args ")" | operand [ cmp operand ]
type conditionParser struct {
	cond string
	toks []token
	pos  int

	// comparisons collects every == / != comparison for conditioned property capture
	comparisons []*compareNode
}

func (p *conditionParser) peek() token { return p.toks[p.pos] }

func (p *conditionParser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *conditionParser) fail(format string, args ...any) error {
	return &conditionError{Condition: p.cond, Msg: fmt.Sprintf(format, args...)}
}

func (p *conditionParser) parseOr() (conditionNode, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokOr {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &orNode{left, right}
	}
	return left, nil
}

func (p *conditionParser) parseAnd() (conditionNode, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokAnd {
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &andNode{left, right}
	}
	return left, nil
}

func (p *conditionParser) parseUnary() (conditionNode, error) {
	if p.peek().kind == tokNot {
		p.next()
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &notNode{inner}, nil
	}
	return p.parsePrimary()
}

func (p *conditionParser) parsePrimary() (conditionNode, error) {
	t := p.next()
	switch t.kind {
	case tokLParen:
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.next().kind != tokRParen {
			return nil, p.fail("expected ')'")
		}
		return inner, nil
	case tokWord:
		if p.peek().kind == tokLParen && !strings.ContainsAny(t.value, "$@%") {
			return p.parseFunction(t.value)
		}
		return p.parseComparison(operand{raw: t.value})
	case tokString:
		return p.parseComparison(operand{raw: t.value, quoted: true})
	case tokEOF:
		return nil, p.fail("unexpected end of condition")
	}
	return nil, p.fail("unexpected token")
}

func (p *conditionParser) parseFunction(name string) (conditionNode, error) {
	p.next() // (
	fn := &functionNode{name: name}
	for p.peek().kind != tokRParen {
		t := p.next()
		switch t.kind {
		case tokString:
			fn.args = append(fn.args, operand{raw: t.value, quoted: true})
		case tokWord:
			fn.args = append(fn.args, operand{raw: t.value})
		default:
			return nil, p.fail("invalid argument to %s", name)
		}
		if p.peek().kind == tokComma {
			p.next()
		}
	}
	p.next() // )
	return fn, nil
}

func (p *conditionParser) parseComparison(left operand) (conditionNode, error) {
	if p.peek().kind != tokCompare {
		return &boolNode{left}, nil
	}
	op := p.next().value
	t := p.next()
	if t.kind != tokString && t.kind != tokWord {
		return nil, p.fail("expected a value after %q", op)
	}
	node := &compareNode{op: op, left: left, right: operand{raw: t.value, quoted: t.kind == tokString}}
	if op == "==" || op == "!=" {
		p.comparisons = append(p.comparisons, node)
	}
	return node, nil
}

// parsedCondition is a condition ready to evaluate along with its == / != comparisons.
type parsedCondition struct {
	root        conditionNode
	comparisons []*compareNode
}

func parseCondition(cond string) (*parsedCondition, error) {
	toks, err := tokenize(cond)
	if err != nil {
		return nil, err
	}
	p := &conditionParser{cond: cond, toks: toks}
	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		return nil, p.fail("unexpected trailing text")
	}
	return &parsedCondition{root: root, comparisons: p.comparisons}, nil
}

// conditionedProperties extracts property/value pairs from comparisons of the form
// '$(Configuration)|$(Platform)' == 'Debug|AnyCPU'.
func (c *parsedCondition) conditionedProperties() [][2]string {
	var out [][2]string
	for _, cmp := range c.comparisons {
		props, values := cmp.left.raw, cmp.right.raw
		if !strings.Contains(props, "$(") {
			props, values = values, props
		}
		if !strings.Contains(props, "$(") || strings.Contains(values, "$(") {
			continue
		}

		names := strings.Split(props, "|")
		vals := strings.Split(values, "|")
		if len(names) != len(vals) {
			continue
		}
		for i, n := range names {
			n = strings.TrimSpace(n)
			if !strings.HasPrefix(n, "$(") || !strings.HasSuffix(n, ")") {
				continue
			}
			name := strings.TrimSpace(n[2 : len(n)-1])
			v := strings.TrimSpace(vals[i])
			if isPropertyName(name) && v != "" {
				out = append(out, [2]string{name, v})
			}
		}
	}
	return out
}

// evaluateCondition reports whether cond holds; an empty condition is true.
func evaluateCondition(cond string, env *conditionEnv) (bool, *parsedCondition, error) {
	if strings.TrimSpace(cond) == "" {
		return true, nil, nil
	}
	parsed, err := parseCondition(cond)
	if err != nil {
		return false, nil, err
	}
	env.condition = cond
	ok, err := parsed.root.eval(env)
	return ok, parsed, err
}
