package query

import (
	"fmt"
	"strings"
)

// Parse turns an RSQL expression into an AST. Semicolon binds tighter
// than comma, matching the RSQL reference grammar where “a,b;c” reads as
// a OR (b AND c).
func Parse(input string) (Node, error) {
	p := &parser{input: input}
	node, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	p.skipSpaces()
	if p.pos < len(p.input) {
		return nil, fmt.Errorf("unexpected trailing input at offset %d: %q", p.pos, p.input[p.pos:])
	}
	return node, nil
}

type parser struct {
	input string
	pos   int
}

func (p *parser) parseOr() (Node, error) {
	first, err := p.parseAnd()
	if err != nil {
		return nil, err
	}

	children := []Node{first}
	for p.consume(',') {
		next, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		children = append(children, next)
	}
	if len(children) == 1 {
		return first, nil
	}
	return &OrNode{Children: children}, nil
}

func (p *parser) parseAnd() (Node, error) {
	first, err := p.parseConstraint()
	if err != nil {
		return nil, err
	}

	children := []Node{first}
	for p.consume(';') {
		next, err := p.parseConstraint()
		if err != nil {
			return nil, err
		}
		children = append(children, next)
	}
	if len(children) == 1 {
		return first, nil
	}
	return &AndNode{Children: children}, nil
}

func (p *parser) parseConstraint() (Node, error) {
	p.skipSpaces()
	if p.consume('(') {
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if !p.consume(')') {
			return nil, fmt.Errorf("missing closing parenthesis at offset %d", p.pos)
		}
		return inner, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (Node, error) {
	selector := p.readWhile(func(r byte) bool {
		return r != '=' && r != '!' && r != '<' && r != '>' && r != ',' && r != ';' && r != '(' && r != ')' && r != ' '
	})
	if selector == "" {
		return nil, fmt.Errorf("expected field selector at offset %d", p.pos)
	}

	operator, err := p.readOperator()
	if err != nil {
		return nil, err
	}

	args, err := p.readArguments()
	if err != nil {
		return nil, err
	}

	return &ComparisonNode{Selector: selector, Operator: operator, Arguments: args}, nil
}

// readOperator consumes == / != or a FIQL =xx= form. Unknown FIQL tokens
// are returned as written; the translator decides whether they are
// supported.
func (p *parser) readOperator() (string, error) {
	if strings.HasPrefix(p.input[p.pos:], "==") {
		p.pos += 2
		return "==", nil
	}
	if strings.HasPrefix(p.input[p.pos:], "!=") {
		p.pos += 2
		return "!=", nil
	}
	if p.pos < len(p.input) && p.input[p.pos] == '=' {
		end := strings.IndexByte(p.input[p.pos+1:], '=')
		if end < 0 {
			return "", fmt.Errorf("unterminated operator at offset %d", p.pos)
		}
		op := p.input[p.pos : p.pos+end+2]
		p.pos += end + 2
		return op, nil
	}
	return "", fmt.Errorf("expected comparison operator at offset %d", p.pos)
}

func (p *parser) readArguments() ([]string, error) {
	p.skipSpaces()
	if p.consume('(') {
		var args []string
		for {
			v, err := p.readValue()
			if err != nil {
				return nil, err
			}
			args = append(args, v)
			if p.consume(',') {
				continue
			}
			if p.consume(')') {
				return args, nil
			}
			return nil, fmt.Errorf("expected ',' or ')' in argument list at offset %d", p.pos)
		}
	}

	v, err := p.readValue()
	if err != nil {
		return nil, err
	}
	return []string{v}, nil
}

func (p *parser) readValue() (string, error) {
	p.skipSpaces()
	if p.pos < len(p.input) && (p.input[p.pos] == '\'' || p.input[p.pos] == '"') {
		quote := p.input[p.pos]
		p.pos++
		start := p.pos
		for p.pos < len(p.input) && p.input[p.pos] != quote {
			p.pos++
		}
		if p.pos >= len(p.input) {
			return "", fmt.Errorf("unterminated quoted value starting at offset %d", start-1)
		}
		v := p.input[start:p.pos]
		p.pos++
		return v, nil
	}

	v := p.readWhile(func(r byte) bool {
		return r != ',' && r != ';' && r != '(' && r != ')' && r != ' '
	})
	if v == "" {
		return "", fmt.Errorf("expected value at offset %d", p.pos)
	}
	return v, nil
}

func (p *parser) readWhile(keep func(byte) bool) string {
	start := p.pos
	for p.pos < len(p.input) && keep(p.input[p.pos]) {
		p.pos++
	}
	return p.input[start:p.pos]
}

func (p *parser) consume(r byte) bool {
	p.skipSpaces()
	if p.pos < len(p.input) && p.input[p.pos] == r {
		p.pos++
		return true
	}
	return false
}

func (p *parser) skipSpaces() {
	for p.pos < len(p.input) && p.input[p.pos] == ' ' {
		p.pos++
	}
}
