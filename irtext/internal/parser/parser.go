package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/irlink/irlink/ir"
	"github.com/irlink/irlink/irtext/internal/token"
)

type Parser struct {
	mod    *ir.Module
	tokens []token.Token
	pos    int
}

func New(name string, tokens []token.Token) *Parser {
	return &Parser{
		mod:    ir.NewModule(name),
		tokens: tokens,
	}
}

func (p *Parser) Parse() (*ir.Module, error) {
	if err := p.parseModule(); err != nil {
		return nil, err
	}
	return p.mod, nil
}

func (p *Parser) peek() *token.Token {
	if p.pos >= len(p.tokens) {
		return nil
	}
	return &p.tokens[p.pos]
}

func (p *Parser) next() *token.Token {
	if p.pos >= len(p.tokens) {
		return nil
	}
	t := &p.tokens[p.pos]
	p.pos++
	return t
}

func (p *Parser) expect(typ token.Type) (*token.Token, error) {
	t := p.next()
	if t == nil {
		return nil, fmt.Errorf("unexpected end of input")
	}
	if t.Type != typ {
		return nil, fmt.Errorf("line %d: expected %v, got %q", t.Line, typ, t.Value)
	}
	return t, nil
}

func (p *Parser) expectKeyword(kw string) error {
	t, err := p.expect(token.Ident)
	if err != nil {
		return err
	}
	if t.Value != kw {
		return fmt.Errorf("line %d: expected %q, got %q", t.Line, kw, t.Value)
	}
	return nil
}

// parseName reads a $-prefixed symbol name and strips the sigil.
func (p *Parser) parseName() (string, error) {
	t, err := p.expect(token.Ident)
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(t.Value, "$") || len(t.Value) < 2 {
		return "", fmt.Errorf("line %d: expected $name, got %q", t.Line, t.Value)
	}
	return t.Value[1:], nil
}

func (p *Parser) parseModule() error {
	if _, err := p.expect(token.LParen); err != nil {
		return err
	}
	if err := p.expectKeyword("module"); err != nil {
		return err
	}

	// An optional in-file module name is accepted but the source
	// identifier supplied by the loader stays authoritative.
	if t := p.peek(); t != nil && t.Type == token.Ident && strings.HasPrefix(t.Value, "$") {
		p.next()
	}

	for {
		t := p.peek()
		if t == nil {
			return fmt.Errorf("unexpected end of input in module")
		}
		if t.Type == token.RParen {
			p.next()
			break
		}
		if err := p.parseField(); err != nil {
			return err
		}
	}

	if t := p.peek(); t != nil {
		return fmt.Errorf("line %d: trailing input after module", t.Line)
	}
	return nil
}

func (p *Parser) parseField() error {
	if _, err := p.expect(token.LParen); err != nil {
		return err
	}
	t, err := p.expect(token.Ident)
	if err != nil {
		return err
	}
	switch t.Value {
	case "meta":
		return p.parseMeta()
	case "func":
		return p.parseGlobal(ir.KindFunc)
	case "var":
		return p.parseGlobal(ir.KindVar)
	default:
		return fmt.Errorf("line %d: unknown field %q", t.Line, t.Value)
	}
}

func (p *Parser) parseMeta() error {
	key, err := p.expect(token.String)
	if err != nil {
		return err
	}
	value, err := p.expect(token.String)
	if err != nil {
		return err
	}
	if _, err := p.expect(token.RParen); err != nil {
		return err
	}
	if key.Value == "" {
		return fmt.Errorf("line %d: empty metadata key", key.Line)
	}
	p.mod.Meta[key.Value] = value.Value
	return nil
}

func (p *Parser) parseGlobal(kind ir.GlobalKind) error {
	name, err := p.parseName()
	if err != nil {
		return err
	}

	lt, err := p.expect(token.Ident)
	if err != nil {
		return err
	}
	linkage, ok := ir.ParseLinkage(lt.Value)
	if !ok {
		return fmt.Errorf("line %d: unknown linkage %q", lt.Line, lt.Value)
	}

	// A bare "declare" keyword marks a declaration; otherwise the global
	// is a definition with a (possibly empty) body.
	if t := p.peek(); t != nil && t.Type == token.Ident && t.Value == "declare" {
		p.next()
		if _, err := p.expect(token.RParen); err != nil {
			return err
		}
		return p.mod.AddGlobal(ir.NewGlobal(name, kind, linkage, nil))
	}

	body := &ir.Body{}
	for {
		t := p.peek()
		if t == nil {
			return fmt.Errorf("unexpected end of input in %s $%s", kind, name)
		}
		if t.Type == token.RParen {
			p.next()
			break
		}
		in, err := p.parseInstr()
		if err != nil {
			return err
		}
		body.Instrs = append(body.Instrs, in)
	}

	return p.mod.AddGlobal(ir.NewGlobal(name, kind, linkage, body))
}

func (p *Parser) parseInstr() (ir.Instr, error) {
	if _, err := p.expect(token.LParen); err != nil {
		return ir.Instr{}, err
	}
	t, err := p.expect(token.Ident)
	if err != nil {
		return ir.Instr{}, err
	}

	var in ir.Instr
	switch t.Value {
	case "const":
		n, err := p.expect(token.Number)
		if err != nil {
			return ir.Instr{}, err
		}
		v, err := strconv.ParseInt(n.Value, 10, 64)
		if err != nil {
			return ir.Instr{}, fmt.Errorf("line %d: bad constant %q", n.Line, n.Value)
		}
		in = ir.Instr{Op: ir.OpConst, Val: v}
	case "ref":
		sym, err := p.parseName()
		if err != nil {
			return ir.Instr{}, err
		}
		in = ir.Instr{Op: ir.OpRef, Sym: sym}
	case "call":
		sym, err := p.parseName()
		if err != nil {
			return ir.Instr{}, err
		}
		in = ir.Instr{Op: ir.OpCall, Sym: sym}
	case "ret":
		in = ir.Instr{Op: ir.OpRet}
	default:
		return ir.Instr{}, fmt.Errorf("line %d: unknown instruction %q", t.Line, t.Value)
	}

	if _, err := p.expect(token.RParen); err != nil {
		return ir.Instr{}, err
	}
	return in, nil
}
