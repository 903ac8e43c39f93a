package rule

import (
	"log/slog"
	"strconv"
)

// Parse parses formula text into an [Expr] tree. The grammar has no
// operator precedence to resolve: every production is tried in a fixed
// order —
//
//	expr := boolean | number | string | env | array | range | call
//
// with float attempted before int, and array attempted before range
// (the two share a leading '[' and are disambiguated by whether a ':'
// or a ',' follows the first sub-expression, or by an immediate ']' for
// the empty array). Parsing must consume the entire input; trailing
// tokens are a [ErrParse].
func Parse(formula string) (Expr, error) {
	toks, err := newLexer(formula).lex()
	if err != nil {
		return nil, err
	}

	p := &parser{toks: toks}

	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	if p.cur().kind != tokEOF {
		return nil, ErrParse.With(
			slog.Int("offset", p.cur().pos),
			slog.String("reason", "trailing input after expression"),
		)
	}

	return expr, nil
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) cur() token {
	return p.toks[p.pos]
}

func (p *parser) advance() token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}

	return t
}

func (p *parser) expect(k kind) (token, error) {
	if p.cur().kind != k {
		return token{}, ErrParse.With(
			slog.Int("offset", p.cur().pos),
			slog.String("expected", k.String()),
			slog.String("found", p.cur().kind.String()),
		)
	}

	return p.advance(), nil
}

func (p *parser) parseExpr() (Expr, error) {
	switch p.cur().kind {
	case tokTrue:
		p.advance()

		return BoolLit{Value: true}, nil
	case tokFalse:
		p.advance()

		return BoolLit{Value: false}, nil
	case tokMinus, tokDigits:
		return p.parseNumber()
	case tokString:
		return StrLit{Value: p.advance().text}, nil
	case tokEnv:
		return p.parseEnv()
	case tokLBracket:
		return p.parseArrayOrRange()
	case tokIdent:
		return p.parseCall()
	default:
		return nil, ErrParse.With(
			slog.Int("offset", p.cur().pos),
			slog.String("reason", "unexpected token"),
			slog.String("found", p.cur().kind.String()),
		)
	}
}

func (p *parser) parseNumber() (Expr, error) {
	pos := p.cur().pos
	neg := false

	if p.cur().kind == tokMinus {
		neg = true
		p.advance()
	}

	intTok, err := p.expect(tokDigits)
	if err != nil {
		return nil, err
	}

	if p.cur().kind != tokDot {
		i, err := strconv.ParseInt(intTok.text, 10, 64)
		if err != nil {
			return nil, ErrParse.With(
				slog.Int("offset", pos),
				slog.String("reason", "invalid integer literal"),
			)
		}

		if neg {
			i = -i
		}

		return NumLit{IsFloat: false, Int: i}, nil
	}

	p.advance() // '.'

	fracTok, err := p.expect(tokDigits)
	if err != nil {
		return nil, err
	}

	text := intTok.text + "." + fracTok.text
	if neg {
		text = "-" + text
	}

	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, ErrParse.With(
			slog.Int("offset", pos),
			slog.String("reason", "invalid float literal"),
		)
	}

	return NumLit{IsFloat: true, Float: f}, nil
}

func (p *parser) parseEnv() (Expr, error) {
	p.advance() // "env"

	if _, err := p.expect(tokLBracket); err != nil {
		return nil, err
	}

	keyTok, err := p.expect(tokString)
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(tokRBracket); err != nil {
		return nil, err
	}

	return EnvGet{Key: keyTok.text}, nil
}

func (p *parser) parseArrayOrRange() (Expr, error) {
	p.advance() // '['

	if p.cur().kind == tokRBracket {
		p.advance()

		return ArrayLit{Elems: nil}, nil
	}

	first, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	if p.cur().kind == tokColon {
		p.advance()

		hi, err := p.parseExpr()
		if err != nil {
			return nil, err
		}

		if _, err := p.expect(tokRBracket); err != nil {
			return nil, err
		}

		return RangeLit{Lo: first, Hi: hi}, nil
	}

	elems := []Expr{first}

	for p.cur().kind == tokComma {
		p.advance()

		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}

		elems = append(elems, e)
	}

	if _, err := p.expect(tokRBracket); err != nil {
		return nil, err
	}

	return ArrayLit{Elems: elems}, nil
}

func (p *parser) parseCall() (Expr, error) {
	nameTok := p.advance()

	if _, err := p.expect(tokLParen); err != nil {
		return nil, err
	}

	var args []Expr

	if p.cur().kind != tokRParen {
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}

		args = append(args, arg)

		for p.cur().kind == tokComma {
			p.advance()

			arg, err := p.parseExpr()
			if err != nil {
				return nil, err
			}

			args = append(args, arg)
		}
	}

	if _, err := p.expect(tokRParen); err != nil {
		return nil, err
	}

	return Call{Name: nameTok.text, Args: args}, nil
}
