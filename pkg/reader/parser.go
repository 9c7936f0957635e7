package reader

import (
	"fmt"

	"github.com/kristofer/scheme/pkg/schemeerr"
	"github.com/kristofer/scheme/pkg/value"
)

// Parser is a recursive-descent parser over a Lexer's token stream,
// producing value.Value s-expressions directly rather than building an
// intermediate AST, since the compiler operates on data.
type Parser struct {
	l       *Lexer
	curTok  Token
	peekTok Token
	source  string
}

// New creates a Parser reading from input. source names the input for
// error messages (a file path, or "<repl>").
func New(input, source string) *Parser {
	p := &Parser{l: NewLexer(input), source: source}
	p.nextToken()
	p.nextToken()
	return p
}

func (p *Parser) nextToken() {
	p.curTok = p.peekTok
	p.peekTok = p.l.NextToken()
}

func (p *Parser) errf(format string, args ...any) error {
	return schemeerr.NewParseError(p.source, p.curTok.Line, fmt.Sprintf(format, args...))
}

// AtEOF reports whether the parser has consumed every datum in the
// input, used by callers (the REPL, Read-all file loading) to loop.
func (p *Parser) AtEOF() bool { return p.curTok.Type == TokenEOF }

// ParseDatum reads and returns one complete datum. Returns io.EOF-like
// behavior via AtEOF; calling ParseDatum at EOF is a parse error.
func (p *Parser) ParseDatum() (value.Value, error) {
	switch p.curTok.Type {
	case TokenEOF:
		return value.Undefined, p.errf("unexpected end of input")
	case TokenLParen:
		return p.parseList()
	case TokenRParen:
		return value.Undefined, p.errf("unexpected )")
	case TokenQuote:
		return p.parseWrapped("quote")
	case TokenQuasiquote:
		return p.parseWrapped("quasiquote")
	case TokenUnquote:
		return p.parseWrapped("unquote")
	case TokenUnquoteSplice:
		return p.parseWrapped("unquote-splicing")
	case TokenSymbol:
		sym := value.Sym(p.curTok.Literal)
		p.nextToken()
		return sym, nil
	case TokenInteger:
		n, err := parseIntLiteral(p.curTok.Literal)
		if err != nil {
			return value.Undefined, p.errf("malformed integer %q", p.curTok.Literal)
		}
		p.nextToken()
		return value.Int(n), nil
	case TokenReal:
		f, err := parseRealLiteral(p.curTok.Literal)
		if err != nil {
			return value.Undefined, p.errf("malformed real %q", p.curTok.Literal)
		}
		p.nextToken()
		return value.Real(f), nil
	case TokenString:
		s := value.Str(p.curTok.Literal)
		p.nextToken()
		return s, nil
	case TokenBoolean:
		b := value.Bool(p.curTok.Literal == "#t")
		p.nextToken()
		return b, nil
	case TokenDot:
		return value.Undefined, p.errf("unexpected .")
	case TokenIllegal:
		return value.Undefined, p.errf("illegal token %q", p.curTok.Literal)
	default:
		return value.Undefined, p.errf("unexpected token %s", p.curTok.Type)
	}
}

// parseWrapped reads the abbreviation's single following datum and
// wraps it as (name datum), desugaring the reader shorthand at read
// time per the quote/quasiquote/unquote/unquote-splicing convention.
func (p *Parser) parseWrapped(name string) (value.Value, error) {
	p.nextToken() // consume the abbreviation token
	inner, err := p.ParseDatum()
	if err != nil {
		return value.Undefined, err
	}
	return value.List(value.Sym(name), inner), nil
}

// parseList reads a parenthesized list, supporting an improper
// (a b . c) dotted tail.
func (p *Parser) parseList() (value.Value, error) {
	p.nextToken() // consume (
	var items []value.Value
	tail := value.Nil
	for p.curTok.Type != TokenRParen {
		if p.curTok.Type == TokenEOF {
			return value.Undefined, p.errf("unterminated list")
		}
		if p.curTok.Type == TokenDot {
			p.nextToken()
			t, err := p.ParseDatum()
			if err != nil {
				return value.Undefined, err
			}
			tail = t
			if p.curTok.Type != TokenRParen {
				return value.Undefined, p.errf("expected ) after dotted tail")
			}
			break
		}
		item, err := p.ParseDatum()
		if err != nil {
			return value.Undefined, err
		}
		items = append(items, item)
	}
	p.nextToken() // consume )
	result := tail
	for i := len(items) - 1; i >= 0; i-- {
		result = value.Cons(items[i], result)
	}
	return result, nil
}

// ParseAll reads every datum in the input, for whole-file/whole-string
// loading (the prelude, `scheme run`).
func ParseAll(input, source string) ([]value.Value, error) {
	p := New(input, source)
	var forms []value.Value
	for !p.AtEOF() {
		datum, err := p.ParseDatum()
		if err != nil {
			return nil, err
		}
		forms = append(forms, datum)
	}
	return forms, nil
}
