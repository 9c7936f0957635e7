package reader

import "testing"

func TestNextToken_BasicTokens(t *testing.T) {
	input := `( ) ' ` + "`" + ` , ,@ . #t #f`

	tests := []struct {
		expectedType    TokenType
		expectedLiteral string
	}{
		{TokenLParen, "("},
		{TokenRParen, ")"},
		{TokenQuote, "'"},
		{TokenQuasiquote, "`"},
		{TokenUnquote, ","},
		{TokenUnquoteSplice, ",@"},
		{TokenDot, "."},
		{TokenBoolean, "#t"},
		{TokenBoolean, "#f"},
		{TokenEOF, ""},
	}

	l := NewLexer(input)
	for i, tt := range tests {
		tok := l.NextToken()
		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q", i, tt.expectedType, tok.Type)
		}
		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q", i, tt.expectedLiteral, tok.Literal)
		}
	}
}

func TestNextToken_Atoms(t *testing.T) {
	input := `foo bar? set! 42 -7 3.14 -0.5 "hello world"`

	tests := []struct {
		expectedType    TokenType
		expectedLiteral string
	}{
		{TokenSymbol, "foo"},
		{TokenSymbol, "bar?"},
		{TokenSymbol, "set!"},
		{TokenInteger, "42"},
		{TokenInteger, "-7"},
		{TokenReal, "3.14"},
		{TokenReal, "-0.5"},
		{TokenString, "hello world"},
		{TokenEOF, ""},
	}

	l := NewLexer(input)
	for i, tt := range tests {
		tok := l.NextToken()
		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q", i, tt.expectedType, tok.Type)
		}
		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q", i, tt.expectedLiteral, tok.Literal)
		}
	}
}

func TestNextToken_CommentsAreSkipped(t *testing.T) {
	input := "; a leading comment\n(+ 1 2) ; trailing"

	l := NewLexer(input)
	var types []TokenType
	for {
		tok := l.NextToken()
		types = append(types, tok.Type)
		if tok.Type == TokenEOF {
			break
		}
	}
	want := []TokenType{TokenLParen, TokenSymbol, TokenInteger, TokenInteger, TokenRParen, TokenEOF}
	if len(types) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(types), len(want), types)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("token[%d] = %s, want %s", i, types[i], want[i])
		}
	}
}

func TestNextToken_DotVsNegativeNumber(t *testing.T) {
	input := `(a . b) -5`
	tests := []TokenType{TokenLParen, TokenSymbol, TokenDot, TokenSymbol, TokenRParen, TokenInteger, TokenEOF}
	l := NewLexer(input)
	for i, want := range tests {
		tok := l.NextToken()
		if tok.Type != want {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q", i, want, tok.Type)
		}
	}
}
