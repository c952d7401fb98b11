package validator

import (
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// sqlLexer tokenizes the narrow SQL shape the validator cares about:
// strings, comments and quoted identifiers are recognized as whole tokens
// so keyword and reference scanning never looks inside them. This is not a
// SQL parser and deliberately stays one.
var sqlLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "LineComment", Pattern: `--[^\n]*`},
	{Name: "BlockComment", Pattern: `/\*(?:[^*]|\*+[^*/])*\*+/`},

	// Standard SQL strings escape quotes by doubling them.
	{Name: "String", Pattern: `'(?:[^']|'')*'`},

	// Double quotes (PostgreSQL/Oracle/SQLite), backticks (MySQL),
	// brackets (SQL Server).
	{Name: "QuotedIdent", Pattern: `"(?:[^"]|"")*"|` + "`[^`]*`" + `|\[[^\[\]]*\]`},

	{Name: "Placeholder", Pattern: `\$\d+|@p\d+|:\d+|\?`},
	{Name: "Number", Pattern: `\d+(?:\.\d+)?`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_$]*`},

	{Name: "LParen", Pattern: `\(`},
	{Name: "RParen", Pattern: `\)`},
	{Name: "Comma", Pattern: `,`},
	{Name: "Dot", Pattern: `\.`},
	{Name: "Star", Pattern: `\*`},
	{Name: "Semi", Pattern: `;`},
	{Name: "Op", Pattern: `<>|<=|>=|!=|[=<>+\-/%]`},

	{Name: "Whitespace", Pattern: `\s+`},
})

// tokenNames maps participle token types back to rule names.
var tokenNames = func() map[lexer.TokenType]string {
	names := make(map[lexer.TokenType]string)
	for name, typ := range sqlLexer.Symbols() {
		names[typ] = name
	}
	return names
}()

type token struct {
	kind  string
	value string
}

// lexSQL tokenizes sql, dropping whitespace and comments. An error means
// the text cannot be tokenized at all, e.g. an unterminated string or
// quoted identifier.
func lexSQL(sql string) ([]token, error) {
	lx, err := sqlLexer.LexString("", sql)
	if err != nil {
		return nil, err
	}

	var tokens []token
	for {
		tok, err := lx.Next()
		if err != nil {
			return nil, err
		}
		if tok.EOF() {
			return tokens, nil
		}
		kind := tokenNames[tok.Type]
		if kind == "Whitespace" || kind == "LineComment" || kind == "BlockComment" {
			continue
		}
		tokens = append(tokens, token{kind: kind, value: tok.Value})
	}
}

// identValue returns the bare name of an identifier token, stripping and
// unescaping any dialect quoting. ok is false for non-identifier tokens.
func identValue(t token) (string, bool) {
	switch t.kind {
	case "Ident":
		return t.value, true
	case "QuotedIdent":
		v := t.value
		switch {
		case strings.HasPrefix(v, `"`):
			return strings.ReplaceAll(v[1:len(v)-1], `""`, `"`), true
		case strings.HasPrefix(v, "`"):
			return v[1 : len(v)-1], true
		case strings.HasPrefix(v, "["):
			return v[1 : len(v)-1], true
		}
		return v, true
	default:
		return "", false
	}
}

// isKeyword reports whether t is the given bare (unquoted) keyword,
// case-insensitively. Quoted identifiers are never keywords.
func isKeyword(t token, keyword string) bool {
	return t.kind == "Ident" && strings.EqualFold(t.value, keyword)
}
