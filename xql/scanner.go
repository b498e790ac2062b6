// Package xql tokenizes pipeline scripts.
//
// A script is line oriented: the first token on each logical line is a verb,
// the rest are arguments. Lines end at a newline or ';'. Whitespace and
// commas separate tokens outside quotes, '#' starts a comment, and blank lines
// are skipped so every Newline token ends a non-empty line.
package xql

import (
	"strings"
	"unicode"
)

// TokenType classifies a token.
type TokenType int

const (
	End TokenType = iota
	Verb
	ColumnName
	Value
	Newline
)

func (t TokenType) String() string {
	switch t {
	case Verb:
		return "Verb"
	case ColumnName:
		return "ColumnName"
	case Value:
		return "Value"
	case Newline:
		return "Newline"
	default:
		return "End"
	}
}

// Token is one scanned unit of a script.
type Token struct {
	Type       TokenType
	Value      string
	LineNumber int
}

// Scanner walks a script one token at a time.
type Scanner struct {
	text        []rune
	pos         int
	line        int
	atLineStart bool
	current     Token
}

// NewScanner creates a scanner positioned on the first token of text.
func NewScanner(text string) *Scanner {
	s := &Scanner{text: []rune(text), line: 1, atLineStart: true}
	s.Next()
	return s
}

// Current returns the active token without consuming it.
func (s *Scanner) Current() Token {
	return s.current
}

// Next advances one token. Once End is reached it stays there.
func (s *Scanner) Next() bool {
	if s.current.Type == End && s.pos > 0 && s.pos >= len(s.text) {
		return false
	}

	for {
		s.skipSpace()
		if s.pos >= len(s.text) {
			if !s.atLineStart {
				s.atLineStart = true
				s.current = Token{Type: Newline, LineNumber: s.line}
				return true
			}
			s.current = Token{Type: End, LineNumber: s.line}
			return false
		}

		ch := s.text[s.pos]
		switch {
		case ch == '#':
			s.skipComment()
			continue
		case ch == '\n' || ch == ';':
			line := s.line
			s.pos++
			if ch == '\n' {
				s.line++
			}
			if s.atLineStart {
				// blank line
				continue
			}
			s.atLineStart = true
			s.current = Token{Type: Newline, LineNumber: line}
			return true
		}

		line := s.line
		tokenType := Value
		if s.atLineStart {
			tokenType = Verb
		}
		s.atLineStart = false

		switch ch {
		case '"', '\'':
			s.current = Token{Type: tokenType, Value: s.readQuoted(ch), LineNumber: line}
		case '[':
			s.current = Token{Type: ColumnName, Value: s.readBracketed(), LineNumber: line}
		default:
			s.current = Token{Type: tokenType, Value: s.readBare(), LineNumber: line}
		}
		return true
	}
}

func (s *Scanner) skipSpace() {
	for s.pos < len(s.text) {
		ch := s.text[s.pos]
		if ch == '\n' || !(unicode.IsSpace(ch) || ch == ',') {
			return
		}
		s.pos++
	}
}

func (s *Scanner) skipComment() {
	for s.pos < len(s.text) && s.text[s.pos] != '\n' {
		s.pos++
	}
}

func (s *Scanner) readBare() string {
	start := s.pos
	for s.pos < len(s.text) && !isSeparator(s.text[s.pos]) {
		s.pos++
	}
	return string(s.text[start:s.pos])
}

// readQuoted reads a quoted value. A doubled quote is a literal quote and a
// backslash escapes the next rune.
func (s *Scanner) readQuoted(quote rune) string {
	var b strings.Builder
	s.pos++
	for s.pos < len(s.text) {
		ch := s.text[s.pos]
		switch {
		case ch == quote:
			if s.pos+1 < len(s.text) && s.text[s.pos+1] == quote {
				b.WriteRune(quote)
				s.pos += 2
				continue
			}
			s.pos++
			return b.String()
		case ch == '\\' && s.pos+1 < len(s.text):
			b.WriteRune(unescape(s.text[s.pos+1]))
			s.pos += 2
			continue
		case ch == '\n':
			s.line++
		}
		b.WriteRune(ch)
		s.pos++
	}
	return b.String()
}

func (s *Scanner) readBracketed() string {
	var b strings.Builder
	s.pos++
	for s.pos < len(s.text) {
		ch := s.text[s.pos]
		if ch == ']' {
			if s.pos+1 < len(s.text) && s.text[s.pos+1] == ']' {
				b.WriteRune(']')
				s.pos += 2
				continue
			}
			s.pos++
			return b.String()
		}
		if ch == '\n' {
			break
		}
		b.WriteRune(ch)
		s.pos++
	}
	return b.String()
}

func unescape(ch rune) rune {
	switch ch {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	default:
		return ch
	}
}

func isSeparator(ch rune) bool {
	return unicode.IsSpace(ch) || ch == ',' || ch == ';' || ch == '#'
}

// Escape quotes values so each re-scans as a single token of the given type.
func Escape(values []string, tokenType TokenType) []string {
	if values == nil {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, EscapeValue(v, tokenType))
	}
	return out
}

// EscapeValue quotes one value when it would not scan back as a single token.
func EscapeValue(value string, tokenType TokenType) string {
	if tokenType == ColumnName {
		if value != "" && !needsQuoting(value) && !strings.ContainsAny(value, "[]") {
			return value
		}
		return "[" + strings.ReplaceAll(value, "]", "]]") + "]"
	}
	if value != "" && !needsQuoting(value) {
		return value
	}
	value = strings.ReplaceAll(value, `\`, `\\`)
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

func needsQuoting(value string) bool {
	for i, ch := range value {
		if isSeparator(ch) || ch == '"' || ch == '\\' || (i == 0 && (ch == '\'' || ch == '[')) {
			return true
		}
	}
	return false
}
