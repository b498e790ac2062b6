package xql

import (
	"reflect"
	"testing"
)

func scanAll(text string) []Token {
	s := NewScanner(text)
	var tokens []Token
	for {
		tokens = append(tokens, s.Current())
		if s.Current().Type == End {
			return tokens
		}
		s.Next()
	}
}

func TestScanner_Lines(t *testing.T) {
	got := scanAll(`
		read WebRequest

		where ServerPort = 80
	`)
	want := []Token{
		{Type: Verb, Value: "read", LineNumber: 2},
		{Type: Value, Value: "WebRequest", LineNumber: 2},
		{Type: Newline, LineNumber: 2},
		{Type: Verb, Value: "where", LineNumber: 4},
		{Type: Value, Value: "ServerPort", LineNumber: 4},
		{Type: Value, Value: "=", LineNumber: 4},
		{Type: Value, Value: "80", LineNumber: 4},
		{Type: Newline, LineNumber: 4},
		{Type: End, LineNumber: 5},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("tokens mismatch\n got: %+v\nwant: %+v", got, want)
	}
}

func TestScanner_NoTrailingNewline(t *testing.T) {
	got := scanAll("count")
	if len(got) != 3 || got[0].Type != Verb || got[1].Type != Newline || got[2].Type != End {
		t.Fatalf("unexpected tokens %+v", got)
	}
}

func TestScanner_EmptyInput(t *testing.T) {
	s := NewScanner("  \n\n ")
	if s.Current().Type != End {
		t.Fatalf("expected End, got %+v", s.Current())
	}
	if s.Next() {
		t.Error("Next at End should report false")
	}
	if s.Current().Type != End {
		t.Error("scanner must stay at End")
	}
}

func TestScanner_NeverPassesEnd(t *testing.T) {
	s := NewScanner("limit 10")
	for i := 0; i < 10; i++ {
		s.Next()
	}
	if s.Current().Type != End {
		t.Fatalf("expected End, got %+v", s.Current())
	}
}

func TestScanner_QuotesAndEscapes(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"double quoted", `write "Sample output.csv"`, "Sample output.csv"},
		{"single quoted", `write 'a b'`, "a b"},
		{"doubled quote", `write "say ""hi"""`, `say "hi"`},
		{"backslash", `write "tab\there"`, "tab\there"},
		{"comma inside quotes", `write "a, b"`, "a, b"},
		{"empty", `write ""`, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tokens := scanAll(tc.text)
			if tokens[1].Type != Value || tokens[1].Value != tc.want {
				t.Errorf("expected value %q, got %+v", tc.want, tokens[1])
			}
		})
	}
}

func TestScanner_CommasSeparatorsAndStatements(t *testing.T) {
	tokens := scanAll("renamecolumns ServerPort PortNumber, HttpStatus HttpResult; count")
	var values []string
	var types []TokenType
	for _, tok := range tokens {
		values = append(values, tok.Value)
		types = append(types, tok.Type)
	}
	wantValues := []string{"renamecolumns", "ServerPort", "PortNumber", "HttpStatus", "HttpResult", "", "count", "", ""}
	wantTypes := []TokenType{Verb, Value, Value, Value, Value, Newline, Verb, Newline, End}
	if !reflect.DeepEqual(values, wantValues) {
		t.Errorf("values: got %q want %q", values, wantValues)
	}
	if !reflect.DeepEqual(types, wantTypes) {
		t.Errorf("types: got %v want %v", types, wantTypes)
	}
}

func TestScanner_ColumnNamesAndComments(t *testing.T) {
	tokens := scanAll("# header comment\ncolumns [Server Name] [a]]b] # trailing\n")
	if tokens[0].Type != Verb || tokens[0].LineNumber != 2 {
		t.Fatalf("expected verb on line 2, got %+v", tokens[0])
	}
	if tokens[1].Type != ColumnName || tokens[1].Value != "Server Name" {
		t.Errorf("unexpected %+v", tokens[1])
	}
	if tokens[2].Type != ColumnName || tokens[2].Value != "a]b" {
		t.Errorf("unexpected %+v", tokens[2])
	}
	if tokens[3].Type != Newline {
		t.Errorf("expected comment to be skipped, got %+v", tokens[3])
	}
}

func TestEscape(t *testing.T) {
	got := Escape([]string{"plain", "two words", `q"uote`, "", "a,b"}, Value)
	want := []string{"plain", `"two words"`, `"q""uote"`, `""`, `"a,b"`}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %q want %q", got, want)
	}

	cols := Escape([]string{"ID", "Server Name", "a]b"}, ColumnName)
	wantCols := []string{"ID", "[Server Name]", "[a]]b]"}
	if !reflect.DeepEqual(cols, wantCols) {
		t.Errorf("got %q want %q", cols, wantCols)
	}

	if Escape(nil, Value) != nil {
		t.Error("nil input should stay nil")
	}
}

func TestEscape_RoundTrip(t *testing.T) {
	values := []string{"two words", `say "hi"`, "x;y", "#hash", "back\\slash"}
	for _, v := range values {
		tokens := scanAll("write " + EscapeValue(v, Value))
		if tokens[1].Value != v {
			t.Errorf("round trip of %q produced %q", v, tokens[1].Value)
		}
	}
}
