package bridge

import "testing"

func TestTokenize(t *testing.T) {
	cases := []struct {
		line string
		want Tokens
	}{
		{"frequency", Tokens{"frequency"}},
		{"  calibrate   commit  pw  ", Tokens{"calibrate", "commit", "pw"}},
		{"a b c d e f g", Tokens{"a", "b", "c", "d", "e"}},
		{"storecal 1 2 Ro 0.5", Tokens{"storecal", "1", "2", "Ro", "0.5"}},
		{"", Tokens{}},
		{"x 0123456789abcdefghijk", Tokens{"x", "0123456789abcdefghi"}},
	}

	for _, c := range cases {
		if got := Tokenize(c.line); got != c.want {
			t.Errorf("Tokenize(%q) = %q, want %q", c.line, got, c.want)
		}
	}
}

func TestTokensArgs(t *testing.T) {
	if n := Tokenize("resetcal").Args(); n != 0 {
		t.Fatalf("got %d", n)
	}
	if n := Tokenize("resetcal 1").Args(); n != 1 {
		t.Fatalf("got %d", n)
	}
	if n := Tokenize("storecal 1 2 Ro 4 5").Args(); n != 4 {
		t.Fatalf("got %d", n)
	}
}
