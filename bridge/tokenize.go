package bridge

import "strings"

const (
	MaxTokens = 5
	// TokenSize is the token buffer size, one byte of which is reserved.
	TokenSize = 20
	// MaxLineLen is the longest command line accepted from a host channel.
	MaxLineLen = 150
)

type Tokens [MaxTokens]string

// Tokenize splits a command line on spaces. Runs of spaces collapse, tokens
// after the fifth are dropped and every token is cut to TokenSize-1 bytes.
func Tokenize(line string) Tokens {
	var t Tokens

	fields := strings.FieldsFunc(line, func(r rune) bool { return r == ' ' })
	for i := 0; i < len(fields) && i < MaxTokens; i++ {
		f := fields[i]
		if len(f) > TokenSize-1 {
			f = f[:TokenSize-1]
		}
		t[i] = f
	}

	return t
}

// Args counts the leading non-empty arguments after the keyword.
func (t Tokens) Args() int {
	n := 0
	for _, a := range t[1:] {
		if a == "" {
			break
		}
		n++
	}
	return n
}
