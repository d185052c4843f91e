package cli

import (
	"strings"
	"unicode"
)

// Tokenize splits a raw input line into arguments.
//
// Unquoted whitespace separates tokens. A token may start with a double or a
// single quote; only the same quote character closes it and both quote
// characters are dropped. A backslash always takes the next character
// literally, inside or outside quotes; a trailing lone backslash is dropped.
// An unterminated quote runs to the end of the line.
func Tokenize(line string) []string {
	return scan(line).tokens
}

// OpenToken returns the raw text of the token being typed at the end of
// line, quotes and escapes included, and its unescaped value. Both are ""
// when the line ends with unquoted whitespace.
func OpenToken(line string) (raw, value string) {
	s := scan(line)
	if !s.open || len(s.tokens) == 0 {
		return "", ""
	}
	return line[s.lastStart:], s.tokens[len(s.tokens)-1]
}

type scanResult struct {
	tokens []string
	// open reports whether the last token is not terminated by whitespace.
	open bool
	// lastStart is the byte offset of the last token in the line.
	lastStart int
}

func scan(line string) scanResult {
	res := scanResult{tokens: []string{}}

	var (
		cur     strings.Builder
		inToken bool
		start   = -1
		quote   rune
		escaped bool
	)

	flush := func() {
		if inToken {
			res.tokens = append(res.tokens, cur.String())
			res.lastStart = start
		}
		cur.Reset()
		inToken = false
		start = -1
	}
	begin := func(i int) {
		if start < 0 {
			start = i
		}
	}

	for i, r := range line {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
			inToken = true
		case r == '\\':
			begin(i)
			escaped = true
		case quote != 0:
			if r == quote {
				quote = 0
				continue
			}
			cur.WriteRune(r)
		case (r == '"' || r == '\'') && !inToken:
			begin(i)
			quote = r
			inToken = true
		case unicode.IsSpace(r):
			flush()
		default:
			begin(i)
			cur.WriteRune(r)
			inToken = true
		}
	}

	res.open = inToken
	flush()
	return res
}
