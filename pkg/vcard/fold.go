package vcard

import (
	"strings"
	"unicode/utf8"
)

const (
	crlf = "\r\n"

	// foldWidth is the number of characters written before a contentline is folded
	foldWidth = 75
)

// Unfold joins folded continuation lines and normalizes every remaining line
// break to CRLF.
//
// A break is CRLF, LF+CR, or a bare LF or CR. A break followed by a space or
// tab is a fold: the break and that single whitespace character are removed.
func Unfold(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(s); {
		c := s[i]
		if c != '\r' && c != '\n' {
			b.WriteByte(c)
			i++
			continue
		}

		width := 1
		if next := byteAt(s, i+1); (next == '\r' || next == '\n') && next != c {
			width = 2
		}
		if ws := byteAt(s, i+width); ws == ' ' || ws == '\t' {
			i += width + 1
			continue
		}
		b.WriteString(crlf)
		i += width
	}

	return b.String()
}

// fold inserts CRLF followed by a space after every foldWidth characters of line
func fold(line string) string {
	if utf8.RuneCountInString(line) <= foldWidth {
		return line
	}

	var b strings.Builder
	b.Grow(len(line) + len(line)/foldWidth*3)

	n := 0
	for i := 0; i < len(line); {
		if n == foldWidth {
			b.WriteString(crlf + " ")
			n = 0
		}
		_, size := utf8.DecodeRuneInString(line[i:])
		b.WriteString(line[i : i+size])
		i += size
		n++
	}

	return b.String()
}

func byteAt(s string, i int) byte {
	if i < len(s) {
		return s[i]
	}
	return 0
}
