package vcard

import (
	"strings"
	"unicode/utf8"
)

// Escape converts a raw value to its RFC 2426 section 5 wire form.
//
// CRLF and LF are written as \n, a lone CR as \r. Semicolons, commas and
// backslashes are prefixed with a backslash.
func Escape(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			if byteAt(s, i+1) == '\n' {
				i++
				b.WriteString(`\n`)
			} else {
				b.WriteString(`\r`)
			}
		case ';':
			b.WriteString(`\;`)
		case ',':
			b.WriteString(`\,`)
		case '\\':
			b.WriteString(`\\`)
		default:
			b.WriteByte(c)
		}
	}

	return b.String()
}

// Unescape converts an escaped wire value back to its raw form. Unknown
// escapes are passed through unchanged.
func Unescape(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		if i+1 == len(s) {
			b.WriteByte('\\')
			break
		}

		r, size := utf8.DecodeRuneInString(s[i+1:])
		if u, ok := unescapeRune(r); ok {
			b.WriteByte(u)
		} else {
			log.Warnw("invalid escape, passing it through", "offset", i, "char", string(r))
			b.WriteByte('\\')
			b.WriteString(s[i+1 : i+1+size])
		}
		i += size
	}

	return b.String()
}

// unescapeRune maps the character following a backslash to its raw byte
func unescapeRune(r rune) (byte, bool) {
	switch r {
	case 'n':
		return '\n', true
	case 'r':
		return '\r', true
	case ';', ',', '\\':
		return byte(r), true
	}
	return 0, false
}
