package vcard

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/ianaindex"
)

// Decoder parses vCard text.
//
// We try to be as forgiving as we possibly can here; this isn't a validator.
// Almost nothing is considered a fatal error and decoding always returns a
// card, along with warnings describing whatever had to be skipped.
type Decoder struct {
	// DecodeCharset transcodes quoted-printable values to UTF-8 using the
	// attribute's CHARSET parameter.
	DecodeCharset bool
}

// Parse parses a single vCard, logging any warnings
func Parse(s string) *Card {
	card, _ := (&Decoder{}).Decode(s)
	return card
}

// DecodeAll parses a stream of vCards with a default Decoder
func DecodeAll(s string) ([]*Card, []Warning) {
	return (&Decoder{}).DecodeAll(s)
}

// Decode parses s as a single vCard.
//
// The first line is expected to be BEGIN:VCARD. If it is anything else the
// attribute read from it is discarded with a warning. Every later attribute up
// to the end of the input is added to the card, except ungrouped BEGIN and END
// lines.
func (d *Decoder) Decode(s string) (*Card, []Warning) {
	r := d.newReader(s)
	card := New()

	first := r.readAttribute()
	last := first
	if first == nil || !first.is("begin") {
		r.warnAt(1, "vcard began without BEGIN:VCARD")
	}

	for !r.eof() {
		attr := r.readAttribute()
		if attr == nil {
			continue
		}
		last = attr
		r.accept(card, attr)
	}

	if last == nil || !last.is("end") {
		r.warn("vcard ended without END:VCARD")
	}

	return card, r.warnings
}

// DecodeAll parses a stream that may hold several BEGIN:VCARD ... END:VCARD
// blocks and returns one card per block. Attributes outside of a block are
// skipped.
func (d *Decoder) DecodeAll(s string) ([]*Card, []Warning) {
	r := d.newReader(s)
	var cards []*Card
	var card *Card

	for !r.eof() {
		attr := r.readAttribute()
		if attr == nil {
			continue
		}

		switch {
		case attr.is("begin"):
			if card != nil {
				r.warnAt(r.start, "vcard ended without END:VCARD")
				cards = append(cards, card)
			}
			card = New()
		case attr.is("end"):
			if card == nil {
				r.warnAt(r.start, "END:VCARD without matching BEGIN:VCARD")
				continue
			}
			cards = append(cards, card)
			card = nil
		case card == nil:
			r.warnAt(r.start, fmt.Sprintf("attribute %s outside of a vcard, skipping", attr.name))
		default:
			attr.card = card
			card.attrs = append(card.attrs, attr)
		}
	}

	if card != nil {
		r.warn("vcard ended without END:VCARD")
		cards = append(cards, card)
	}

	return cards, r.warnings
}

func (d *Decoder) newReader(s string) *reader {
	r := &reader{line: 1, decodeCharset: d.DecodeCharset}

	if n := validPrefix(s); n < len(s) {
		// parse as much as we can from it
		r.warn("invalid UTF-8 in input, truncating")
		s = s[:n]
	}
	r.buf = Unfold(s)

	return r
}

// reader walks an unfolded buffer one contentline at a time
type reader struct {
	buf           string
	pos           int
	line          int
	start         int
	decodeCharset bool
	warnings      []Warning
}

// valueState is the per-attribute state handed from the parameter reader to
// the value reader
type valueState struct {
	quotedPrintable bool
	charset         string
}

// accept stores attr on card unless it is a BEGIN or END wrapper line
func (r *reader) accept(card *Card, attr *Attribute) {
	switch {
	case attr.is("end"):
	case attr.is("begin"):
		r.warnAt(r.start, "unexpected BEGIN inside vcard, ignoring")
	default:
		attr.card = card
		card.attrs = append(card.attrs, attr)
	}
}

// readAttribute reads an entire attribute, leaving the reader at the start of
// the next line. It returns nil if the line holds no usable attribute.
func (r *reader) readAttribute() *Attribute {
	r.start = r.line

	var group, name strings.Builder
	var hasGroup bool
	var sep rune

scan:
	for !r.atLineEnd() {
		c, size := utf8.DecodeRuneInString(r.buf[r.pos:])
		switch {
		case c == ':' || c == ';':
			if name.Len() == 0 {
				// a line of the form (group.)?[:;]
				r.warn("attribute without a name, skipping line")
				r.skipLine()
				return nil
			}
			sep = c
			r.pos += size
			break scan
		case c == '.':
			if hasGroup {
				r.warnf("extra '.' in attribute specification, ignoring extra group %q", name.String())
			} else if name.Len() > 0 {
				group.WriteString(name.String())
				hasGroup = true
			}
			name.Reset()
		case isIdentRune(c):
			name.WriteRune(c)
		default:
			r.warnf("invalid character %q in attribute group/name, skipping line", c)
			r.skipLine()
			return nil
		}
		r.pos += size
	}

	if sep == 0 {
		if name.Len() > 0 || hasGroup {
			r.warnf("attribute %q has no value, skipping line", name.String())
		}
		r.skipLine()
		return nil
	}

	attr := &Attribute{group: group.String(), name: name.String()}
	var st valueState

	if sep == ';' && !r.readParams(attr, &st) {
		r.skipLine()
		return nil
	}
	r.readValues(attr, st)

	if len(attr.values) == 0 {
		return nil
	}

	return attr
}

// readParams reads ";"-separated parameters up to the ':' that introduces the
// value. It reports whether that ':' was found before the end of the line.
//
// A token terminated by ';' or ':' before any '=' is a bare value: it either
// marks the value as quoted-printable or becomes a TYPE parameter.
func (r *reader) readParams(attr *Attribute, st *valueState) bool {
	var tok strings.Builder
	var param *Param

	for !r.atLineEnd() {
		c, size := utf8.DecodeRuneInString(r.buf[r.pos:])
		switch {
		case c == '=':
			r.pos += size
			if tok.Len() == 0 {
				r.warn("parameter value without a name")
				r.skipToSeparator()
				continue
			}
			if param != nil {
				if len(param.values) == 0 {
					r.warnf("parameter %q has no value", param.name)
				} else {
					r.finishParam(attr, param, st)
				}
			}
			param = &Param{name: tok.String()}
			tok.Reset()

		case c == ';' || c == ':' || c == ',':
			r.pos += size
			if tok.Len() > 0 {
				switch {
				case param != nil:
					param.values = append(param.values, tok.String())
				case strings.EqualFold(tok.String(), "quoted-printable"):
					st.quotedPrintable = true
				default:
					param = &Param{name: "TYPE", values: []string{tok.String()}}
				}
				tok.Reset()
			} else if param != nil && len(param.values) == 0 {
				// PARAM=[:;] with nothing after the '='
				r.warnf("parameter %q has no value", param.name)
				param = nil
			}

			if param != nil && c != ',' {
				r.finishParam(attr, param, st)
				param = nil
			}
			if c == ':' {
				return true
			}

		case isIdentRune(c):
			tok.WriteRune(c)
			r.pos += size

		default:
			r.warnf("invalid character %q found in parameter spec", c)
			tok.Reset()
			r.skipToSeparator()
		}
	}

	r.warnf("parameters of attribute %q are not followed by a value", attr.name)
	return false
}

// finishParam stores a completed parameter on attr, or consumes it if it is
// the quoted-printable encoding marker
func (r *reader) finishParam(attr *Attribute, p *Param, st *valueState) {
	if strings.EqualFold(p.name, "encoding") && len(p.values) == 1 &&
		strings.EqualFold(p.values[0], "quoted-printable") {
		st.quotedPrintable = true
		return
	}
	if strings.EqualFold(p.name, "charset") && len(p.values) > 0 {
		st.charset = p.values[0]
	}

	p.attr = attr
	attr.params = append(attr.params, p)
}

// readValues reads ';'-separated values up to the end of the line. At least
// one value, possibly empty, is always added to attr.
func (r *reader) readValues(attr *Attribute, st valueState) {
	var buf []byte

	for !r.atLineEnd() {
		c := r.buf[r.pos]
		switch {
		case c == '=' && st.quotedPrintable:
			buf = r.readQuotedPrintable(buf)

		case c == '\\':
			r.pos++
			if r.atLineEnd() {
				buf = append(buf, '\\')
				continue
			}
			e, size := utf8.DecodeRuneInString(r.buf[r.pos:])
			if u, ok := unescapeRune(e); ok {
				buf = append(buf, u)
			} else {
				r.warnf("invalid escape \\%c, passing it through", e)
				buf = append(buf, '\\')
				buf = append(buf, r.buf[r.pos:r.pos+size]...)
			}
			r.pos += size

		case c == ';':
			attr.values = append(attr.values, r.finishValue(buf, st))
			buf = buf[:0]
			r.pos++

		default:
			// multi-byte sequences never contain ASCII bytes, so copying
			// byte by byte preserves every code point
			buf = append(buf, c)
			r.pos++
		}
	}

	attr.values = append(attr.values, r.finishValue(buf, st))
	r.skipLine()
}

// readQuotedPrintable decodes one '=' escape at the reader position
func (r *reader) readQuotedPrintable(buf []byte) []byte {
	rest := r.buf[r.pos+1:]

	switch {
	case strings.HasPrefix(rest, crlf):
		// it was a '=' at the end of the line, just ignore this and
		// continue parsing on the next line. yay for 2 kinds of line folding
		r.pos += 1 + len(crlf)
		r.line++
	case len(rest) >= 2 && isHex(rest[0]) && isHex(rest[1]):
		buf = append(buf, unhex(rest[0])<<4|unhex(rest[1]))
		r.pos += 3
	default:
		// discard the '=' and up to two characters on this line
		r.pos++
		for i := 0; i < 2 && !r.atLineEnd(); i++ {
			_, size := utf8.DecodeRuneInString(r.buf[r.pos:])
			r.pos += size
		}
		r.warn("invalid quoted-printable sequence, discarding it")
	}

	return buf
}

// finishValue converts the accumulated bytes of a value into a string
func (r *reader) finishValue(buf []byte, st valueState) string {
	if !st.quotedPrintable {
		return string(buf)
	}

	if st.charset != "" && r.decodeCharset {
		enc, err := ianaindex.IANA.Encoding(st.charset)
		if err != nil || enc == nil {
			r.warnf("unsupported charset %q, leaving value undecoded", st.charset)
		} else if decoded, err := enc.NewDecoder().Bytes(buf); err != nil {
			r.warnf("value is not valid %s: %v", st.charset, err)
		} else {
			buf = decoded
		}
	}

	if !utf8.Valid(buf) {
		r.warn("quoted-printable value is not valid UTF-8, replacing invalid bytes")
		return strings.ToValidUTF8(string(buf), string(utf8.RuneError))
	}

	return string(buf)
}

func (r *reader) eof() bool {
	return r.pos >= len(r.buf)
}

// atLineEnd reports whether the reader sits on a CRLF or at the end of input
func (r *reader) atLineEnd() bool {
	return r.pos >= len(r.buf) || r.buf[r.pos] == '\r'
}

// skipLine skips forward past the next CRLF, or to the end of input
func (r *reader) skipLine() {
	for !r.atLineEnd() {
		r.pos++
	}
	if r.eof() {
		return
	}
	r.pos++
	if !r.eof() && r.buf[r.pos] == '\n' {
		r.pos++
	}
	r.line++
}

// skipToSeparator skips forward until ':', ';' or the end of the line
func (r *reader) skipToSeparator() {
	for !r.atLineEnd() {
		if c := r.buf[r.pos]; c == ':' || c == ';' {
			return
		}
		r.pos++
	}
}

func (r *reader) warn(msg string) {
	r.warnAt(r.line, msg)
}

func (r *reader) warnf(format string, args ...interface{}) {
	r.warnAt(r.line, fmt.Sprintf(format, args...))
}

func (r *reader) warnAt(line int, msg string) {
	r.warnings = append(r.warnings, Warning{Line: line, Message: msg})
	log.Warnw(msg, "line", line)
}

// validPrefix returns the length of the longest valid UTF-8 prefix of s
func validPrefix(s string) int {
	for i := 0; i < len(s); {
		c, size := utf8.DecodeRuneInString(s[i:])
		if c == utf8.RuneError && size <= 1 {
			return i
		}
		i += size
	}
	return len(s)
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}
