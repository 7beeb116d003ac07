package vcard

import (
	"fmt"
	"io"
	"strings"
)

// String serializes the card as folded vCard text. Every line is terminated
// by CRLF except the final END:VCARD.
//
// An attribute without values is written as "NAME:" and parses back with a
// single empty value.
func (c *Card) String() string {
	var b strings.Builder

	b.WriteString("BEGIN:VCARD" + crlf)
	for _, a := range c.attrs {
		b.WriteString(fold(a.contentLine()))
		b.WriteString(crlf)
	}
	b.WriteString("END:VCARD")

	return b.String()
}

// WriteTo writes the serialized card to w
func (c *Card) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, c.String())
	return int64(n), err
}

// contentLine renders the attribute as a single unfolded line.
//
// ENCODING parameters are dropped since values are always written as escaped
// UTF-8 text. Parameter values are written verbatim.
func (a *Attribute) contentLine() string {
	var b strings.Builder

	if a.group != "" {
		b.WriteString(a.group)
		b.WriteByte('.')
	}
	b.WriteString(a.name)

	for _, p := range a.params {
		if strings.EqualFold(p.name, "encoding") {
			continue
		}
		b.WriteByte(';')
		b.WriteString(p.name)
		if len(p.values) > 0 {
			b.WriteByte('=')
			b.WriteString(strings.Join(p.values, ","))
		}
	}

	b.WriteByte(':')
	for i, v := range a.values {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(Escape(v))
	}

	return b.String()
}

// Dump writes a human readable tree of the card to w
func (c *Card) Dump(w io.Writer) error {
	ew := &errWriter{w: w}

	ew.printf("vCard\n")
	for _, a := range c.attrs {
		name := a.name
		if a.group != "" {
			name = a.group + "." + a.name
		}
		ew.printf("+-- %s\n", name)

		if len(a.params) > 0 {
			ew.printf("    +- params=\n")
			for i, p := range a.params {
				values := make([]string, len(p.values))
				for j, v := range p.values {
					values[j] = Escape(v)
				}
				ew.printf("    |   [%d] = %s(%s)\n", i, p.name, strings.Join(values, ","))
			}
		}

		ew.printf("    +- values=\n")
		for i, v := range a.values {
			ew.printf("        [%d] = `%s'\n", i, Escape(v))
		}
	}

	return ew.err
}

// errWriter remembers the first write error and skips later writes
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...interface{}) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}
