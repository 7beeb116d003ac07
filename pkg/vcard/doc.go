// Package vcard provides parsing and serialization of vCard contact records
// for rolodex.
//
// The package implements the RFC 2425/2426 contentline syntax. A Card is an
// ordered list of attributes; each Attribute carries an optional group, a
// name, an ordered list of parameters and an ordered list of values.
//
// # Wire Format
//
// Each logical line has the form:
//
//	[group "."] name *(";" param-name ["=" value *("," value)]) ":" value *(";" value)
//
// Lines may be folded by inserting a line break followed by a single space or
// tab. CRLF, LF+CR and bare LF or CR are all accepted as line breaks on input.
// Serialized cards always use CRLF and fold contentlines after every 75
// characters:
//
//	BEGIN:VCARD\r\n
//	FN:John Doe\r\n
//	N:Doe;John;;;\r\n
//	END:VCARD
//
// Note that the final END:VCARD line is written without a line terminator.
//
// # Escaping
//
// Values are escaped as described in RFC 2426 section 5:
//
//	newline   -> \n
//	;         -> \;
//	,         -> \,
//	\         -> \\
//
// Parameter values are written verbatim. Values of attributes carrying
// ENCODING=QUOTED-PRINTABLE are decoded while parsing; the encoding parameter
// itself is dropped and never written back out.
//
// # Usage
//
// Parsing and serializing a card:
//
//	card := vcard.Parse(text)
//	for _, attr := range card.Attributes() {
//	    fmt.Println(attr.Name(), attr.Values())
//	}
//	out := card.String()
//
// Building a card:
//
//	card := vcard.New()
//	fn, err := vcard.NewAttribute("", "FN")
//	if err != nil {
//	    return err
//	}
//	fn.AddValue("John Doe")
//	if err := card.AddAttribute(fn); err != nil {
//	    return err
//	}
//
// # Error Handling
//
// The reader is deliberately forgiving; it is not a validator. Malformed
// lines, parameters, escapes and quoted-printable sequences are skipped and
// reported as Warning values, and parsing always returns a Card. Use a
// Decoder to receive the warnings:
//
//	card, warnings := (&vcard.Decoder{}).Decode(text)
//
// Warnings are also logged to the "vcard" logger.
//
// Misuse of the container API, such as an empty attribute name or adding an
// attribute that already belongs to another card, is reported as an error
// from the offending call and leaves the card unchanged.
//
// # Thread Safety
//
// Parse, Decode and String do not share state and may run concurrently on
// different inputs. A single Card must not be modified from several
// goroutines without external synchronization.
package vcard
