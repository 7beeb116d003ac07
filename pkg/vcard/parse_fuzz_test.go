//go:build fuzz
// +build fuzz

package vcard

import (
	"testing"
	"unicode/utf8"
)

// FuzzDecode checks that decoding never panics and that whatever it produces
// survives a serialize/parse cycle unchanged
func FuzzDecode(f *testing.F) {
	f.Add("")
	f.Add("BEGIN:VCARD\r\nFN:Bob\r\nEND:VCARD")
	f.Add("BEGIN:VCARD\r\nN:Doe;John;;;\r\nEND:VCARD")
	f.Add("BEGIN:VCARD\r\nNOTE;ENCODING=QUOTED-PRINTABLE:a=0Ab=\r\nc\r\nEND:VCARD")
	f.Add("BEGIN:VCARD\r\nitem1.TEL;HOME,VOICE;PREF=1:555\\;1\r\n x\r\nEND:VCARD")
	f.Add("a.b.c;;=;:\\")

	f.Fuzz(func(t *testing.T, input string) {
		if len(input) > 64*1024 {
			t.Skip("Input too large for fuzz test")
		}

		card, _ := (&Decoder{}).Decode(input)
		if card == nil {
			t.Fatal("Decode returned nil card")
		}

		out := card.String()
		if !utf8.ValidString(out) {
			t.Fatalf("serialized card is not valid UTF-8: %q", out)
		}

		again, warnings := (&Decoder{}).Decode(out)
		if len(warnings) > 0 {
			t.Fatalf("re-parse of %q produced warnings: %v", out, warnings)
		}
		if again.String() != out {
			t.Errorf("serialization not stable:\n got %q\nwant %q", again.String(), out)
		}
	})
}

// FuzzEscape checks Unescape is the inverse of Escape for CRLF-free strings
func FuzzEscape(f *testing.F) {
	f.Add("plain")
	f.Add("a;b,c\\d\ne\rf")

	f.Fuzz(func(t *testing.T, s string) {
		if !utf8.ValidString(s) {
			t.Skip()
		}
		for i := 0; i+1 < len(s); i++ {
			if s[i] == '\r' && s[i+1] == '\n' {
				t.Skip()
			}
		}
		if got := Unescape(Escape(s)); got != s {
			t.Errorf("Unescape(Escape(%q)) = %q", s, got)
		}
	})
}
