// Package mboximport extracts vCards carried in mail messages stored in mbox
// files. Cards are found in text/vcard, text/x-vcard and text/directory parts
// and in attachments named *.vcf.
package mboximport

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"os"
	"path/filepath"
	"strings"

	"github.com/emersion/go-imap/utf7"
	"github.com/emersion/go-mbox"
	logging "github.com/ipfs/go-log/v2"
	"github.com/segmentio/ksuid"
	"github.com/ssargent/rolodex/pkg/vcard"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"
)

var log = logging.Logger("mboximport")

// vcardTypes are the media types that carry vCards
var vcardTypes = map[string]bool{
	"text/vcard":     true,
	"text/x-vcard":   true,
	"text/directory": true,
}

// Found is a card extracted from a message
type Found struct {
	// Message is the 0-based position of the message in the mbox
	Message   int
	MessageID string
	Subject   string
	// Filename is the attachment name, if the part had one
	Filename string
	Card     *vcard.Card
	Warnings []vcard.Warning
}

// Sink receives imported cards
type Sink interface {
	Create(card *vcard.Card) (ksuid.KSUID, error)
}

// Summary describes the result of an import
type Summary struct {
	Messages int           `json:"messages"`
	Cards    int           `json:"cards"`
	Warnings int           `json:"warnings"`
	Skipped  int           `json:"skipped_messages"`
	IDs      []ksuid.KSUID `json:"ids"`
}

// Importer reads vCards out of mbox files
type Importer struct {
	decoder *vcard.Decoder
}

// NewImporter creates a new importer. With decodeCharset set, quoted-printable
// card values are transcoded using their CHARSET parameter.
func NewImporter(decodeCharset bool) *Importer {
	return &Importer{decoder: &vcard.Decoder{DecodeCharset: decodeCharset}}
}

// Read extracts every card from the mbox stream r. Messages that cannot be
// parsed are logged and skipped.
func (im *Importer) Read(ctx context.Context, r io.Reader) ([]Found, int, error) {
	var found []Found
	reader := mbox.NewReader(r)

	n := 0
	for ; ; n++ {
		if err := ctx.Err(); err != nil {
			return found, n, err
		}

		msgReader, err := reader.NextMessage()
		if err == io.EOF {
			break
		}
		if err != nil {
			return found, n, fmt.Errorf("failed to read message %d: %w", n, err)
		}

		msg, err := mail.ReadMessage(msgReader)
		if err != nil {
			log.Warnw("failed to parse message headers, skipping", "message", n, "err", err)
			continue
		}

		found = append(found, im.readMessage(n, msg)...)
	}

	return found, n, nil
}

// ReadFile extracts every card from the mbox file at path
func (im *Importer) ReadFile(ctx context.Context, path string) ([]Found, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open mbox: %w", err)
	}
	defer f.Close()

	return im.Read(ctx, f)
}

// Import reads the mbox file at path and stores every card in sink
func (im *Importer) Import(ctx context.Context, path string, sink Sink) (*Summary, error) {
	found, messages, err := im.ReadFile(ctx, path)
	if err != nil {
		return nil, err
	}

	summary := &Summary{Messages: messages}
	seen := make(map[int]bool)
	for _, f := range found {
		seen[f.Message] = true
		summary.Warnings += len(f.Warnings)
		if f.Card.Len() == 0 {
			continue
		}

		id, err := sink.Create(f.Card)
		if err != nil {
			return summary, fmt.Errorf("failed to store card from message %d: %w", f.Message, err)
		}
		summary.Cards++
		summary.IDs = append(summary.IDs, id)
	}
	summary.Skipped = messages - len(seen)

	log.Infow("mbox import finished", "path", path, "messages", messages, "cards", summary.Cards)
	return summary, nil
}

// readMessage walks the MIME tree of msg and decodes every vCard part
func (im *Importer) readMessage(n int, msg *mail.Message) []Found {
	dec := &mime.WordDecoder{CharsetReader: charsetReader}
	subject, err := dec.DecodeHeader(msg.Header.Get("Subject"))
	if err != nil {
		subject = msg.Header.Get("Subject")
	}
	messageID := strings.Trim(msg.Header.Get("Message-Id"), "<> ")

	var found []Found

	var processEntity func(header interface{ Get(string) string }, body io.Reader)
	processEntity = func(header interface{ Get(string) string }, body io.Reader) {
		ctype, params, err := mime.ParseMediaType(header.Get("Content-Type"))
		if err != nil {
			ctype = "text/plain"
		}

		if strings.HasPrefix(ctype, "multipart/") {
			mr := multipart.NewReader(body, params["boundary"])
			for {
				p, err := mr.NextPart()
				if err == io.EOF {
					break
				}
				if err != nil {
					log.Warnw("error reading multipart body", "message", n, "err", err)
					break
				}
				processEntity(p.Header, p)
			}
			return
		}

		filename := params["name"]
		if _, dispParams, err := mime.ParseMediaType(header.Get("Content-Disposition")); err == nil && dispParams["filename"] != "" {
			filename = dispParams["filename"]
		}
		if !vcardTypes[ctype] && !strings.EqualFold(filepath.Ext(filename), ".vcf") {
			return
		}

		text, err := readPart(header, body, params["charset"])
		if err != nil {
			log.Warnw("failed to decode vcard part", "message", n, "filename", filename, "err", err)
			return
		}

		cards, warnings := im.decoder.DecodeAll(text)
		for i, card := range cards {
			f := Found{
				Message:   n,
				MessageID: messageID,
				Subject:   subject,
				Filename:  filename,
				Card:      card,
			}
			// warnings belong to the part; report them once
			if i == 0 {
				f.Warnings = warnings
			}
			found = append(found, f)
		}
	}

	processEntity(msg.Header, msg.Body)
	return found
}

// readPart undoes the transfer encoding and charset of a MIME part
func readPart(header interface{ Get(string) string }, body io.Reader, charset string) (string, error) {
	reader := body
	switch strings.ToLower(strings.TrimSpace(header.Get("Content-Transfer-Encoding"))) {
	case "base64":
		reader = base64.NewDecoder(base64.StdEncoding, body)
	case "quoted-printable":
		reader = quotedprintable.NewReader(body)
	default:
		// 7bit, 8bit, binary -> no wrapper
	}

	reader, err := charsetReader(charset, reader)
	if err != nil {
		return "", err
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	if charset == "" || strings.EqualFold(charset, "utf-8") || strings.EqualFold(charset, "us-ascii") {
		return input, nil
	}
	enc, err := ianaindex.IANA.Encoding(strings.ToLower(charset))
	if err != nil || enc == nil {
		log.Debugf("unknown charset %q, reading raw bytes", charset)
		return input, nil
	}
	return transform.NewReader(input, enc.NewDecoder()), nil
}

// MailboxPath returns the path of a mailbox under mailDir. Mailbox names are
// UTF-8; the files on disk use IMAP modified UTF-7 names.
func MailboxPath(mailDir, mailbox string) (string, error) {
	encoded, err := utf7.Encoding.NewEncoder().String(mailbox)
	if err != nil {
		return "", fmt.Errorf("invalid mailbox name %q: %w", mailbox, err)
	}
	if encoded == "" || strings.ContainsAny(encoded, `/\`) || encoded == "." || encoded == ".." {
		return "", fmt.Errorf("invalid mailbox name %q", mailbox)
	}
	return filepath.Join(mailDir, encoded), nil
}

// Mailboxes lists the mailbox names found in mailDir
func Mailboxes(mailDir string) ([]string, error) {
	files, err := os.ReadDir(mailDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read mail directory: %w", err)
	}

	var mailboxes []string
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		name, err := utf7.Encoding.NewDecoder().String(file.Name())
		if err != nil {
			log.Warnw("failed to decode mailbox filename", "file", file.Name(), "err", err)
			continue
		}
		mailboxes = append(mailboxes, name)
	}
	return mailboxes, nil
}
