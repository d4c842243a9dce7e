package mboxfile

import (
	"bytes"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"sync"

	"github.com/poiesic/mboxsearch/core"
	"github.com/poiesic/mboxsearch/internal/mmap"
	"github.com/poiesic/mboxsearch/mbox"
	"github.com/poiesic/mboxsearch/storage"
)

// MboxFile owns the parsed records of one archive and a read-only mapping of it.
type MboxFile struct {
	mu      sync.RWMutex
	mapping *mmap.Mapping
	records []core.MessageRecord
	closed  bool
	logger  *slog.Logger
}

var _ storage.MessageRepository = (*MboxFile)(nil)

// Open maps the archive at path and loads its message records.
// Returns mbox.ErrFileAccess if the file cannot be opened and
// mbox.ErrStructuralParse if its token stream is malformed.
func Open(path string, opts ...Option) (*MboxFile, error) {
	cfg := &config{logger: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}
	logger := cfg.logger.With("component", "mboxfile", "path", path)

	mapping, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", mbox.ErrFileAccess, err)
	}

	if err := mapping.Advise(mmap.AccessSequential); err != nil {
		logger.Debug("sequential access hint rejected", "error", err)
	}

	tokens, err := mbox.Lex(bytes.NewReader(mapping.Bytes()))
	if err != nil {
		mapping.Close()
		return nil, err
	}
	records, err := mbox.Parse(tokens, logger)
	if err != nil {
		mapping.Close()
		return nil, err
	}

	if err := mapping.Advise(mmap.AccessRandom); err != nil {
		logger.Debug("random access hint rejected", "error", err)
	}

	logger.Info("archive loaded", "bytes", mapping.Size(), "tokens", len(tokens), "emails", len(records))

	return &MboxFile{
		mapping: mapping,
		records: records,
		logger:  logger,
	}, nil
}

// GetEmail decodes the message with the given ID.
func (f *MboxFile) GetEmail(id core.ID) (*core.Message, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return nil, storage.ErrStorageClosed
	}
	if id >= core.ID(len(f.records)) {
		return nil, fmt.Errorf("%w: email %d (archive holds %d)", storage.ErrNotFound, id, len(f.records))
	}
	return f.resolve(id, &f.records[id])
}

// CountEmails returns the number of loaded records.
func (f *MboxFile) CountEmails() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.records)
}

// Emails yields each resolvable message in ID order.
// Messages whose headers cannot be decoded are logged and skipped.
// Iteration stops early if the file is closed.
func (f *MboxFile) Emails() iter.Seq[*core.Message] {
	return func(yield func(*core.Message) bool) {
		count := f.CountEmails()
		for i := range count {
			msg, err := f.GetEmail(core.ID(i))
			if err != nil {
				if errors.Is(err, storage.ErrStorageClosed) {
					return
				}
				f.logger.Warn("skipping email", "id", i, "error", err)
				continue
			}
			if !yield(msg) {
				return
			}
		}
	}
}

// Close unmaps the archive once in-flight reads finish. It is idempotent.
func (f *MboxFile) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil
	}
	f.closed = true
	return f.mapping.Close()
}

// resolve builds a Message from a record. Caller must hold the read lock.
func (f *MboxFile) resolve(id core.ID, record *core.MessageRecord) (*core.Message, error) {
	from, err := f.header(record.From)
	if err != nil {
		return nil, fmt.Errorf("email %d from: %w", id, err)
	}
	subject, err := f.header(record.Subject)
	if err != nil {
		return nil, fmt.Errorf("email %d subject: %w", id, err)
	}

	msg := &core.Message{
		Id:       id,
		From:     from,
		Datetime: record.Datetime,
		Subject:  subject,
	}

	var textSeen, htmlSeen bool
	for i := range record.Bodies {
		part := &record.Bodies[i]
		if part.IsHTML() {
			if htmlSeen {
				continue
			}
			htmlSeen = true
			msg.BodyHTML = f.body(id, part)
		} else {
			if textSeen {
				continue
			}
			textSeen = true
			msg.BodyText = f.body(id, part)
		}
		if textSeen && htmlSeen {
			break
		}
	}

	return msg, nil
}

func (f *MboxFile) header(r core.ByteRange) (string, error) {
	raw, err := f.mapping.Slice(r.Start, r.End)
	if err != nil {
		return "", fmt.Errorf("%w: %w", storage.ErrDecode, err)
	}
	return decodeHeader(raw)
}

// body decodes one part, returning nil if it cannot be turned into UTF-8 text.
func (f *MboxFile) body(id core.ID, part *core.BodyPart) *string {
	raw, err := f.mapping.Slice(part.Content.Start, part.Content.End)
	if err != nil {
		f.logger.Warn("body out of bounds", "id", id, "error", err)
		return nil
	}
	text, err := decodeBody(raw, part.TransferEncoding, part.ContentType)
	if err != nil {
		f.logger.Debug("body not decodable", "id", id, "content_type", part.ContentType, "error", err)
		return nil
	}
	return &text
}
