package core

import (
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID identifies a message by its 0-based position in the archive.
// IDs are stable for the lifetime of the storage that assigned them.
type ID uint64

// IDFromContent generates a deterministic 64-bit key from text content using BLAKE2b hashing.
// Identical content always produces identical keys.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// ByteRange is a half-open [Start, End) span of the archive's bytes.
type ByteRange struct {
	Start int64
	End   int64
}

// Len returns the number of bytes covered by the range.
func (r ByteRange) Len() int64 {
	return r.End - r.Start
}

// Contains reports whether other lies entirely inside r.
func (r ByteRange) Contains(other ByteRange) bool {
	return other.Start >= r.Start && other.End <= r.End
}

// Overlaps reports whether r and other share at least one byte.
func (r ByteRange) Overlaps(other ByteRange) bool {
	return r.Start < other.End && other.Start < r.End
}

// BodyPart points at one body section of a message.
type BodyPart struct {
	ContentType      string
	TransferEncoding string
	Content          ByteRange
}

// IsHTML reports whether the part carries HTML content.
func (b BodyPart) IsHTML() bool {
	return strings.Contains(b.ContentType, "text/html")
}

// MessageRecord is the load-time pointer form of a message.
// All ranges refer to the same immutable backing bytes.
type MessageRecord struct {
	Full     ByteRange
	Subject  ByteRange
	From     ByteRange
	Datetime time.Time
	Bodies   []BodyPart
}

// Message is a decoded message. It is rebuilt from its record on every access.
type Message struct {
	Id       ID
	From     string
	Datetime time.Time
	Subject  string
	BodyText *string // First non-HTML body part, nil if absent or undecodable
	BodyHTML *string // First HTML body part, nil if absent or undecodable
}

// HasBody reports whether the message resolved at least one body.
func (m *Message) HasBody() bool {
	return m.BodyText != nil || m.BodyHTML != nil
}

// String renders a one-line summary of the message.
func (m *Message) String() string {
	return fmt.Sprintf("#%d %s | %s | %s", m.Id, m.Datetime.Format(time.RFC1123Z), m.From, m.Subject)
}

// Hit is a single vector index match.
type Hit struct {
	Id    ID
	Score float32
}

// SearchResult is a ranked, hydrated message.
type SearchResult struct {
	Message *Message
	Score   float32
}
