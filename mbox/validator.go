package mbox

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/mboxsearch/core"
)

// RecordValidator accumulates the parts of one message as the parser
// discovers them and turns them into a MessageRecord once the message closes.
type RecordValidator struct {
	full     *core.ByteRange
	subject  *core.ByteRange
	from     *core.ByteRange
	datetime *time.Time
	bodies   []core.BodyPart
}

// SetFull records the range of the whole message.
func (v *RecordValidator) SetFull(r core.ByteRange) { v.full = &r }

// SetSubject records the range of the Subject header value.
func (v *RecordValidator) SetSubject(r core.ByteRange) { v.subject = &r }

// SetFrom records the range of the From header value.
func (v *RecordValidator) SetFrom(r core.ByteRange) { v.from = &r }

// SetDatetime records the parsed Date header.
func (v *RecordValidator) SetDatetime(t time.Time) { v.datetime = &t }

// ClearDatetime forgets any Date header recorded so far.
func (v *RecordValidator) ClearDatetime() { v.datetime = nil }

// AddBody appends a body part in discovery order.
func (v *RecordValidator) AddBody(b core.BodyPart) { v.bodies = append(v.bodies, b) }

// Finalize builds the record if full, subject, from, and datetime are all
// present and the resulting ranges are consistent.
func (v *RecordValidator) Finalize() (core.MessageRecord, error) {
	var missing []string
	if v.full == nil {
		missing = append(missing, "full")
	}
	if v.subject == nil {
		missing = append(missing, "subject")
	}
	if v.from == nil {
		missing = append(missing, "from")
	}
	if v.datetime == nil {
		missing = append(missing, "datetime")
	}
	if len(missing) > 0 {
		return core.MessageRecord{}, fmt.Errorf("%w: missing %s", ErrRecordValidation, strings.Join(missing, ", "))
	}

	record := core.MessageRecord{
		Full:     *v.full,
		Subject:  *v.subject,
		From:     *v.from,
		Datetime: *v.datetime,
		Bodies:   v.bodies,
	}
	if err := core.ValidateMessageRecord(&record); err != nil {
		return core.MessageRecord{}, fmt.Errorf("%w: %w", ErrRecordValidation, err)
	}
	return record, nil
}

// LogValue renders the draft for diagnostics when it is dropped.
func (v *RecordValidator) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, 5)
	if v.full != nil {
		attrs = append(attrs, slog.Int64("start", v.full.Start), slog.Int64("end", v.full.End))
	}
	attrs = append(attrs,
		slog.Bool("has_subject", v.subject != nil),
		slog.Bool("has_from", v.from != nil),
		slog.Bool("has_datetime", v.datetime != nil),
		slog.Int("bodies", len(v.bodies)),
	)
	return slog.GroupValue(attrs...)
}
