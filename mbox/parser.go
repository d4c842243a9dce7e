package mbox

import (
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/poiesic/mboxsearch/core"
)

const (
	defaultTransferEncoding = "quoted-printable"
	defaultContentType      = "text/plain"
)

type parser struct {
	stack     []Token
	validator *RecordValidator
	records   []core.MessageRecord
	logger    *slog.Logger
}

// Parse builds message records from a token stream produced by Lex.
// Records are returned in discovery order, which is also their ID order.
// Messages that fail validation are logged and skipped; an End token with
// nothing to close aborts the parse with ErrStructuralParse.
func Parse(tokens []Token, logger *slog.Logger) ([]core.MessageRecord, error) {
	if logger == nil {
		logger = slog.Default()
	}
	p := &parser{
		validator: &RecordValidator{},
		logger:    logger.With("component", "mbox-parser"),
	}

	for i, tok := range tokens {
		if err := p.consume(tok); err != nil {
			return nil, fmt.Errorf("token %d: %w", i, err)
		}
	}

	if len(p.stack) > 0 {
		p.logger.Debug("unclosed tokens at end of stream", "count", len(p.stack))
	}
	return p.records, nil
}

func (p *parser) consume(tok Token) error {
	switch tok.Kind {
	case TokenStartEmail:
		if len(p.stack) > 0 {
			p.logger.Warn("message boundary with unclosed tokens, discarding draft",
				"offset", tok.Offset, "unclosed", len(p.stack))
			p.stack = p.stack[:0]
			p.validator = &RecordValidator{}
		}
		p.push(tok)
	case TokenEnd:
		return p.close(tok.Offset)
	case TokenDate:
		value := strings.TrimSpace(tok.Value)
		t, ok := parseDate(value)
		if !ok {
			// The last Date header decides, even when it does not parse.
			p.logger.Debug("unparseable date header", "value", value)
			p.validator.ClearDatetime()
			return nil
		}
		p.validator.SetDatetime(t.UTC())
	case TokenIgnore, TokenContinuation:
	default:
		p.push(tok)
	}
	return nil
}

// close pops the innermost open span and assigns it the range ending at e.
func (p *parser) close(e int64) error {
	for len(p.stack) > 0 && p.top().headerKind() {
		stray := p.pop()
		p.logger.Debug("discarding unpaired header token", "token", stray.String())
	}
	if len(p.stack) == 0 {
		return fmt.Errorf("%w: End(%d) with empty stack", ErrStructuralParse, e)
	}

	tok := p.pop()
	r := core.ByteRange{Start: tok.Offset, End: e}
	switch tok.Kind {
	case TokenBodyStart:
		ct, cte := p.popBodyHeaders()
		p.validator.AddBody(core.BodyPart{ContentType: ct, TransferEncoding: cte, Content: r})
	case TokenFrom:
		p.validator.SetFrom(r)
	case TokenSubject:
		p.validator.SetSubject(r)
	case TokenStartEmail:
		p.validator.SetFull(r)
		p.finish()
	default:
		return fmt.Errorf("%w: End(%d) closes %s", ErrStructuralParse, e, tok)
	}
	return nil
}

// popBodyHeaders takes the headers beneath a body only when they form the
// exact pair Content-Transfer-Encoding over Content-Type. Anything else is
// left on the stack for the next End to discard, and the body gets the defaults.
func (p *parser) popBodyHeaders() (contentType, transferEncoding string) {
	n := len(p.stack)
	if n < 2 || p.stack[n-1].Kind != TokenContentTransferEncoding || p.stack[n-2].Kind != TokenContentType {
		return defaultContentType, defaultTransferEncoding
	}
	cte := p.pop()
	ct := p.pop()
	return strings.TrimSpace(ct.Value), strings.TrimSpace(cte.Value)
}

func (p *parser) finish() {
	draft := p.validator
	p.validator = &RecordValidator{}

	record, err := draft.Finalize()
	if err != nil {
		p.logger.Warn("dropping message", "draft", draft, "error", err)
		return
	}
	p.records = append(p.records, record)
}

// dateLayouts are tried in order when net/mail rejects a Date header.
var dateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	time.RFC850,
	time.RFC3339,
}

func parseDate(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	if t, err := mail.ParseDate(value); err == nil {
		return t, true
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (p *parser) push(tok Token) { p.stack = append(p.stack, tok) }

func (p *parser) top() Token { return p.stack[len(p.stack)-1] }

func (p *parser) pop() Token {
	tok := p.stack[len(p.stack)-1]
	p.stack = p.stack[:len(p.stack)-1]
	return tok
}
