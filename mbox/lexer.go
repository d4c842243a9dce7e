package mbox

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	prefixStartEmail = "From "
	prefixSubject    = "Subject: "
	prefixFrom       = "From: "
	prefixDate       = "Date: "
	prefixCTE        = "Content-Transfer-Encoding: "
	prefixCT         = "Content-Type: "
	boundaryParam    = "boundary="
)

// lexer holds the state carried from one line to the next.
type lexer struct {
	tokens   []Token
	boundary string // active multipart boundary, empty when none
	pending  Token  // most recent non-continuation token, not yet emitted
	offset   int64  // bytes consumed before the current line
}

// Lex tokenizes an mbox stream in a single pass.
// Offsets count every raw byte of the input, including line terminators.
func Lex(r io.Reader) ([]Token, error) {
	br := bufio.NewReader(r)
	lx := &lexer{pending: Token{Kind: TokenIgnore}}

	for {
		raw, err := br.ReadString('\n')
		if len(raw) > 0 {
			lx.line(raw)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("%w: reading line at offset %d: %w", ErrFileAccess, lx.offset, err)
		}
	}

	lx.flush(true)
	return lx.tokens, nil
}

func (lx *lexer) line(raw string) {
	text := strings.TrimSuffix(raw, "\n")
	text = strings.TrimSuffix(text, "\r")

	tok := lx.classify(text)
	if tok.Kind != TokenContinuation {
		lx.flush(false)
		lx.pending = tok
	}
	lx.offset += int64(len(raw))
}

// classify maps one line, without its terminator, to a token.
func (lx *lexer) classify(text string) Token {
	switch {
	case strings.HasPrefix(text, prefixStartEmail):
		lx.boundary = ""
		return startEmail(lx.offset)
	case strings.HasPrefix(text, prefixSubject):
		return Token{Kind: TokenSubject, Offset: lx.offset + int64(len(prefixSubject))}
	case strings.HasPrefix(text, prefixFrom):
		return Token{Kind: TokenFrom, Offset: lx.offset + int64(len(prefixFrom))}
	case strings.HasPrefix(text, prefixDate):
		return Token{Kind: TokenDate, Value: text[len(prefixDate):]}
	case strings.HasPrefix(text, prefixCTE):
		return Token{Kind: TokenContentTransferEncoding, Value: text[len(prefixCTE):]}
	case strings.HasPrefix(text, prefixCT):
		if i := strings.Index(text, boundaryParam); i >= 0 {
			if b := parseBoundary(text[i+len(boundaryParam):]); b != "" {
				lx.boundary = b
			}
			return Token{Kind: TokenIgnore}
		}
		return Token{Kind: TokenContentType, Value: text[len(prefixCT):]}
	case lx.boundary != "" && strings.HasPrefix(text, lx.boundary):
		return end(lx.offset)
	}

	switch {
	case lx.pending.Kind == TokenContentTransferEncoding && text == "":
		return Token{Kind: TokenBodyStart, Offset: lx.offset}
	case lx.pending.Kind == TokenBodyStart:
		return Token{Kind: TokenContinuation}
	case lx.boundary == "" && text == "":
		return Token{Kind: TokenBodyStart, Offset: lx.offset}
	case strings.HasPrefix(text, " "):
		return Token{Kind: TokenContinuation}
	default:
		return Token{Kind: TokenIgnore}
	}
}

// flush emits the pending token according to how it has to be closed.
// atEOF marks the final flush, after which an End at end of input is appended.
func (lx *lexer) flush(atEOF bool) {
	tok := lx.pending

	switch {
	case tok.Kind == TokenStartEmail && atEOF:
		// A trailing "From " line with nothing after it opens no message.
	case tok.Kind == TokenStartEmail && tok.Offset > 0:
		lx.tokens = append(lx.tokens, end(tok.Offset), tok)
	case tok.Kind == TokenIgnore || tok.Kind == TokenContinuation:
	case tok.spanKind():
		lx.tokens = append(lx.tokens, tok, end(lx.offset))
	default:
		lx.tokens = append(lx.tokens, tok)
	}

	if atEOF {
		lx.tokens = append(lx.tokens, end(lx.offset))
	}
}

// parseBoundary extracts the boundary value following "boundary=".
// Quoted values run to the closing quote, bare values to ';' or whitespace.
func parseBoundary(rest string) string {
	if strings.HasPrefix(rest, `"`) {
		rest = rest[1:]
		i := strings.IndexByte(rest, '"')
		if i < 0 {
			return ""
		}
		return rest[:i]
	}
	if i := strings.IndexAny(rest, "; \t"); i >= 0 {
		rest = rest[:i]
	}
	return rest
}
