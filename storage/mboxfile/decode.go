package mboxfile

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/quotedprintable"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"

	"github.com/poiesic/mboxsearch/storage"
)

// maxEncodedWordLen is the RFC 2047 limit; longer words are kept verbatim.
const maxEncodedWordLen = 75

var encodedWord = regexp.MustCompile(`=\?[^?\s]+\?[bBqQ]\?[^?\s]*\?=`)

var wordDecoder = &mime.WordDecoder{CharsetReader: charsetReader}

// charsetReader converts encoded-word text from any IANA-registered charset to UTF-8.
func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	enc, err := ianaindex.MIME.Encoding(strings.ToLower(charset))
	if err != nil || enc == nil {
		return nil, fmt.Errorf("unsupported charset %q", charset)
	}
	return transform.NewReader(input, enc.NewDecoder()), nil
}

// decodeHeader decodes the encoded words in a raw header value and removes
// the line breaks left by header folding. Whitespace between two adjacent
// encoded words is dropped.
func decodeHeader(raw []byte) (string, error) {
	s := string(raw)
	matches := encodedWord.FindAllStringIndex(s, -1)

	var b strings.Builder
	b.Grow(len(s))
	last := 0
	prevEncoded := false
	for _, m := range matches {
		between := s[last:m[0]]
		if !(prevEncoded && strings.TrimSpace(between) == "") {
			b.WriteString(between)
		}

		word := s[m[0]:m[1]]
		if len(word) > maxEncodedWordLen {
			b.WriteString(word)
		} else {
			decoded, err := wordDecoder.Decode(word)
			if err != nil {
				return "", fmt.Errorf("%w: %w", storage.ErrDecode, err)
			}
			b.WriteString(decoded)
		}
		last = m[1]
		prevEncoded = true
	}
	b.WriteString(s[last:])

	out := strings.ReplaceAll(b.String(), "\n", "")
	out = strings.ReplaceAll(out, "\r", "")
	if !utf8.ValidString(out) {
		return "", fmt.Errorf("%w: header is not valid UTF-8", storage.ErrDecode)
	}
	return out, nil
}

// decodeBody undoes the transfer encoding of a body part, converts it to UTF-8
// using the charset parameter of its content type, and checks the result is text.
func decodeBody(raw []byte, transferEncoding, contentType string) (string, error) {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(strings.TrimSpace(transferEncoding)) {
	case "base64":
		data, err = decodeBase64(raw)
	case "7bit", "8bit", "binary":
		data = raw
	default:
		data, err = decodeQuotedPrintable(raw)
	}
	if err != nil {
		return "", err
	}

	data, err = toUTF8(data, contentType)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: body is not valid UTF-8", storage.ErrDecode)
	}
	return string(data), nil
}

// decodeQuotedPrintable decodes one line at a time. Bytes the quoted-printable
// reader refuses to see unescaped are escaped first so they pass through, and
// a line that still fails to decode is kept raw without losing the rest.
func decodeQuotedPrintable(raw []byte) ([]byte, error) {
	var out bytes.Buffer
	out.Grow(len(raw))
	for line := range bytes.Lines(raw) {
		decoded, err := io.ReadAll(quotedprintable.NewReader(bytes.NewReader(escapeUnsafe(line))))
		if err != nil {
			out.Write(line)
			continue
		}
		out.Write(decoded)
	}
	return out.Bytes(), nil
}

const upperHex = "0123456789ABCDEF"

// escapeUnsafe rewrites control and 8-bit bytes as =XX so the reader decodes
// them back to themselves.
func escapeUnsafe(line []byte) []byte {
	var buf []byte
	for i, b := range line {
		if b == '\t' || b == '\r' || b == '\n' || (b >= ' ' && b <= '~') {
			if buf != nil {
				buf = append(buf, b)
			}
			continue
		}
		if buf == nil {
			buf = append(make([]byte, 0, len(line)+8), line[:i]...)
		}
		buf = append(buf, '=', upperHex[b>>4], upperHex[b&0x0f])
	}
	if buf == nil {
		return line
	}
	return buf
}

// decodeBase64 decodes the leading run of base64 lines, stopping at the first
// line that is not base64, such as a trailing multipart boundary.
func decodeBase64(raw []byte) ([]byte, error) {
	var encoded bytes.Buffer
	for line := range bytes.Lines(raw) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		if !isBase64Line(line) {
			break
		}
		encoded.Write(line)
	}

	src := encoded.Bytes()
	enc := base64.StdEncoding
	if len(src)%4 != 0 {
		enc = base64.RawStdEncoding
		src = bytes.TrimRight(src, "=")
	}
	out := make([]byte, enc.DecodedLen(len(src)))
	n, err := enc.Decode(out, src)
	if err != nil {
		return nil, fmt.Errorf("%w: base64: %w", storage.ErrDecode, err)
	}
	return out[:n], nil
}

func isBase64Line(line []byte) bool {
	for _, c := range line {
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		case c == '+', c == '/', c == '=':
		default:
			return false
		}
	}
	return true
}

// toUTF8 transcodes data from the charset named in contentType.
// Unknown or absent charsets leave the data as is.
func toUTF8(data []byte, contentType string) ([]byte, error) {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return data, nil
	}
	charset := strings.ToLower(params["charset"])
	switch charset {
	case "", "utf-8", "utf8", "us-ascii":
		return data, nil
	}

	enc, err := ianaindex.MIME.Encoding(charset)
	if err != nil || enc == nil {
		return data, nil
	}
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("%w: charset %s: %w", storage.ErrDecode, charset, err)
	}
	return out, nil
}
