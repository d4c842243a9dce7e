package mbox

import "fmt"

// TokenKind identifies what a lexed line means to the parser.
type TokenKind uint8

const (
	TokenIgnore TokenKind = iota
	TokenStartEmail
	TokenSubject
	TokenFrom
	TokenDate
	TokenBodyStart
	TokenContentType
	TokenContentTransferEncoding
	TokenEnd
	TokenContinuation
)

var tokenKindNames = [...]string{
	TokenIgnore:                  "Ignore",
	TokenStartEmail:              "StartEmail",
	TokenSubject:                 "Subject",
	TokenFrom:                    "From",
	TokenDate:                    "Date",
	TokenBodyStart:               "BodyStart",
	TokenContentType:             "ContentType",
	TokenContentTransferEncoding: "ContentTransferEncoding",
	TokenEnd:                     "End",
	TokenContinuation:            "Continuation",
}

func (k TokenKind) String() string {
	if int(k) < len(tokenKindNames) {
		return tokenKindNames[k]
	}
	return fmt.Sprintf("TokenKind(%d)", k)
}

// Token is one lexed unit. Offset-carrying kinds (StartEmail, Subject, From,
// BodyStart, End) set Offset; value-carrying kinds (Date, ContentType,
// ContentTransferEncoding) set Value.
type Token struct {
	Kind   TokenKind
	Offset int64
	Value  string
}

func (t Token) String() string {
	switch t.Kind {
	case TokenDate, TokenContentType, TokenContentTransferEncoding:
		return fmt.Sprintf("%s(%q)", t.Kind, t.Value)
	case TokenIgnore, TokenContinuation:
		return t.Kind.String()
	default:
		return fmt.Sprintf("%s(%d)", t.Kind, t.Offset)
	}
}

// spanKind reports whether the token opens a single-line span that is closed
// by a synthetic End at the next emitted line boundary.
func (t Token) spanKind() bool {
	return t.Kind == TokenFrom || t.Kind == TokenSubject || t.Kind == TokenBodyStart
}

func (t Token) headerKind() bool {
	return t.Kind == TokenContentType || t.Kind == TokenContentTransferEncoding
}

func startEmail(offset int64) Token { return Token{Kind: TokenStartEmail, Offset: offset} }
func end(offset int64) Token        { return Token{Kind: TokenEnd, Offset: offset} }
