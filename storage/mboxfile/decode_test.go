package mboxfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/mboxsearch/storage"
)

func TestDecodeHeader(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "plain ascii with line break",
			raw:  "Project kickoff\n",
			want: "Project kickoff",
		},
		{
			name: "crlf line break",
			raw:  "Project kickoff\r\n",
			want: "Project kickoff",
		},
		{
			name: "q encoded word",
			raw:  "=?UTF-8?Q?Caf=C3=A9?=\n",
			want: "Café",
		},
		{
			name: "b encoded word",
			raw:  "=?utf-8?B?w7xiZXI=?=\n",
			want: "über",
		},
		{
			name: "folded adjacent words drop whitespace",
			raw:  "=?UTF-8?Q?Caf=C3=A9_meeting?=\n =?UTF-8?Q?_notes?=\n",
			want: "Café meeting notes",
		},
		{
			name: "encoded word followed by address",
			raw:  "=?UTF-8?Q?Bob_M=C3=BCller?= <bob@example.com>\n",
			want: "Bob Müller <bob@example.com>",
		},
		{
			name: "text between words is kept",
			raw:  "=?UTF-8?Q?a?= and =?UTF-8?Q?b?=",
			want: "a and b",
		},
		{
			name: "latin1 charset",
			raw:  "=?ISO-8859-1?Q?Gr=FC=DFe?=",
			want: "Grüße",
		},
		{
			name: "windows-1252 via charset reader",
			raw:  "=?windows-1252?Q?=80uro?=",
			want: "€uro",
		},
		{
			name: "folded plain text keeps leading space",
			raw:  "A long\n subject",
			want: "A long subject",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeHeader([]byte(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeHeader_OverlongWordKeptVerbatim(t *testing.T) {
	word := "=?UTF-8?Q?" + "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa" + "?="
	require.Greater(t, len(word), maxEncodedWordLen)

	got, err := decodeHeader([]byte(word + "\n"))
	require.NoError(t, err)
	assert.Equal(t, word, got)
}

func TestDecodeHeader_UnknownCharset(t *testing.T) {
	_, err := decodeHeader([]byte("=?x-no-such-charset?Q?abc?=\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrDecode)
}

func TestDecodeBody(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		encoding    string
		contentType string
		want        string
	}{
		{
			name:        "quoted printable soft break",
			raw:         "\nHello =\nworld=21\n",
			encoding:    "quoted-printable",
			contentType: "text/plain",
			want:        "\nHello world!\n",
		},
		{
			name:        "quoted printable utf8",
			raw:         "caf=C3=A9\n",
			encoding:    "Quoted-Printable",
			contentType: "text/plain; charset=utf-8",
			want:        "café\n",
		},
		{
			name:        "malformed escape passes through",
			raw:         "100% =ZZ sure\n",
			encoding:    "quoted-printable",
			contentType: "text/plain",
			want:        "100% =ZZ sure\n",
		},
		{
			name:        "control byte between escapes",
			raw:         "caf=C3=A9 soft=\nbreak\x0cformfeed\n",
			encoding:    "quoted-printable",
			contentType: "text/plain; charset=utf-8",
			want:        "café softbreak\fformfeed\n",
		},
		{
			name:        "raw utf8 in quoted printable body",
			raw:         "naïve =3D ok\n",
			encoding:    "quoted-printable",
			contentType: "text/plain; charset=utf-8",
			want:        "naïve = ok\n",
		},
		{
			name:        "short escape at end passes through",
			raw:         "first=21\ntrailing =A",
			encoding:    "quoted-printable",
			contentType: "text/plain",
			want:        "first!\ntrailing =A",
		},
		{
			name:        "base64 stops at boundary",
			raw:         "\naGVsbG8g\nd29ybGQ=\n--XYZ\n",
			encoding:    "base64",
			contentType: "text/plain",
			want:        "hello world",
		},
		{
			name:        "8bit passes through",
			raw:         "naïve =41\n",
			encoding:    "8bit",
			contentType: "text/plain",
			want:        "naïve =41\n",
		},
		{
			name:        "latin1 body transcoded",
			raw:         "Gr=FC=DFe\n",
			encoding:    "quoted-printable",
			contentType: "text/plain; charset=iso-8859-1",
			want:        "Grüße\n",
		},
		{
			name:        "unknown charset left as is",
			raw:         "plain\n",
			encoding:    "quoted-printable",
			contentType: "text/plain; charset=x-unknown",
			want:        "plain\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeBody([]byte(tt.raw), tt.encoding, tt.contentType)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeBody_InvalidUTF8(t *testing.T) {
	_, err := decodeBody([]byte("caf=E9\n"), "quoted-printable", "text/plain")
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrDecode)
}
