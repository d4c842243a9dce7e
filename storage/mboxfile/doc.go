// Package mboxfile implements storage.MessageRepository over a single mbox archive.
//
// Open maps the archive read-only, lexes and parses it once, and keeps only the
// resulting byte-range records in memory. Every GetEmail call decodes headers
// and bodies afresh from the mapping:
//   - From and Subject are RFC 2047 decoded, with folded line breaks removed
//   - the first plain and the first HTML body part are transfer-decoded
//     (quoted-printable or base64) and converted to UTF-8
//
// The archive file must not be truncated or rewritten while an MboxFile is open.
package mboxfile
