// Package mbox turns a raw mbox archive into validated message records.
//
// Loading happens in two passes over the archive:
//   - Lex reads the archive line by line and emits offset-tagged tokens
//   - Parse runs the tokens through an explicit stack and builds MessageRecords
//
// Records carry byte ranges only. Decoding the referenced bytes is left to the
// storage layer, which keeps the archive mapped for its whole lifetime.
//
// A message missing a required header is logged and dropped. A token stream
// whose stack underflows aborts the whole parse with ErrStructuralParse.
package mbox
