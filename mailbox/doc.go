// Package mailbox ties an archive, an embedder and a vector index together.
//
// Service.IndexEmails walks every message in a storage.MessageRepository,
// embeds the plain-text body (or the HTML body rendered to text) in fixed-size
// batches and stores one vector per message. Indexing never fails as a whole:
// a failed batch is logged, counted and skipped. Service.SearchEmail is
// all-or-nothing: it embeds the query, ranks the index and hydrates each hit
// from storage.
package mailbox
