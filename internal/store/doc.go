// Package store persists clusters and templates.
//
// Every record is a JSON document addressed by kind and id. The [Store]
// implementation ([Documents]) owns the codec and all read-modify-write logic
// and delegates raw document I/O to a [Backend]: in-memory, PostgreSQL (JSONB
// rows) or S3 (one object per record). Backends therefore share semantics
// and differ only in durability.
package store
