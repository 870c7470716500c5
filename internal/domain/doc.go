// Package domain defines the data model and collaborator contracts shared by
// the session engine.
//
// It holds plain types (peer identity, connection descriptor, connection
// state, per-peer options), the error taxonomy surfaced to users, and the
// interfaces the engine consumes: option storage, UI sink, video decoder,
// audio output and clipboard.
package domain
