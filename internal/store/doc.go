// Package store persists per-peer session options and process-wide
// settings.
//
// Two backends implement domain.OptionStore: OptionFileStore keeps JSON
// files under the deskwire home directory, and SQLiteStore keeps tables in
// a sqlite database migrated with golang-migrate. Either can be wrapped in a
// SealedStore, which encrypts remembered credentials with a key derived
// from a passphrase. All backends are safe for concurrent use.
package store
