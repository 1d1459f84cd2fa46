// Package records implements the persistent store behind the offline layer.
//
// A store maps a namespace name to an ordered list of JSON records and
// replaces the whole list on every save, so a failed write never leaves a
// half-updated namespace behind. Three backends are provided: SQLiteStore
// (the default, sharing the goose-migrated local database), LevelDBStore and
// MemoryStore for tests and ephemeral sessions.
//
// Every failure is wrapped with ErrStore; callers use errors.Is to tell a
// storage fault from other errors.
package records
