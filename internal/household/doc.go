// Package household stores household registrations as versioned, append-only
// records.
//
// # Overview
//
// A registration is an Aggregate: one Household, its Guardians and its
// Students. Each entity lives in its own table. Rows are never rewritten;
// every change appends new rows carrying a higher version number.
//
// # Versioning
//
// A household is created at version 1. An update appends a household row
// at version N+1 together with a row for every submitted guardian and
// student at the same version. Members that existed at version N but are
// missing from the submission get a tombstone row at N+1: the last known
// values with Status set to StatusDeleted.
//
// # Snapshots
//
// The current snapshot of a household is the household row with the
// highest version plus the active guardian and student rows that share
// that exact version (lock-step). When a member id appears more than once
// at one version, the last appended row wins.
//
// # Identifiers
//
// Identifiers are a prefix plus a zero-padded 5-digit number: HH00001,
// G00001, S00001. A new identifier is the highest existing number plus
// one; gaps are never filled.
//
// # Writes
//
// Saves are a sequence of appends with no transaction. A failure part way
// through leaves the rows already written in place and returns a
// *StorageError. Updates append the household row last so an interrupted
// update does not become the current snapshot. A retry takes the next
// version above every row already written, so the abandoned rows stay
// orphaned and the version sequence skips one. Writes are serialized within
// one Repository.
package household
