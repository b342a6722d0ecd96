// Package cli implements the household-admin commands.
//
// # Commands
//
//   - show: current or past snapshot of one household
//   - history: every version of one household
//   - lookup: household an email address belongs to
//   - export: CSV of every current guardian and student
//   - withdraw: tombstone a household and its members
//
// All commands accept --config and --format (text|json). They open the
// database directly, so they work while the server is stopped. The write
// lock is per process: withdraw while the server is accepting edits can
// race with an update of the same household.
package cli
