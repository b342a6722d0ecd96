// ABOUTME: Sentinel and typed errors returned by the household repository
// ABOUTME: StorageError wraps table failures and matches ErrStorage

package household

import "errors"

var (
	// ErrNotFound is returned when an update targets an unknown household.
	ErrNotFound = errors.New("household not found")

	// ErrDuplicateEmail is returned when a login email is already in use by
	// another household.
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrInvalidMember is returned when an update names a guardian or
	// student that never belonged to the household, or names one twice.
	ErrInvalidMember = errors.New("invalid household member")

	// ErrStorage matches every *StorageError.
	ErrStorage = errors.New("storage failure")
)

// StorageError reports a failed table operation.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}
