package store

import "fmt"

// ErrNotFound is returned when a sample id does not exist.
type ErrNotFound struct {
	ID string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("sample %s not found", e.ID)
}

// ErrDuplicate is returned when a sample id is already present.
type ErrDuplicate struct {
	ID string
}

func (e ErrDuplicate) Error() string {
	return fmt.Sprintf("sample %s already exists", e.ID)
}

// ErrInvalid is returned for input that violates the data model.
type ErrInvalid struct {
	Reason string
}

func (e ErrInvalid) Error() string {
	return "invalid sample: " + e.Reason
}
