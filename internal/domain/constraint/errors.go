package constraint

import "errors"

// Reasons a candidate is not selectable.
var (
	ErrLocked         = errors.New("preference is locked")
	ErrNoCapacity     = errors.New("no capacity available")
	ErrGenderMismatch = errors.New("block does not admit member gender")
	ErrForeignBlock   = errors.New("block does not belong to venue")
)
