package allocation

import (
	"fmt"

	"github.com/dakheliyah/vms/internal/domain/model"
)

// Error taxonomy of a submission.
var (
	ErrTransport  = model.ErrTransport
	ErrRejected   = model.ErrRejected
	ErrValidation = model.ErrValidation
)

// Local validation failures. Each wraps ErrValidation.
var (
	ErrUnknownMember = fmt.Errorf("%w: member is not on the roster", ErrValidation)
	ErrUnknownVenue  = fmt.Errorf("%w: venue is not in the capacity snapshot", ErrValidation)
	ErrUnknownBlock  = fmt.Errorf("%w: block does not exist in venue", ErrValidation)
	ErrBlockRequired = fmt.Errorf("%w: a block must be selected", ErrValidation)
	ErrDuplicate     = fmt.Errorf("%w: member appears more than once", ErrValidation)
)
