package service

import (
	"errors"
	"fmt"

	"github.com/dakheliyah/vms/internal/domain/model"
)

// Service errors.
var (
	ErrNotStarted    = errors.New("service not started")
	ErrNoCredential  = errors.New("missing credential")
	ErrInvalidEvent  = errors.New("invalid event id")
	ErrNotSelectable = errors.New("selection not allowed")
	ErrNothingToSend = fmt.Errorf("%w: no pending selections", model.ErrValidation)

	ErrAdminUnavailable = errors.New("admin operations not configured")
)
