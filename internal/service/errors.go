package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/nurpe/trip-settlements/internal/workflow"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrPermissionDenied is shared with the workflow rules, so lock and transition
	// failures surface as is.
	ErrPermissionDenied = workflow.ErrForbidden
	ErrInvalidInput     = errors.New("invalid input")
)

// notFound turns a missing row into ErrNotFound naming what was looked up.
func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return err
}
