package service

import (
	"errors"

	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// mapRepoErr translates repository sentinels into DomainErrors; other errors
// pass through for the boundary to hide.
func mapRepoErr(err error, resource string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound(resource, nil)
	case errors.Is(err, repository.ErrConflict):
		return apperrors.NewValidationError(resource+" already exists", nil)
	}
	return err
}
