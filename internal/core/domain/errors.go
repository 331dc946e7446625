package domain

import (
	"errors"
	"fmt"
)

var (
	ErrDocumentNotFound    = errors.New("document not found")
	ErrInvalidInput        = errors.New("invalid input")
	ErrTemporary           = errors.New("temporary failure")
	ErrStoreFailure        = errors.New("document store failure")
	ErrCollaboratorFailure = errors.New("collaborator failure")

	// ErrNoResults is a terminal outcome: every retrieval strategy ran and
	// legitimately found nothing.
	ErrNoResults = errors.New("no results")
)

// User-facing messages.
const (
	MessageNoResults = "죄송합니다. 관련된 정보를 찾을 수 없습니다."
	MessageApology   = "죄송합니다, 답변 생성 중 오류가 발생했습니다."
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
