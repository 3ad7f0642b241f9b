package service

import (
	"errors"
	"fmt"
	"testing"

	"github.com/bitfantasy/onboard/internal/onboarding/repository"
	"go.uber.org/zap"
)

func TestFail(t *testing.T) {
	logger := zap.NewNop()
	cause := errors.New("dial tcp: connection refused")

	tests := []struct {
		err     error
		kind    Kind
		message string
	}{
		{notFound("case not found"), KindNotFound, "case not found"},
		{fmt.Errorf("find: %w", repository.ErrNotFound), KindNotFound, "not found"},
		{fmt.Errorf("%w: %v", repository.ErrStoreUnavailable, cause), KindStoreUnavailable, repository.ErrStoreUnavailable.Error()},
		{fmt.Errorf("%w: %v", repository.ErrStoreRejected, cause), KindStoreRejected, repository.ErrStoreRejected.Error()},
		{cause, KindInternal, "unexpected server error"},
	}
	for _, tt := range tests {
		err := fail(logger, "op", tt.err)
		if KindOf(err) != tt.kind || err.Error() != tt.message {
			t.Errorf("%v: Expected %s %q, got %s %q", tt.err, tt.kind, tt.message, KindOf(err), err.Error())
		}
	}

	wrapped := fail(logger, "op", cause)
	if !errors.Is(wrapped, cause) {
		t.Error("Expected cause to be kept for logging")
	}
	if KindOf(errors.New("x")) != KindInternal {
		t.Error("Expected foreign errors to be internal")
	}
}
