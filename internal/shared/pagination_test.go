package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPagination(t *testing.T) {
	assert.Equal(t, Pagination{Page: 1, PerPage: 20, Total: 41, TotalPages: 3}, NewPagination(0, 0, 41, 20))
	assert.Equal(t, Pagination{Page: 2, PerPage: 10, Total: 0, TotalPages: 0}, NewPagination(2, 10, 0, 20))
}

func TestUserSafeMessageHidesInternals(t *testing.T) {
	assert.Equal(t, "internal error", UserSafeMessage(assert.AnError))
	assert.Equal(t, "authentication required", UserSafeMessage(ErrInvalidCredentials))
	assert.Empty(t, UserSafeMessage(nil))
}
