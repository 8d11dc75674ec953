package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCode_HTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeBadRequest, http.StatusBadRequest},
		{CodeDuplicateTrack, http.StatusBadRequest},
		{CodeUnauthorized, http.StatusUnauthorized},
		{CodeForbidden, http.StatusForbidden},
		{CodeNotFound, http.StatusNotFound},
		{CodeNotAllowed, http.StatusMethodNotAllowed},
		{CodeNotAcceptable, http.StatusNotAcceptable},
		{CodeInternal, http.StatusInternalServerError},
		{Code("SOMETHING_ELSE"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.HTTPStatus())
		})
	}
}

func TestCode_Message(t *testing.T) {
	assert.Equal(t, "Duplicate tracks are not allowed.", CodeDuplicateTrack.Message())
	assert.Equal(t, "A resource with the requested id could not be found.", CodeNotFound.Message())
	assert.Equal(t, CodeInternal.Message(), Code("nope").Message())
}

func TestError_IsMatchesByCode(t *testing.T) {
	err := NotFoundf("playlist %d", 42)

	assert.True(t, Is(err, ErrNotFound))
	assert.False(t, Is(err, ErrForbidden))

	wrapped := fmt.Errorf("get playlist: %w", err)
	assert.True(t, Is(wrapped, ErrNotFound))
}

func TestError_DetailsStayOutOfPublicMessage(t *testing.T) {
	err := Forbiddenf("playlist %d owned by %s", 1, "someone")

	assert.Equal(t, CodeForbidden.Message(), err.Message)
	assert.Contains(t, err.Error(), "owned by someone")
}

func TestWrap_UnwrapsCause(t *testing.T) {
	cause := fmt.Errorf("disk on fire")
	err := New(CodeInternal).WithCause(cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, http.StatusInternalServerError, err.HTTPStatus())
}
