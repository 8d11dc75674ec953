package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/playlistapp/playlist-server/internal/errors"
)

type sample struct {
	Name     *string  `json:"name" validate:"required"`
	Public   *bool    `json:"public" validate:"required"`
	Duration *int     `json:"duration_s,omitempty" validate:"omitempty,gte=0"`
	Artists  []artist `json:"artists" validate:"omitempty,dive"`
}

type artist struct {
	Name string `json:"name" validate:"required"`
}

func ptr[T any](v T) *T { return &v }

func TestValidate_PointerRequiredAcceptsZeroValues(t *testing.T) {
	v := New()

	err := v.Validate(&sample{Name: ptr(""), Public: ptr(false)})
	assert.NoError(t, err)
}

func TestValidate_MissingFieldsReportJSONNames(t *testing.T) {
	v := New()

	err := v.Validate(&sample{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrBadRequest)

	var derr *domainerrors.Error
	require.ErrorAs(t, err, &derr)
	fields, ok := derr.Details.(FieldErrors)
	require.True(t, ok)
	assert.Equal(t, "is required", fields["name"])
	assert.Equal(t, "is required", fields["public"])
}

func TestValidate_Gte(t *testing.T) {
	v := New()

	err := v.Validate(&sample{Name: ptr("x"), Public: ptr(true), Duration: ptr(-1)})
	require.Error(t, err)

	var derr *domainerrors.Error
	require.ErrorAs(t, err, &derr)
	assert.Contains(t, derr.Details.(FieldErrors)["duration_s"], "greater than or equal to 0")
}

func TestValidate_Dive(t *testing.T) {
	v := New()

	err := v.Validate(&sample{Name: ptr("x"), Public: ptr(true), Artists: []artist{{Name: ""}}})
	require.Error(t, err)
	assert.Equal(t, domainerrors.CodeBadRequest.Message(), err.(*domainerrors.Error).Message)
}
