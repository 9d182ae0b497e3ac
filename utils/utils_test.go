package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPageClamps(t *testing.T) {
	p := NewPage(0, 1000)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, DefaultPageSize, p.Limit)
	assert.Equal(t, 0, p.Offset())

	p = NewPage(3, 10)
	assert.Equal(t, 20, p.Offset())
}

func TestNewMeta(t *testing.T) {
	m := NewMeta(NewPage(1, 10), 25)
	assert.Equal(t, 3, m.TotalPages)

	m = NewMeta(NewPage(1, 10), 0)
	assert.Equal(t, 0, m.TotalPages)
}

func TestValidateStructUsesJSONNames(t *testing.T) {
	type req struct {
		Email  string `json:"email" validate:"required,email"`
		Amount int64  `json:"amount" validate:"gt=0"`
	}

	err := ValidateStruct(req{Email: "nope", Amount: 0})
	require.Error(t, err)

	var fe FieldErrors
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "must be a valid email address", fe["email"])
	assert.Equal(t, "must be greater than 0", fe["amount"])

	assert.NoError(t, ValidateStruct(req{Email: "a@b.co", Amount: 1}))
}
