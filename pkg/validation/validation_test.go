package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scanRequest struct {
	EventID    int64  `json:"event_id" validate:"gt=0"`
	Identifier string `json:"student_identifier" validate:"notblank,max=64"`
	Note       string `json:"-" validate:"max=3"`
}

func TestValidator_Struct(t *testing.T) {
	v := New()

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, v.Struct(scanRequest{EventID: 1, Identifier: "2021-0001"}))
	})

	t.Run("field errors use json names", func(t *testing.T) {
		err := v.Struct(scanRequest{EventID: 0, Identifier: "   "})
		require.Error(t, err)

		var fe FieldErrors
		require.ErrorAs(t, err, &fe)
		assert.Contains(t, fe, "event_id")
		assert.Equal(t, "this field cannot be blank", fe["student_identifier"])
	})

	t.Run("error text is sorted", func(t *testing.T) {
		err := v.Struct(scanRequest{})
		require.Error(t, err)
		assert.Regexp(t, `^event_id: .*; student_identifier: `, err.Error())
	})
}
