package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidator_FirstErrorWins(t *testing.T) {
	v := New()
	assert.True(t, v.Valid())

	v.Check(false, "latitude", "must be provided")
	v.Check(false, "latitude", "must be a number")
	v.Check(true, "longitude", "must be provided")

	assert.False(t, v.Valid())
	assert.Equal(t, map[string]string{"latitude": "must be provided"}, v.Errors)
}

func TestPermittedValue(t *testing.T) {
	assert.True(t, PermittedValue("driver", "admin", "driver", "parent"))
	assert.False(t, PermittedValue("guest", "admin", "driver", "parent"))
}
