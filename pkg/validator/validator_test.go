package validator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `json:"name" validate:"notblank"`
	Email string `json:"email" validate:"required,email"`
	Start string `json:"start_date" validate:"date"`
	Seats int    `json:"max_participants" validate:"gte=0"`
}

func TestStruct_Messages(t *testing.T) {
	ok := sample{Name: "x", Email: "a@b.co", Start: "2025-01-02"}
	require.NoError(t, Struct(ok))

	bad := ok
	bad.Name = "   "
	assert.Equal(t, "name is required", Message(Struct(bad)))

	bad = ok
	bad.Email = "nope"
	assert.Equal(t, "Invalid email address", Message(Struct(bad)))

	bad = ok
	bad.Start = "02/01/2025"
	assert.Contains(t, Message(Struct(bad)), "start_date")

	bad = ok
	bad.Seats = -1
	assert.Equal(t, "max_participants must be greater than or equal to 0", Message(Struct(bad)))
}

func TestEmail(t *testing.T) {
	assert.True(t, Email("faculty@college.edu"))
	assert.False(t, Email("faculty@"))
	assert.False(t, Email(""))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-03-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), d)

	d, err = ParseDate("2025-03-01T10:00:00+05:30")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 1, 4, 30, 0, 0, time.UTC), d)

	_, err = ParseDate("yesterday")
	assert.Error(t, err)
}
