package simerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMalformed(t *testing.T) {
	err := Malformed("street %q: length %d", "rue-de-rivoli", 0)
	assert.ErrorIs(t, err, ErrMalformedInput)
	assert.EqualError(t, err, `malformed input: street "rue-de-rivoli": length 0`)

	wrapped := fmt.Errorf("line 3: %w", err)
	assert.ErrorIs(t, wrapped, ErrMalformedInput)
}

func TestInvariantViolation(t *testing.T) {
	var err error = &InvariantViolation{VehicleID: 7, Tick: 12, Reason: "route exhausted"}
	wrapped := fmt.Errorf("at t=12: %w", err)

	var iv *InvariantViolation
	if assert.True(t, errors.As(wrapped, &iv)) {
		assert.Equal(t, 7, iv.VehicleID)
		assert.Equal(t, 12, iv.Tick)
	}
	assert.Equal(t, "invariant violation: vehicle 7 at t=12: route exhausted", err.Error())
	assert.NotErrorIs(t, wrapped, ErrMalformedInput)
}
