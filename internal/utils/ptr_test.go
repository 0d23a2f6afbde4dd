package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPtr(t *testing.T) {
	p := Ptr(3)
	*p = 4
	assert.Equal(t, 4, OrZero(p))
	assert.Equal(t, 0, OrZero[int](nil))
	assert.Equal(t, "", OrZero[string](nil))
}
