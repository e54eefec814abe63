package servercli

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsNum(t *testing.T) {
	_, err := IsNum("abc")
	assert.NotNil(t, err)
	_, err = IsNum("80")
	assert.NotNil(t, err)
	_, err = IsNum("70000")
	assert.NotNil(t, err)

	n, err := IsNum("7979")
	assert.Nil(t, err)
	assert.Equal(t, uint64(7979), n)
}
