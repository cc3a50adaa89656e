package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidIMEI(t *testing.T) {
	assert.True(t, validIMEI("356938035643809"))
	assert.False(t, validIMEI("35693803564380"))   // 14 digits
	assert.False(t, validIMEI("3569380356438090")) // 16 digits
	assert.False(t, validIMEI("35693803564380a"))
	assert.False(t, validIMEI(""))
}
