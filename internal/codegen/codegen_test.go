package codegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrResultCarriesFormattedMessageAndFails(t *testing.T) {
	res := ErrResult("backend %s: %d errors", "textir", 3)
	assert.False(t, res.Success)
	assert.Equal(t, "backend textir: 3 errors", res.ErrorMessage)
	assert.Empty(t, res.IRText)
}

func TestCapabilitiesZeroValueDeniesEverything(t *testing.T) {
	var c Capabilities
	assert.False(t, c.SupportsMIR)
	assert.False(t, c.SupportsAST)
	assert.False(t, c.SupportsCGU)
}
