package validator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateRegister(t *testing.T) {
	errs := ValidateRegister("maya@example.com", "maya", "Maya", "Sup3rSecret")
	assert.False(t, errs.HasErrors())

	errs = ValidateRegister("not-an-email", "m!", "M", "short")
	assert.Contains(t, errs, "email")
	assert.Contains(t, errs, "username")
	assert.Contains(t, errs, "display_name")
	assert.Contains(t, errs, "password")
}

func TestValidatePasswordRules(t *testing.T) {
	errs := ValidateRegister("maya@example.com", "maya", "Maya", "alllowercase1")
	assert.Contains(t, errs["password"], "one uppercase letter")

	errs = ValidateRegister("maya@example.com", "maya", "Maya", "NoDigitsHere")
	assert.Contains(t, errs["password"], "one number")
}

func TestValidateGroupChat(t *testing.T) {
	assert.False(t, ValidateGroupChat("Team").HasErrors())
	assert.True(t, ValidateGroupChat("").HasErrors())
	assert.True(t, ValidateGroupChat(" ").HasErrors())
	assert.True(t, ValidateGroupChat("x").HasErrors())
	assert.True(t, ValidateGroupChat(strings.Repeat("a", 101)).HasErrors())
}

func TestValidateMessage(t *testing.T) {
	assert.False(t, ValidateMessage("hello").HasErrors())
	assert.True(t, ValidateMessage("").HasErrors())
	assert.True(t, ValidateMessage("   ").HasErrors())
	assert.True(t, ValidateMessage(strings.Repeat("a", 4001)).HasErrors())
}
