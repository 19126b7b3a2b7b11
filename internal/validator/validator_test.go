package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate_PasswordStrength(t *testing.T) {
	type form struct {
		Password string `validate:"required,password_strength"`
	}

	tests := []struct {
		name     string
		password string
		valid    bool
	}{
		{name: "all character classes", password: "Sup3r!Secret", valid: true},
		{name: "too short", password: "Ab1!", valid: false},
		{name: "no uppercase", password: "sup3r!secret", valid: false},
		{name: "no lowercase", password: "SUP3R!SECRET", valid: false},
		{name: "no digit", password: "Super!Secret", valid: false},
		{name: "no special character", password: "Sup3rSecret", valid: false},
		{name: "empty", password: "", valid: false},
	}

	v := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(form{Password: tt.password})
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_StandardTags(t *testing.T) {
	type form struct {
		Email       string `validate:"required,email"`
		DateOfBirth string `validate:"required,datetime=2006-01-02"`
	}

	assert.NoError(t, New().Validate(form{Email: "user@example.com", DateOfBirth: "1999-04-12"}))
	assert.Error(t, New().Validate(form{Email: "not-an-address", DateOfBirth: "1999-04-12"}))
	assert.Error(t, New().Validate(form{Email: "user@example.com", DateOfBirth: "12.04.1999"}))
}
