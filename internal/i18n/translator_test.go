package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTranslator(t *testing.T) {
	translator, err := NewTranslator("en")
	require.NoError(t, err)
	assert.Contains(t, translator.Languages(), "en")
	assert.Contains(t, translator.Languages(), "de")
}

func TestNewTranslator_UnknownDefault(t *testing.T) {
	_, err := NewTranslator("fr")
	assert.Error(t, err)
}

func TestTranslate(t *testing.T) {
	translator, err := NewTranslator("en")
	require.NoError(t, err)

	english := translator.Translate("en", "register.error.email-exists")
	german := translator.Translate("de", "register.error.email-exists")
	assert.NotEmpty(t, english)
	assert.NotEmpty(t, german)
	assert.NotEqual(t, english, german)

	// Unknown language falls back to the default language.
	assert.Equal(t, english, translator.Translate("nl", "register.error.email-exists"))

	// Unknown key falls back to the key itself.
	assert.Equal(t, "no.such.key", translator.Translate("en", "no.such.key"))
}
