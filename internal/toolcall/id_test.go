package toolcall

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateIDFormats(t *testing.T) {
	chatPattern := regexp.MustCompile(`^call_[A-Za-z0-9]{22}$`)
	responsePattern := regexp.MustCompile(`^fc_[0-9a-f]{48}$`)

	for i := 0; i < 100; i++ {
		id, err := GenerateID(IDModeChatCompletion)
		require.NoError(t, err)
		assert.Regexp(t, chatPattern, id)

		id, err = GenerateID(IDModeResponse)
		require.NoError(t, err)
		assert.Regexp(t, responsePattern, id)
	}
}

func TestGenerateIDUniqueness(t *testing.T) {
	seen := make(map[string]bool, 10000)
	for i := 0; i < 10000; i++ {
		id, err := GenerateID(IDModeChatCompletion)
		require.NoError(t, err)
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestGenerateIDUnknownMode(t *testing.T) {
	_, err := GenerateID(IDMode("bogus"))
	assert.ErrorIs(t, err, ErrInvalidArgument)
}
