package services

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewConversationID(t *testing.T) {
	id := NewConversationID(42)

	assert.Regexp(t, regexp.MustCompile(`^chat_42_\d+$`), id)
	assert.NotEqual(t, id, NewConversationID(7))
}
