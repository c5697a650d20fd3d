package handlers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFAQKeywordHit(t *testing.T) {
	chat := &fakeChatModel{err: errors.New("model must not be called")}
	h := NewFAQHandler(chat, "test-model")

	resp, err := h.Process(context.Background(), userTurn("How long does shipping take?"), &RequestContext{SessionID: "s"})
	require.NoError(t, err)

	assert.Contains(t, resp, "3-5 business days")
	assert.Zero(t, chat.calls)
}

func TestFAQFallsBackToModel(t *testing.T) {
	chat := &fakeChatModel{replies: []string{"We don't price match, sorry."}}
	h := NewFAQHandler(chat, "test-model")

	resp, err := h.Process(context.Background(), userTurn("Do you price match competitors?"), &RequestContext{SessionID: "s"})
	require.NoError(t, err)

	assert.Equal(t, "We don't price match, sorry.", resp)
	assert.Equal(t, 1, chat.calls)
}

func TestFAQModelErrorPropagates(t *testing.T) {
	chat := &fakeChatModel{err: errors.New("provider unavailable")}
	h := NewFAQHandler(chat, "test-model")

	_, err := h.Process(context.Background(), userTurn("Do you price match competitors?"), &RequestContext{SessionID: "s"})
	require.Error(t, err)
}
