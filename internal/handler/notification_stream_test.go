package handler

import (
	"bufio"
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mgsa-portal-api/internal/dto"
)

func TestWriteNotificationEventFrame(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)

	err := writeNotificationEvent(w, dto.NotificationResponse{
		ID:        7,
		UserID:    3,
		Type:      "tutorial_registration",
		Message:   "A student registered",
		CreatedAt: time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	frame := buf.String()
	require.True(t, strings.HasPrefix(frame, "id: 7\nevent: notification\ndata: {"))
	require.True(t, strings.HasSuffix(frame, "}\n\n"))
	require.Contains(t, frame, `"message":"A student registered"`)
}

func TestWriteKeepAliveIsComment(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeKeepAlive(bufio.NewWriter(&buf)))
	require.True(t, strings.HasPrefix(buf.String(), ": keep-alive "))
	require.True(t, strings.HasSuffix(buf.String(), "\n\n"))
}
