package cloudinary

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New(Config{CloudName: "demo", APIKey: "key"}, zerolog.Nop())
	require.ErrorIs(t, err, ErrNotConfigured)

	require.True(t, Config{CloudName: "demo", APIKey: "key", APISecret: "secret"}.Configured())
}

func TestBuildPublicID(t *testing.T) {
	now := time.Unix(1767225600, 0)

	require.Equal(t, "week-1-notes-1767225600", buildPublicID("week-1-notes.pdf", now))
	require.Equal(t, "Lab_sheet--v2-1767225600", buildPublicID("Lab_sheet (v2).docx", now))
	require.Equal(t, "material-1767225600", buildPublicID("...pdf", now))
}
