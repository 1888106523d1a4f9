package extract

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeExt(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{".exe", ".exe"},
		{"exe", ".exe"},
		{".MSI", ".msi"},
		{" msi ", ".msi"},
		{"", ""},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, NormalizeExt(tt.in), "input %q", tt.in)
	}
}

func TestMetadataEmpty(t *testing.T) {
	var m *Metadata
	require.True(t, m.Empty())
	require.True(t, (&Metadata{}).Empty())
	require.False(t, (&Metadata{Version: "1.0"}).Empty())
}

func TestNewReaderAlwaysResolves(t *testing.T) {
	// The no-op fallback registers at priority zero, so some reader is
	// always available even on hosts with no native facilities.
	r, err := NewReader()
	require.NoError(t, err)
	require.NotNil(t, r)
}
