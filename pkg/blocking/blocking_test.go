package blocking

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAnyRunningEmptyList(t *testing.T) {
	name, running := AnyRunning(nil)
	require.False(t, running)
	require.Empty(t, name)
}

func TestIsAppRunningAbsentProcess(t *testing.T) {
	require.False(t, IsAppRunning("no-such-process-a8f3b1.exe"))
	require.False(t, IsAppRunning("no-such-process-a8f3b1"))
}
