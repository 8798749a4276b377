package engine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestConfigURL checks the display name is substituted exactly once into the API template.
func TestConfigURL(t *testing.T) {
	t.Parallel()

	for _, e := range All() {
		got, err := e.ConfigURL()
		require.NoError(t, err)
		require.Equal(t, "https://api.github.com/repos/xerxes-at/"+e.String()+"ServerConfigs/zipball/master", got)
		require.Equal(t, 1, strings.Count(got, e.String()+"ServerConfigs"))
	}
}

// TestServerFilesURL covers the published bundles and the engine without one.
func TestServerFilesURL(t *testing.T) {
	t.Parallel()

	got, err := T6.ServerFilesURL()
	require.NoError(t, err)
	require.Equal(t, "https://drive.google.com/uc?export=download&id=1RCqhm_1oMEDSk-VoeQy_tWTE-9jZ6Exd&confirm=t", got)

	for _, e := range []Engine{T5, T4} {
		_, err = e.ServerFilesURL()
		require.NoError(t, err)
	}

	_, err = IW5.ServerFilesURL()
	require.ErrorIs(t, err, ErrNoServerFiles)

	_, err = Engine(0).ServerFilesURL()
	require.ErrorIs(t, err, ErrUnknownEngine)
}

// TestParse verifies case-insensitive parsing and rejection of unknown names.
func TestParse(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"t6", "T6", " t6 "} {
		e, err := Parse(s)
		require.NoError(t, err)
		require.Equal(t, T6, e)
	}

	e, err := Parse("iw5")
	require.NoError(t, err)
	require.Equal(t, IW5, e)

	_, err = Parse("iw4")
	require.ErrorIs(t, err, ErrUnknownEngine)
	require.Contains(t, err.Error(), "t6, t5, t4, iw5")

	require.False(t, Engine(0).Valid())
	require.Equal(t, "Engine(0)", Engine(0).String())
}
