package session_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shadowlend/shadowlend/internal/session"
	lenderr "github.com/shadowlend/shadowlend/pkg/errors"
)

func TestNew_SelectsVariant(t *testing.T) {
	t.Parallel()

	web, err := session.New(session.PlatformWeb, session.Deps{NoEagerConnect: true})
	require.NoError(t, err)
	assert.IsType(t, &session.ExtensionSession{}, web)

	for _, p := range []session.Platform{session.PlatformAndroid, session.PlatformIOS} {
		s, err := session.New(p, session.Deps{NoEagerConnect: true})
		require.NoError(t, err)
		assert.IsType(t, &session.AdapterSession{}, s)
	}

	_, err = session.New("desktop", session.Deps{})
	require.ErrorIs(t, err, lenderr.ErrUnknownPlatform)
}

func TestParsePlatform(t *testing.T) {
	t.Parallel()

	p, err := session.ParsePlatform(" Android ")
	require.NoError(t, err)
	assert.Equal(t, session.PlatformAndroid, p)

	_, err = session.ParsePlatform("symbian")
	require.ErrorIs(t, err, lenderr.ErrUnknownPlatform)
}

func TestSnapshot_Connected(t *testing.T) {
	t.Parallel()

	assert.False(t, session.Snapshot{Status: session.StatusConnected}.Connected(), "connected needs an account")
	assert.False(t, session.Snapshot{Account: &keyK1, Status: session.StatusConnecting}.Connected())
	assert.True(t, session.Snapshot{Account: &keyK1, Status: session.StatusConnected}.Connected())
}
