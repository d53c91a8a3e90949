package pusher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestParseDestination(t *testing.T) {
	testCases := []struct {
		name     string
		dest     string
		wantUser string
		wantHost string
		wantPort string
		wantErr  bool
	}{
		{"user and host", "deploy@example.com", "deploy", "example.com", "22", false},
		{"user host and port", "deploy@example.com:2222", "deploy", "example.com", "2222", false},
		{"ip host", "deploy@203.0.113.5", "deploy", "203.0.113.5", "22", false},
		{"empty", "", "", "", "", true},
		{"empty user", "@example.com", "", "", "", true},
		{"empty host", "deploy@", "", "", "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			user, host, port, err := ParseDestination(tc.dest)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantUser, user)
			assert.Equal(t, tc.wantHost, host)
			assert.Equal(t, tc.wantPort, port)
		})
	}
}

func TestParseDestinationHostOnly(t *testing.T) {
	t.Setenv("USER", "deploy")

	user, host, port, err := ParseDestination("example.com")
	require.NoError(t, err)
	assert.Equal(t, "deploy", user)
	assert.Equal(t, "example.com", host)
	assert.Equal(t, "22", port)
}

func TestNewPusherRejectsBadDestination(t *testing.T) {
	_, err := NewPusher(Config{Destination: "@"}, zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestNewPusherAcceptsInsecureHostKey(t *testing.T) {
	p, err := NewPusher(Config{
		Destination:     "deploy@example.com",
		RemotePath:      "/var/www/html/myip.txt",
		InsecureHostKey: true,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	callback, err := p.hostKeyCallback()
	require.NoError(t, err)
	assert.NotNil(t, callback)
}
