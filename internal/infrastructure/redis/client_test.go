package redis

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	tests := []struct {
		name    string
		url     func(s *miniredis.Miniredis) string
		wantErr string
	}{
		{
			name: "reachable server",
			url:  func(s *miniredis.Miniredis) string { return "redis://" + s.Addr() + "/2" },
		},
		{
			name:    "invalid url",
			url:     func(*miniredis.Miniredis) string { return "://bad-url" },
			wantErr: "failed to parse redis URL",
		},
		{
			name: "server down",
			url: func(s *miniredis.Miniredis) string {
				addr := s.Addr()
				s.Close()
				return "redis://" + addr
			},
			wantErr: "failed to ping redis",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := miniredis.RunT(t)

			client, err := NewClient(context.Background(), tt.url(s))
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			defer client.Close()

			require.Equal(t, 2, client.Options().DB)
		})
	}
}

func TestPingAfterServerStops(t *testing.T) {
	s := miniredis.RunT(t)

	client, err := NewClient(context.Background(), "redis://"+s.Addr())
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, Ping(context.Background(), client))

	s.Close()
	require.Error(t, Ping(context.Background(), client))
}
