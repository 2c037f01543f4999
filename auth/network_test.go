package auth

import (
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go4.org/netipx"

	"go.hackfix.me/strata/view"
)

func TestParseIPSet(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   []string
		expErr  string
		checkFn func(t *testing.T, ipSet *netipx.IPSet)
	}{
		{
			name:  "ok/single_plain_ipv4",
			input: []string{"192.168.1.1"},
			checkFn: func(t *testing.T, ipSet *netipx.IPSet) {
				assert.True(t, ipSet.Contains(netip.MustParseAddr("192.168.1.1")))
				assert.False(t, ipSet.Contains(netip.MustParseAddr("192.168.1.2")))
			},
		},
		{
			name:  "ok/single_cidr_ipv6",
			input: []string{"2001:db8::/32"},
			checkFn: func(t *testing.T, ipSet *netipx.IPSet) {
				assert.True(t, ipSet.Contains(netip.MustParseAddr("2001:db8::")))
				assert.True(t, ipSet.Contains(netip.MustParseAddr("2001:db8:ffff:ffff::")))
				assert.False(t, ipSet.Contains(netip.MustParseAddr("2001:db9::")))
			},
		},
		{
			name:  "ok/single_range_ipv4",
			input: []string{"192.168.1.1-192.168.1.10"},
			checkFn: func(t *testing.T, ipSet *netipx.IPSet) {
				assert.True(t, ipSet.Contains(netip.MustParseAddr("192.168.1.5")))
				assert.False(t, ipSet.Contains(netip.MustParseAddr("192.168.1.11")))
			},
		},
		{
			name:  "ok/multiple_mixed",
			input: []string{"192.168.1.1", "10.0.0.0/8", "172.16.1.1-172.16.1.100"},
			checkFn: func(t *testing.T, ipSet *netipx.IPSet) {
				assert.True(t, ipSet.Contains(netip.MustParseAddr("192.168.1.1")))
				assert.True(t, ipSet.Contains(netip.MustParseAddr("10.5.5.5")))
				assert.True(t, ipSet.Contains(netip.MustParseAddr("172.16.1.50")))
				assert.False(t, ipSet.Contains(netip.MustParseAddr("8.8.8.8")))
			},
		},
		{
			name:  "ok/empty_input",
			input: []string{},
			checkFn: func(t *testing.T, ipSet *netipx.IPSet) {
				assert.Empty(t, ipSet.Ranges())
			},
		},
		{
			name:   "err/invalid_ip_address",
			input:  []string{"not.an.ip"},
			expErr: "failed parsing IP address",
		},
		{
			name:   "err/invalid_range",
			input:  []string{"192.168.1.10-192.168.1.1"},
			expErr: "failed parsing IP address",
		},
		{
			name:   "err/mixed_valid_invalid",
			input:  []string{"192.168.1.1", "invalid"},
			expErr: "failed parsing IP address",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result, err := ParseIPSet(tt.input...)

			if tt.expErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expErr)
				assert.Nil(t, result)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, result)
			if tt.checkFn != nil {
				tt.checkFn(t, result)
			}
		})
	}
}

func TestFromNetworks(t *testing.T) {
	t.Parallel()

	set, err := ParseIPSet("10.0.0.0/8", "::1")
	require.NoError(t, err)
	rule := FromNetworks(set)

	tests := []struct {
		name       string
		remoteAddr string
		expOK      bool
	}{
		{name: "ok/ipv4_in_range", remoteAddr: "10.1.2.3:4567", expOK: true},
		{name: "ok/ipv4_mapped", remoteAddr: "[::ffff:10.1.2.3]:4567", expOK: true},
		{name: "ok/ipv6_loopback", remoteAddr: "[::1]:80", expOK: true},
		{name: "ok/no_port", remoteAddr: "10.0.0.1", expOK: true},
		{name: "err/out_of_range", remoteAddr: "192.168.1.1:80", expOK: false},
		{name: "err/invalid", remoteAddr: "@", expOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			assert.Equal(t, tt.expOK, rule(view.NewContext(req, nil)))
		})
	}
}
