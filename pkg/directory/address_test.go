package directory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DeBrosOfficial/hdsview/pkg/errors"
)

func TestNormalizeAddress(t *testing.T) {
	tests := []struct {
		in      string
		base    string
		address string
	}{
		{"example.org", "https://example.org:27012/_hds", "example.org:27012"},
		{"example.org:27012", "https://example.org:27012/_hds", "example.org:27012"},
		{"  Example.ORG  ", "https://example.org:27012/_hds", "example.org:27012"},
		{"example.org:8443", "https://example.org:8443/_hds", "example.org:8443"},
		{"https://example.org", "https://example.org:27012/_hds", "example.org:27012"},
		{"http://localhost:9000", "http://localhost:9000/_hds", "localhost:9000"},
		{"HTTPS://example.org/", "https://example.org:27012/_hds", "example.org:27012"},
		{"[::1]", "https://[::1]:27012/_hds", "[::1]:27012"},
		{"[::1]:1234", "https://[::1]:1234/_hds", "[::1]:1234"},
		{"10.0.0.7", "https://10.0.0.7:27012/_hds", "10.0.0.7:27012"},
		{"::1", "https://[::1]:27012/_hds", "[::1]:27012"},
		{"http://::1/", "http://[::1]:27012/_hds", "[::1]:27012"},
		{"2001:DB8::7", "https://[2001:db8::7]:27012/_hds", "[2001:db8::7]:27012"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			target, err := NormalizeAddress(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.base, target.BaseURL())
			assert.Equal(t, tt.address, target.Address())
		})
	}
}

func TestNormalizeAddressDefaultPortEquivalence(t *testing.T) {
	a, err := NormalizeAddress("example.org")
	require.NoError(t, err)
	b, err := NormalizeAddress("example.org:27012")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestNormalizeAddressRejects(t *testing.T) {
	for _, in := range []string{"", "   ", "ftp://example.org", "example.org:0", "example.org:70000", "example.org:http", "https://", "https://[:]:1", "fe80::zz"} {
		t.Run(in, func(t *testing.T) {
			_, err := NormalizeAddress(in)
			require.Error(t, err)
			assert.True(t, errors.IsValidation(err), "got %v", err)
		})
	}
}
