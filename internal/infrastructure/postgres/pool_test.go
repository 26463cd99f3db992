package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedResolver(hosts map[string]string) ipv4Resolver {
	return func(_ context.Context, host string) (string, error) {
		if ip, ok := hosts[host]; ok {
			return ip, nil
		}
		return "", errNoIPv4
	}
}

func TestWithIPv4Host(t *testing.T) {
	resolve := fixedResolver(map[string]string{"db.interno": "10.0.0.7"})
	ctx := context.Background()

	casos := []struct {
		nombre string
		dsn    string
		want   string
	}{
		{"con puerto", "postgres://spm:x@db.interno:6432/spm?sslmode=disable", "postgres://spm:x@10.0.0.7:6432/spm?sslmode=disable"},
		{"puerto por defecto", "postgres://spm:x@db.interno/spm", "postgres://spm:x@10.0.0.7:5432/spm"},
		{"sin IPv4", "postgres://spm:x@otro/spm", "postgres://spm:x@otro/spm"},
		{"no es URL", "host=db.interno user=spm", "host=db.interno user=spm"},
	}
	for _, c := range casos {
		t.Run(c.nombre, func(t *testing.T) {
			assert.Equal(t, c.want, withIPv4Host(ctx, c.dsn, resolve))
		})
	}
}

func TestLookupIPv4_Literales(t *testing.T) {
	ip, err := lookupIPv4(context.Background(), "127.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", ip)

	_, err = lookupIPv4(context.Background(), "::1")
	assert.ErrorIs(t, err, errNoIPv4)
}
