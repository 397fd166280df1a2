package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveIPv4(t *testing.T) {
	ip, err := resolveIPv4("127.0.0.1")
	assert.NoError(t, err)
	assert.Equal(t, "127.0.0.1", ip)

	_, err = resolveIPv4("::1")
	assert.Error(t, err, "una IPv6 literal no se reescribe")
}

func TestDatabaseURLWithIPv4(t *testing.T) {
	assert.Equal(t, "postgres://u:p@127.0.0.1:5432/custody?sslmode=disable",
		databaseURLWithIPv4("postgres://u:p@127.0.0.1/custody?sslmode=disable"), "puerto por defecto")
	assert.Equal(t, "postgres://u:p@[::1]:6543/custody",
		databaseURLWithIPv4("postgres://u:p@[::1]:6543/custody"), "IPv6 queda intacta")
	assert.Equal(t, "%%no-es-url", databaseURLWithIPv4("%%no-es-url"))
}
