package database

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/gym-server/internal/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.Config{DBUser: "gym", DBPass: "pw", DBHost: "db", DBPort: "3306", DBName: "gym"})
	assert.True(t, strings.HasPrefix(dsn, "gym:pw@tcp(db:3306)/gym?"), dsn)
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "charset=utf8mb4")

	noPass := DSN(config.Config{DBUser: "gym", DBHost: "db", DBPort: "3306", DBName: "gym"})
	assert.True(t, strings.HasPrefix(noPass, "gym@tcp(db:3306)/gym?"), noPass)
}
