package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildConnString(t *testing.T) {
	t.Setenv("PG_SSLMODE", "")
	cfg := DBConfig{Host: "db", Port: 5432, User: "voice", Password: "pw", Database: "rooms"}

	assert.Equal(t, "postgres://voice:pw@db:5432/rooms?connect_timeout=5&sslmode=disable", buildConnString(cfg))

	cfg.SSLMode = "require"
	assert.Equal(t, "postgres://voice:pw@db:5432/rooms?connect_timeout=5&sslmode=require", buildConnString(cfg))
}
