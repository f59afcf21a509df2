package app

import (
	"strings"

	"github.com/charlesng35/storefront/internal/database"
)

// DatabaseSettings converts DatabaseConfig into database.Config, selecting the
// host based block that matches the driver.
func (c DatabaseConfig) DatabaseSettings() database.Config {
	driver := strings.ToLower(strings.TrimSpace(c.Driver))
	out := database.Config{
		Driver:          driver,
		Path:            c.Path,
		DSN:             c.DSN,
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
	}

	var auth DBAuthConfig
	switch driver {
	case "postgres", "postgresql":
		auth = c.Postgres
	case "mysql", "mariadb":
		auth = c.MySQL
	default:
		return out
	}

	out.Host = auth.Host
	out.Port = auth.Port
	out.Name = auth.Database
	out.User = auth.Username
	out.Password = auth.Password
	out.Options = auth.Options
	return out
}
