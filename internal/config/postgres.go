package config

import (
	"net"
	"net/url"
	"strconv"
	"time"
)

type Postgres struct {
	Host     string `env:"POSTGRES_HOST,required"`
	Port     int    `env:"POSTGRES_PORT" envDefault:"5432" validate:"min=1,max=65535"`
	User     string `env:"POSTGRES_USER,required"`
	Password string `env:"POSTGRES_PASSWORD,required"`
	DB       string `env:"POSTGRES_DB,required"`
	SSLMode  string `env:"POSTGRES_SSL_MODE" envDefault:"disable" validate:"oneof=disable allow prefer require verify-ca verify-full"`

	// ApplicationName shows up in pg_stat_activity.
	ApplicationName string `env:"POSTGRES_APPLICATION_NAME" envDefault:"evershine-catalog"`

	MaxConns          int32         `env:"POSTGRES_MAX_CONNS" envDefault:"10" validate:"gte=1"`
	MinConns          int32         `env:"POSTGRES_MIN_CONNS" envDefault:"2" validate:"gte=0,ltefield=MaxConns"`
	MaxConnLifetime   time.Duration `env:"POSTGRES_MAX_CONN_LIFETIME" envDefault:"1h"`
	MaxConnIdleTime   time.Duration `env:"POSTGRES_MAX_CONN_IDLE_TIME" envDefault:"30m"`
	HealthCheckPeriod time.Duration `env:"POSTGRES_HEALTH_CHECK_PERIOD" envDefault:"1m"`
}

// URL renders the libpq connection URL. The password is included.
func (p Postgres) URL() string {
	q := url.Values{}
	q.Set("sslmode", p.SSLMode)
	if p.ApplicationName != "" {
		q.Set("application_name", p.ApplicationName)
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.User, p.Password),
		Host:     net.JoinHostPort(p.Host, strconv.Itoa(p.Port)),
		Path:     p.DB,
		RawQuery: q.Encode(),
	}
	return u.String()
}
