package config

import "os"

type Config struct {
	Server   ServerConfig
	Auth     AuthConfig
	Otp      OtpConfig
	Oidc     OidcConfig
	Postgres PostgresConfig
}

type ServerConfig struct {
	Port           string
	AllowedOrigins string
}

type AuthConfig struct {
	AccessSecret   string
	RefreshSecret  string
	AccessTTL      string
	RefreshTTL     string
	CookieDomain   string
	CookiePath     string
	CookieSecure   string
	CookieSameSite string
}

type OtpConfig struct {
	HashSecret string
	TTL        string
}

type OidcConfig struct {
	IssuerURL    string
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

type PostgresConfig struct {
	DatabaseURL string
	Host        string
	Port        string
	User        string
	Password    string
	Database    string
	SSLMode     string
}

func Load() Config {
	return Config{
		Server: ServerConfig{
			Port:           getenv("PORT", "8080"),
			AllowedOrigins: os.Getenv("ALLOWED_ORIGINS"),
		},
		Auth: AuthConfig{
			AccessSecret:   os.Getenv("ACCESS_TOKEN_SECRET"),
			RefreshSecret:  os.Getenv("REFRESH_TOKEN_SECRET"),
			AccessTTL:      getenv("ACCESS_TOKEN_TTL", "24h"),
			RefreshTTL:     getenv("REFRESH_TOKEN_TTL", "8760h"),
			CookieDomain:   os.Getenv("AUTH_COOKIE_DOMAIN"),
			CookiePath:     getenv("AUTH_COOKIE_PATH", "/"),
			CookieSecure:   os.Getenv("AUTH_COOKIE_SECURE"),
			CookieSameSite: os.Getenv("AUTH_COOKIE_SAMESITE"),
		},
		Otp: OtpConfig{
			HashSecret: os.Getenv("OTP_HASH_SECRET"),
			TTL:        getenv("OTP_TTL", "10m"),
		},
		Oidc: OidcConfig{
			IssuerURL:    os.Getenv("OIDC_ISSUER_URL"),
			ClientID:     os.Getenv("OIDC_CLIENT_ID"),
			ClientSecret: os.Getenv("OIDC_CLIENT_SECRET"),
			RedirectURL:  os.Getenv("OIDC_REDIRECT_URL"),
		},
		Postgres: PostgresConfig{
			DatabaseURL: os.Getenv("DATABASE_URL"),
			Host:        getenv("PGHOST", "localhost"),
			Port:        getenv("PGPORT", "5432"),
			User:        os.Getenv("PGUSER"),
			Password:    os.Getenv("PGPASSWORD"),
			Database:    os.Getenv("PGDATABASE"),
			SSLMode:     getenv("PGSSLMODE", "disable"),
		},
	}
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
