// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tasklane Contributors

package config

import "github.com/spf13/pflag"

// RegisterLogFlags adds the logging flags shared by every command.
func RegisterLogFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("log-format", d.Log.Format, "log format (json, text)")
	fs.String("log-level", d.Log.Level, "log level (debug, info, warn, error)")
}

// RegisterDatabaseFlags adds the flags needed to reach PostgreSQL.
func RegisterDatabaseFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("database-url", d.Database.URL, "PostgreSQL connection URL")
	fs.Uint64("connect-retries", d.Database.ConnectRetries, "database connect retries at startup")
}

// RegisterServeFlags adds the flags of the serve command.
func RegisterServeFlags(fs *pflag.FlagSet) {
	d := Default()
	RegisterDatabaseFlags(fs)
	fs.String("addr", d.Server.Addr, "API listen address")
	fs.String("api-prefix", d.Server.APIPrefix, "path prefix of the API routes")
	fs.StringSlice("cors-origins", d.Server.CORSOrigins, "allowed CORS origins (glob patterns)")
	fs.Duration("read-header-timeout", d.Server.ReadHeaderTimeout, "HTTP read header timeout")
	fs.Duration("shutdown-timeout", d.Server.ShutdownTimeout, "graceful shutdown timeout")
	fs.Bool("auto-migrate", d.Database.AutoMigrate, "apply pending migrations before serving")
	fs.String("storage", d.Storage.Backend, "storage backend (postgres, memory)")
	fs.String("carrier", d.Auth.Carrier, "session carrier (cookie, header)")
	fs.Bool("cookie-secure", d.Auth.CookieSecure, "mark the session cookie Secure")
	fs.Duration("token-ttl", d.Auth.TokenTTL, "session token lifetime")
	fs.String("revocation", d.Auth.RevocationBackend, "revocation list backend (postgres, redis, memory)")
	fs.String("redis-url", d.Auth.RedisURL, "Redis URL for the redis revocation backend")
	fs.Duration("sweep-interval", d.Auth.RevocationSweepInterval, "interval between expired revocation purges")
	fs.String("metrics-addr", d.Metrics.Addr, "metrics and health listen address (empty disables)")
}
