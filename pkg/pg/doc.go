// Package pg bootstraps the PostgreSQL layer: a pgx/v5 connection pool
// with startup retries, goose schema migrations, a health probe, and the
// error classification helpers the stores rely on.
//
// Config is populated from environment variables (DATABASE_URL plus pool
// tuning knobs). Connect retries with a growing backoff so the service
// survives a database that comes up later than it does. Migrate runs the
// goose migrations before the server accepts traffic, which keeps the
// uniqueness constraints the reconciler and the usage meter depend on in
// place from the first request.
package pg
