// Package mite resolves which database backend a schema migration tool
// should use and builds a Migrator bound to it.
//
// The backend is chosen at deployment time from a small JSON payload,
// normally a mite.config file in the migrations directory:
//
//	{ "repositoryName": "postgres", "connectionString": "postgres://..." }
//
// Basic usage is a single call to mite.BootstrapDirectory(ctx, dir). The
// repositoryName is matched case-insensitively against the short names of
// every backend known to the Registry (built-ins plus any Go plugin modules
// sitting next to the executable). When nothing matches, it is tried as a
// fully-qualified name instead.
//
// Third-party backends register themselves from init() with mite.Register,
// or ship as a Go plugin exporting MiteRegister(*mite.Registry).
package mite
