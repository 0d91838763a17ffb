// Package catalog persists run history in SQLite: one row per run plus one
// row per produced archive. The catalog is informational; pipeline runs treat
// it as best-effort and never fail because of it.
//
// Schema changes bump schemaVersion; users delete the catalog file to adopt
// the new schema.
package catalog
