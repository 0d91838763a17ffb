// Package staging manages the run-scoped working area where source archives
// are extracted before repackaging. A Session owns a uuid-named directory
// under the configured staging root and a file lock that serializes runs; the
// tree is removed on Release regardless of how the run ended.
package staging
