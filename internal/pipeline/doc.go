// Package pipeline orchestrates a reorganizer run: discover source archives,
// group them into volumes, stage their pages, and repackage each volume (or
// everything combined) into a fresh archive. The staging session is released
// on every exit path, success or failure.
package pipeline
