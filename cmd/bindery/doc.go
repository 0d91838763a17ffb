// Package main hosts the bindery CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into pipeline
// runs, dry-run plans, run-history queries, staging maintenance, and
// configuration scaffolding. It centralizes configuration resolution, logger
// construction, and catalog access so subcommands can focus on user
// experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
