// Package main hosts the tonight CLI entrypoint and command graph.
//
// The Cobra-based command tree opens the local meal catalog and decision
// ledger, then hands requests to the arbiter, the feedback service and the
// preflight checks. It centralizes configuration resolution, .env loading and
// logging setup so subcommands can focus on presentation.
//
// Keep this package lean: add new behavior to the internal packages first,
// then surface it through dedicated commands or flags here.
package main
