package main

import "tonight/internal/ledger"

// exitCode maps an error's classification to a process exit status.
func exitCode(err error) int {
	switch ledger.Kind(err) {
	case "validation":
		return 2
	case "not_found":
		return 3
	case "conflict":
		return 4
	case "invariant", "append_only":
		return 70
	default:
		return 1
	}
}
