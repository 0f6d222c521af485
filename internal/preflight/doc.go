// Package preflight provides readiness checks for the directories and stores
// tonight depends on.
//
// The CLI "tonight doctor" command runs RunAll and prints one line per
// check. Individual checks (CheckDirectoryAccess, CheckLedger, CheckCatalog)
// are usable on their own.
package preflight
