// Package catalog holds the meal catalog and household pantry estimates the
// arbiter scores against.
//
// Meals, their ingredients, and inventory items are read-only inputs to the
// decision core; the Reader interface is the only surface it sees. The SQLite
// Store additionally supports the ingestion paths that live outside the core:
// importing meal and inventory files (TOML or YAML) and recording consumption
// when a cook decision is approved.
package catalog
