package ledger

import "context"

// ExecRaw runs a statement directly against the database, bypassing the
// store API.
func ExecRaw(s *SQLiteStore, query string, args ...any) error {
	_, err := s.db.ExecContext(context.Background(), query, args...)
	if err != nil {
		return classifyWriteError("raw exec", err)
	}
	return nil
}
