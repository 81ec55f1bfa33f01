package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Console sessions are stateless JWT cookies, so logging out cannot delete
// anything on the client. Instead the token's ID is recorded here and the
// cookie middleware rejects any session whose ID is listed. A row must live
// as long as the token it blocks: until expiresAt a copied cookie would
// otherwise still verify. After that the signature check alone rejects it
// and the row can be pruned.

// RevokeSession blocks the console session with token ID jti until
// expiresAt, the token's own expiry. Revoking twice is a no-op. Rows whose
// token has already expired are pruned on the way out.
func RevokeSession(ctx context.Context, db *sql.DB, jti string, expiresAt time.Time) error {
	_, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO revoked_tokens (jti, expires_at) VALUES (?, ?)`,
		jti, dbTime(expiresAt),
	)
	if err != nil {
		return fmt.Errorf("revoking session: %w", err)
	}

	// Pruning failures leave stale rows, never a usable session.
	_, _ = PruneRevokedSessions(ctx, db, time.Now())

	return nil
}

// PruneRevokedSessions drops revocations whose token expired before now.
func PruneRevokedSessions(ctx context.Context, db *sql.DB, now time.Time) (int64, error) {
	result, err := db.ExecContext(ctx,
		`DELETE FROM revoked_tokens WHERE expires_at < ?`, dbTime(now),
	)
	if err != nil {
		return 0, fmt.Errorf("pruning revoked sessions: %w", err)
	}
	return result.RowsAffected()
}

// IsSessionRevoked reports whether the console session with token ID jti
// was logged out. It is checked on every authenticated console request.
func IsSessionRevoked(ctx context.Context, db *sql.DB, jti string) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM revoked_tokens WHERE jti = ?`, jti,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking session revocation: %w", err)
	}
	return count > 0, nil
}
