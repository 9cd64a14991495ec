package postgres

import (
	"fmt"
	"strings"

	"github.com/okian/buzz/internal/domain/candidates"
)

const sqlAndJoin = " AND "

// candidateWhere renders a candidates.Filter as a WHERE clause over the
// tweets table aliased as t. Placeholders start at $1.
func candidateWhere(f candidates.Filter) (string, []any) {
	args := []any{}
	where := []string{"t.deleted_at IS NULL"}

	args = append(args, f.CreatedAfter)
	where = append(where, fmt.Sprintf("t.created_at > $%d", len(args)))

	if f.ActiveAfter != nil {
		args = append(args, *f.ActiveAfter)
		n := len(args)
		where = append(where, fmt.Sprintf("(t.updated_at > $%d OR t.created_at > $%d)", n, n))
	}

	return strings.Join(where, sqlAndJoin), args
}

// countCandidatesSQL mirrors the page query without ordering or paging.
func countCandidatesSQL(f candidates.Filter) (string, []any) {
	where, args := candidateWhere(f)
	return "SELECT COUNT(*) FROM tweets t WHERE " + where, args
}

// pageCandidatesSQL selects one page ordered by most recently updated.
func pageCandidatesSQL(f candidates.Filter, skip, take int) (string, []any) {
	where, args := candidateWhere(f)
	args = append(args, take, skip)
	query := fmt.Sprintf(`
		SELECT t.id, t.likes_count, t.reposts_count, t.quotes_count, t.replies_count,
		       t.created_at, t.updated_at
		FROM tweets t
		WHERE %s
		ORDER BY t.updated_at DESC, t.id DESC
		LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args))
	return query, args
}
