package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// PG is the Postgres-backed Store. All identifiers interpolated into SQL
// come from Resource whitelists; values always travel as bind parameters.
type PG struct {
	DB *pgxpool.Pool
}

func NewPG(pool *pgxpool.Pool) *PG {
	return &PG{DB: pool}
}

func (s *PG) List(ctx context.Context, res Resource, p ListParams) (*ListResult, error) {
	logger := log.With().Str("table", res.Table).Logger()

	where, args := buildWhere(res, p)

	var total int
	countSQL := fmt.Sprintf(`SELECT COUNT(*) FROM %s%s`, res.Table, where)
	if err := s.DB.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		logger.Error().Err(err).Msg("count query failed")
		return nil, err
	}

	sortCol := res.SortColumns[0]
	for _, c := range res.SortColumns {
		if c == p.Sort {
			sortCol = c
			break
		}
	}
	dir := "DESC"
	if p.Order == "asc" {
		dir = "ASC"
	}

	listSQL := fmt.Sprintf(
		`SELECT %s FROM %s%s ORDER BY %s %s NULLS LAST LIMIT $%d OFFSET $%d`,
		strings.Join(res.ListColumns, ", "), res.Table, where,
		sortCol, dir, len(args)+1, len(args)+2,
	)
	rows, err := s.DB.Query(ctx, listSQL, append(args, p.Limit, p.Offset())...)
	if err != nil {
		logger.Error().Err(err).Msg("list query failed")
		return nil, err
	}
	items, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		logger.Error().Err(err).Msg("list scan failed")
		return nil, err
	}
	return &ListResult{Items: items, Total: total}, nil
}

func (s *PG) Get(ctx context.Context, res Resource, id string) (map[string]any, error) {
	sql := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		strings.Join(res.ListColumns, ", "), res.Table, res.IDColumn)
	rows, err := s.DB.Query(ctx, sql, id)
	if err != nil {
		return nil, err
	}
	row, err := pgx.CollectOneRow(rows, pgx.RowToMap)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return row, nil
}

func (s *PG) Create(ctx context.Context, res Resource, fields map[string]any) (string, error) {
	cols := make([]string, 0, len(fields))
	placeholders := make([]string, 0, len(fields))
	args := make([]any, 0, len(fields))
	i := 1
	for k, v := range fields {
		cols = append(cols, k)
		placeholders = append(placeholders, fmt.Sprintf("$%d", i))
		args = append(args, v)
		i++
	}
	sql := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s) RETURNING %s`,
		res.Table, strings.Join(cols, ", "), strings.Join(placeholders, ", "), res.IDColumn)

	var id string
	if err := s.DB.QueryRow(ctx, sql, args...).Scan(&id); err != nil {
		if col, ok := uniqueViolation(err, res); ok {
			return "", ErrDuplicate{Column: col}
		}
		log.Error().Err(err).Str("table", res.Table).Msg("insert failed")
		return "", err
	}
	return id, nil
}

func (s *PG) Update(ctx context.Context, res Resource, id string, fields map[string]any) error {
	sets := make([]string, 0, len(fields)+1)
	args := make([]any, 0, len(fields)+1)
	i := 1
	for k, v := range fields {
		sets = append(sets, fmt.Sprintf("%s = $%d", k, i))
		args = append(args, v)
		i++
	}
	sets = append(sets, "updated_at = NOW()")
	args = append(args, id)
	sql := fmt.Sprintf(`UPDATE %s SET %s WHERE %s = $%d`,
		res.Table, strings.Join(sets, ", "), res.IDColumn, i)

	tag, err := s.DB.Exec(ctx, sql, args...)
	if err != nil {
		if col, ok := uniqueViolation(err, res); ok {
			return ErrDuplicate{Column: col}
		}
		log.Error().Err(err).Str("table", res.Table).Msg("update failed")
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PG) Delete(ctx context.Context, res Resource, id string) error {
	sql := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, res.Table, res.IDColumn)
	tag, err := s.DB.Exec(ctx, sql, id)
	if err != nil {
		log.Error().Err(err).Str("table", res.Table).Msg("delete failed")
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PG) Stats(ctx context.Context, res Resource) (*Stats, error) {
	sql := fmt.Sprintf(`
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'active'),
			COUNT(*) FILTER (WHERE role IN ('admin', 'owner')),
			COUNT(*) FILTER (WHERE last_login > NOW() - INTERVAL '7 days')
		FROM %s`, res.Table)

	st := &Stats{}
	err := s.DB.QueryRow(ctx, sql).Scan(&st.Total, &st.Active, &st.Admins, &st.RecentLogins)
	if err != nil {
		log.Error().Err(err).Str("table", res.Table).Msg("stats query failed")
		return nil, err
	}
	return st, nil
}

func buildWhere(res Resource, p ListParams) (string, []any) {
	conds := make([]string, 0, 4)
	args := make([]any, 0, 4)

	if needle := strings.TrimSpace(p.Search); needle != "" {
		args = append(args, "%"+needle+"%")
		likes := make([]string, 0, len(res.SearchColumns))
		for _, col := range res.SearchColumns {
			likes = append(likes, fmt.Sprintf("%s ILIKE $%d", col, len(args)))
		}
		conds = append(conds, "("+strings.Join(likes, " OR ")+")")
	}
	for _, col := range res.FilterColumns {
		if v := p.Filters[col]; v != "" {
			args = append(args, v)
			conds = append(conds, fmt.Sprintf("%s = $%d", col, len(args)))
		}
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// uniqueViolation maps a 23505 to the violated unique column.
func uniqueViolation(err error, res Resource) (string, bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return "", false
	}
	for _, col := range res.UniqueColumns {
		if strings.Contains(pgErr.ConstraintName, col) {
			return col, true
		}
	}
	if len(res.UniqueColumns) > 0 {
		return res.UniqueColumns[0], true
	}
	return "", false
}
