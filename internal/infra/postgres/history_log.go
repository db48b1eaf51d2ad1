package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"arithmetic-practice-service/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

// HistoryLog stores finished sessions as JSONB rows in practice_history.
// Rows are returned in insertion order (seq).
type HistoryLog struct {
	pool *pgxpool.Pool
}

func NewHistoryLog(pool *pgxpool.Pool) *HistoryLog {
	return &HistoryLog{pool: pool}
}

func (h *HistoryLog) Append(ctx context.Context, record domain.HistoryRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal history record: %w", err)
	}
	_, err = h.pool.Exec(ctx,
		`INSERT INTO practice_history (session_id, grade, recorded_at, data) VALUES ($1, $2, $3, $4)`,
		record.ID, record.Grade, record.Date, data)
	if err != nil {
		return fmt.Errorf("insert history record: %w", err)
	}
	return nil
}

func (h *HistoryLog) List(ctx context.Context, filter domain.HistoryFilter) ([]domain.HistoryRecord, error) {
	query, args := historyQuery(filter)
	rows, err := h.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	out := []domain.HistoryRecord{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		var rec domain.HistoryRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("unmarshal history: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	return out, nil
}

func historyQuery(filter domain.HistoryFilter) (string, []interface{}) {
	var (
		where []string
		args  []interface{}
	)
	if filter.Grade != 0 {
		args = append(args, filter.Grade)
		where = append(where, fmt.Sprintf("grade = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		where = append(where, fmt.Sprintf("recorded_at >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		where = append(where, fmt.Sprintf("recorded_at <= $%d", len(args)))
	}

	query := `SELECT data FROM practice_history`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	return query + ` ORDER BY seq`, args
}
