// Package schedules provides the PostgreSQL-backed schedule repository.
package schedules

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dmitrijs2005/workhub/internal/common"
	"github.com/dmitrijs2005/workhub/internal/dbx"
	"github.com/dmitrijs2005/workhub/internal/server/models"
	"github.com/google/uuid"
)

const selectSchedule = `
	SELECT s.id, s.user_id, s.title, s.description, s.start_at, s.end_at, s.all_day, s.color,
		s.location, s.organizer, s.attendees, s.external_event_id, s.is_from_remote, s.group_id,
		s.created_at, s.updated_at,
		COALESCE(string_agg(sl.label_id, ',' ORDER BY sl.label_id), '')
	FROM schedules s
	LEFT JOIN schedule_labels sl ON sl.schedule_id = s.id
`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, s *models.Schedule) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}

	query := `
		INSERT INTO schedules (id, user_id, title, description, start_at, end_at, all_day, color,
			location, organizer, attendees, external_event_id, is_from_remote, group_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		s.ID, s.UserID, s.Title, s.Description, s.StartAt, s.EndAt, s.AllDay, s.Color,
		s.Location, s.Organizer, s.Attendees, nullString(s.ExternalEventID), s.IsFromRemote, nullString(s.GroupID),
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return r.insertLabels(ctx, s.ID, s.LabelIDs)
}

func (r *PostgresRepository) Update(ctx context.Context, s *models.Schedule) error {
	query := `
		UPDATE schedules SET title=$2, description=$3, start_at=$4, end_at=$5, all_day=$6, color=$7,
			location=$8, organizer=$9, attendees=$10, group_id=$11, updated_at=now()
		WHERE id=$1
	`
	res, err := r.db.ExecContext(ctx, query,
		s.ID, s.Title, s.Description, s.StartAt, s.EndAt, s.AllDay, s.Color,
		s.Location, s.Organizer, s.Attendees, nullString(s.GroupID))
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res)
}

func (r *PostgresRepository) ReplaceLabels(ctx context.Context, scheduleID string, labelIDs []string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM schedule_labels WHERE schedule_id=$1`, scheduleID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return r.insertLabels(ctx, scheduleID, labelIDs)
}

func (r *PostgresRepository) insertLabels(ctx context.Context, scheduleID string, labelIDs []string) error {
	for _, labelID := range labelIDs {
		if _, err := r.db.ExecContext(ctx,
			`INSERT INTO schedule_labels (schedule_id, label_id) VALUES ($1, $2)`, scheduleID, labelID); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM schedules WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res)
}

func (r *PostgresRepository) FindByExternalID(ctx context.Context, userID, externalID string) (*models.Schedule, error) {
	row := r.db.QueryRowContext(ctx,
		selectSchedule+` WHERE s.user_id=$1 AND s.external_event_id=$2 GROUP BY s.id`, userID, externalID)
	s, err := scanSchedule(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}

func (r *PostgresRepository) ListRemoteExternalIDs(ctx context.Context, userID string) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT external_event_id, id FROM schedules WHERE user_id=$1 AND is_from_remote AND external_event_id IS NOT NULL`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select schedules: %w", err)
	}
	defer rows.Close()

	result := make(map[string]string)
	for rows.Next() {
		var externalID, id string
		if err := rows.Scan(&externalID, &id); err != nil {
			return nil, err
		}
		result[externalID] = id
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string, from, to time.Time) ([]*models.Schedule, error) {
	rows, err := r.db.QueryContext(ctx,
		selectSchedule+` WHERE s.user_id=$1 AND s.end_at >= $2 AND s.start_at < $3 GROUP BY s.id ORDER BY s.start_at`,
		userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to select schedules: %w", err)
	}
	defer rows.Close()

	var result []*models.Schedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSchedule(sc scanner) (*models.Schedule, error) {
	var (
		s          models.Schedule
		externalID sql.NullString
		groupID    sql.NullString
		labelIDs   string
	)
	err := sc.Scan(&s.ID, &s.UserID, &s.Title, &s.Description, &s.StartAt, &s.EndAt, &s.AllDay, &s.Color,
		&s.Location, &s.Organizer, &s.Attendees, &externalID, &s.IsFromRemote, &groupID,
		&s.CreatedAt, &s.UpdatedAt, &labelIDs)
	if err != nil {
		return nil, err
	}
	s.ExternalEventID = externalID.String
	s.GroupID = groupID.String
	s.StartAt = s.StartAt.UTC()
	s.EndAt = s.EndAt.UTC()
	if labelIDs != "" {
		s.LabelIDs = strings.Split(labelIDs, ",")
		sort.Strings(s.LabelIDs)
	}
	return &s, nil
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrorNotFound
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}
