package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	insertPollEventSQL = `INSERT INTO poll_events (
        resource,
        degraded,
        error,
        duration_ms,
        observed_at
    ) VALUES (
        $1,$2,$3,$4,$5
    );`

	listPollEventsBetweenSQL = `SELECT
        id,
        resource,
        degraded,
        error,
        duration_ms,
        observed_at,
        created_at
    FROM poll_events
    WHERE observed_at >= $1
      AND observed_at < $2
      AND ($3::text = '' OR resource = $3::text)
    ORDER BY observed_at;`

	listRecentPollEventsSQL = `SELECT
        id,
        resource,
        degraded,
        error,
        duration_ms,
        observed_at,
        created_at
    FROM poll_events
    ORDER BY observed_at DESC
    LIMIT $1;`

	availabilitySQL = `SELECT
        resource,
        COUNT(*),
        COUNT(*) FILTER (WHERE degraded),
        COALESCE(AVG(duration_ms), 0)::float8,
        MAX(observed_at)
    FROM poll_events
    WHERE observed_at >= $1
    GROUP BY resource
    ORDER BY resource;`

	deletePollEventsBeforeSQL = `DELETE FROM poll_events WHERE observed_at < $1;`

	insertNotificationSQL = `INSERT INTO notifications (
        level,
        title,
        message,
        resource,
        created_at
    ) VALUES (
        $1,$2,$3,$4,$5
    )
    RETURNING id, level, title, message, resource, created_at;`

	listRecentNotificationsSQL = `SELECT
        id,
        level,
        title,
        message,
        resource,
        created_at
    FROM notifications
    ORDER BY created_at DESC
    LIMIT $1;`

	deleteNotificationsBeforeSQL = `DELETE FROM notifications WHERE created_at < $1;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// PollEventStore persists applied fetch outcomes.
type PollEventStore interface {
	InsertPollEvent(ctx context.Context, event PollEvent) error
	ListPollEventsBetween(ctx context.Context, resource string, from, to time.Time) ([]PollEvent, error)
	ListRecentPollEvents(ctx context.Context, limit int) ([]PollEvent, error)
	Availability(ctx context.Context, since time.Time) ([]Availability, error)
	DeletePollEventsBefore(ctx context.Context, olderThan time.Time) error
}

// NotificationStore keeps an audit trail of delivered notifications.
type NotificationStore interface {
	InsertNotification(ctx context.Context, rec NotificationRecord) (NotificationRecord, error)
	ListRecentNotifications(ctx context.Context, limit int) ([]NotificationRecord, error)
	DeleteNotificationsBefore(ctx context.Context, olderThan time.Time) error
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store aggregates access to the poll journal.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		// Releasing the connection ends the session, which drops the lock anyway.
		_, _ = conn.Exec(ctxUnlock, advisoryUnlockSQL, key)
		conn.Release()
	}
	return unlock, true, nil
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// InsertPollEvent appends one fetch outcome.
func (s *Store) InsertPollEvent(ctx context.Context, event PollEvent) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	var errMsg any
	if event.Error != nil {
		errMsg = *event.Error
	}

	if _, execErr := pool.Exec(ctx, insertPollEventSQL,
		event.Resource,
		event.Degraded,
		errMsg,
		event.DurationMS,
		event.ObservedAt,
	); execErr != nil {
		return fmt.Errorf("insert poll event: %w", execErr)
	}
	return nil
}

// ListPollEventsBetween lists events observed in [from, to). An empty resource
// matches every resource.
func (s *Store) ListPollEventsBetween(ctx context.Context, resource string, from, to time.Time) ([]PollEvent, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listPollEventsBetweenSQL, from, to, resource)
	if queryErr != nil {
		return nil, fmt.Errorf("list poll events between: %w", queryErr)
	}
	defer rows.Close()

	events := make([]PollEvent, 0)
	for rows.Next() {
		event, scanErr := scanPollEvent(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		events = append(events, event)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return events, nil
}

// ListRecentPollEvents lists the newest events first.
func (s *Store) ListRecentPollEvents(ctx context.Context, limit int) ([]PollEvent, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentPollEventsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent poll events: %w", queryErr)
	}
	defer rows.Close()

	events := make([]PollEvent, 0, limit)
	for rows.Next() {
		event, scanErr := scanPollEvent(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		events = append(events, event)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return events, nil
}

// Availability summarises poll outcomes per resource since the given time.
func (s *Store) Availability(ctx context.Context, since time.Time) ([]Availability, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, availabilitySQL, since)
	if queryErr != nil {
		return nil, fmt.Errorf("availability: %w", queryErr)
	}
	defer rows.Close()

	out := make([]Availability, 0)
	for rows.Next() {
		var a Availability
		if err := rows.Scan(&a.Resource, &a.Polls, &a.DegradedPolls, &a.AvgDurationMS, &a.LastPolledAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// DeletePollEventsBefore prunes old journal rows.
func (s *Store) DeletePollEventsBefore(ctx context.Context, olderThan time.Time) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, deletePollEventsBeforeSQL, olderThan); execErr != nil {
		return fmt.Errorf("delete poll events before: %w", execErr)
	}
	return nil
}

// InsertNotification persists a delivered notification.
func (s *Store) InsertNotification(ctx context.Context, rec NotificationRecord) (NotificationRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return NotificationRecord{}, err
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	row := pool.QueryRow(ctx, insertNotificationSQL,
		rec.Level,
		rec.Title,
		rec.Message,
		rec.Resource,
		rec.CreatedAt,
	)

	var out NotificationRecord
	if scanErr := row.Scan(
		&out.ID,
		&out.Level,
		&out.Title,
		&out.Message,
		&out.Resource,
		&out.CreatedAt,
	); scanErr != nil {
		return NotificationRecord{}, fmt.Errorf("insert notification: %w", scanErr)
	}
	return out, nil
}

// ListRecentNotifications lists the newest notifications first.
func (s *Store) ListRecentNotifications(ctx context.Context, limit int) ([]NotificationRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentNotificationsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent notifications: %w", queryErr)
	}
	defer rows.Close()

	records := make([]NotificationRecord, 0, limit)
	for rows.Next() {
		var rec NotificationRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.Level,
			&rec.Title,
			&rec.Message,
			&rec.Resource,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}

// DeleteNotificationsBefore prunes old notification rows.
func (s *Store) DeleteNotificationsBefore(ctx context.Context, olderThan time.Time) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, deleteNotificationsBeforeSQL, olderThan); execErr != nil {
		return fmt.Errorf("delete notifications before: %w", execErr)
	}
	return nil
}

func scanPollEvent(rows pgx.Rows) (PollEvent, error) {
	var (
		event  PollEvent
		errMsg sql.NullString
	)
	if err := rows.Scan(
		&event.ID,
		&event.Resource,
		&event.Degraded,
		&errMsg,
		&event.DurationMS,
		&event.ObservedAt,
		&event.CreatedAt,
	); err != nil {
		return PollEvent{}, err
	}
	if errMsg.Valid {
		msg := errMsg.String
		event.Error = &msg
	}
	return event, nil
}
