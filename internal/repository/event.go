package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"event-service/internal/domain"

	"github.com/lib/pq"
	log "github.com/sirupsen/logrus"
)

type postgresEventRepository struct {
	db *sql.DB
}

func NewPostgresEventRepository(db *sql.DB) *postgresEventRepository {
	return &postgresEventRepository{db: db}
}

func (r *postgresEventRepository) Create(ctx context.Context, event *domain.Event) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	log.WithFields(log.Fields{
		"event_id":   event.ID,
		"title":      event.Title,
		"event_type": event.EventType,
	}).Info("Creating new event in database")

	query := `
		INSERT INTO events (
			id, title, event_type, description, status,
			sectors, bucket_list, created, modified
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(ctx, query,
		event.ID,
		event.Title,
		event.EventType,
		event.Description,
		event.Status,
		pq.Array(event.Sectors),
		pq.Array(event.BucketList),
		event.Created,
		event.Modified,
	)

	if err != nil {
		log.WithError(err).WithField("event_id", event.ID).Error("Failed to create event")
		return fmt.Errorf("failed to create event: %w", err)
	}

	for i := range event.Sources {
		src := event.Sources[i]
		for j := range src.Instances {
			if err := r.insertSourceInstance(ctx, event.ID, src.Name, src.Instances[j]); err != nil {
				return err
			}
		}
	}

	log.WithField("event_id", event.ID).Info("Event successfully created")
	return nil
}

func (r *postgresEventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `
		SELECT id, title, event_type, description, status,
			sectors, bucket_list, created, modified
		FROM events
		WHERE id = $1
	`

	var event domain.Event
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&event.ID,
		&event.Title,
		&event.EventType,
		&event.Description,
		&event.Status,
		pq.Array(&event.Sectors),
		pq.Array(&event.BucketList),
		&event.Created,
		&event.Modified,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrEventNotFound
		}
		log.WithError(err).WithField("event_id", id).Error("Failed to get event by ID")
		return nil, fmt.Errorf("failed to get event by ID: %w", err)
	}

	if err := r.loadRelations(ctx, &event); err != nil {
		return nil, err
	}

	return &event, nil
}

// List returns events carrying at least one of the given sources, newest
// first. An empty source set applies no filter; the caller decides who
// may list unfiltered.
func (r *postgresEventRepository) List(ctx context.Context, sources []string, limit, offset int) ([]domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `
		SELECT id, title, event_type, description, status,
			sectors, bucket_list, created, modified
		FROM events
		ORDER BY created DESC
		LIMIT $1 OFFSET $2
	`
	args := []interface{}{limit, offset}

	if len(sources) > 0 {
		query = `
			SELECT DISTINCT e.id, e.title, e.event_type, e.description, e.status,
				e.sectors, e.bucket_list, e.created, e.modified
			FROM events e
			JOIN event_sources s ON s.event_id = e.id
			WHERE s.name = ANY($1)
			ORDER BY e.created DESC
			LIMIT $2 OFFSET $3
		`
		args = []interface{}{pq.Array(sources), limit, offset}
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.WithError(err).Error("Failed to list events")
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var event domain.Event
		err := rows.Scan(
			&event.ID,
			&event.Title,
			&event.EventType,
			&event.Description,
			&event.Status,
			pq.Array(&event.Sectors),
			pq.Array(&event.BucketList),
			&event.Created,
			&event.Modified,
		)
		if err != nil {
			log.WithError(err).Error("Failed to scan event row")
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		log.WithError(err).Error("Error iterating over event rows")
		return nil, fmt.Errorf("error iterating over event rows: %w", err)
	}

	return events, nil
}

func (r *postgresEventRepository) Update(ctx context.Context, eventID string, fields *domain.UpdateEventFields) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	setParts, args := buildEventUpdate(fields)
	if len(setParts) == 0 {
		log.WithField("event_id", eventID).Info("No fields to update, skipping")
		return nil
	}

	setParts = append(setParts, "modified = NOW()")

	query := fmt.Sprintf(
		"UPDATE events SET %s WHERE id = $%d",
		strings.Join(setParts, ", "),
		len(args)+1,
	)
	args = append(args, eventID)

	log.WithFields(log.Fields{
		"event_id": eventID,
		"fields":   setParts,
	}).Info("Updating event with dynamic SQL")

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.WithError(err).WithField("event_id", eventID).Error("Failed to update event")
		return fmt.Errorf("failed to update event: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not determine rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return domain.ErrEventNotFound
	}

	log.WithField("event_id", eventID).Info("Event successfully updated")
	return nil
}

// buildEventUpdate assembles the SET clause and argument list for the
// provided fields. Split out so the clause numbering can be tested.
func buildEventUpdate(fields *domain.UpdateEventFields) ([]string, []interface{}) {
	var setParts []string
	var args []interface{}
	argIndex := 1

	if fields.Title != nil {
		setParts = append(setParts, fmt.Sprintf("title = $%d", argIndex))
		args = append(args, *fields.Title)
		argIndex++
	}
	if fields.EventType != nil {
		setParts = append(setParts, fmt.Sprintf("event_type = $%d", argIndex))
		args = append(args, *fields.EventType)
		argIndex++
	}
	if fields.Status != nil {
		setParts = append(setParts, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, *fields.Status)
		argIndex++
	}
	if fields.Description != nil {
		setParts = append(setParts, fmt.Sprintf("description = $%d", argIndex))
		args = append(args, *fields.Description)
		argIndex++
	}

	return setParts, args
}

func (r *postgresEventRepository) SetSectors(ctx context.Context, eventID string, sectors []string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `UPDATE events SET sectors = $1, modified = NOW() WHERE id = $2`

	result, err := r.db.ExecContext(ctx, query, pq.Array(sectors), eventID)
	if err != nil {
		log.WithError(err).WithField("event_id", eventID).Error("Failed to set sectors")
		return fmt.Errorf("failed to set sectors: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not determine rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return domain.ErrEventNotFound
	}

	return nil
}

// AddBuckets appends bucket-list terms, skipping ones already present.
func (r *postgresEventRepository) AddBuckets(ctx context.Context, eventID string, buckets []string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `
		UPDATE events SET
			bucket_list = (
				SELECT array_agg(DISTINCT b) FROM unnest(bucket_list || $1::text[]) AS b
			),
			modified = NOW()
		WHERE id = $2
	`

	result, err := r.db.ExecContext(ctx, query, pq.Array(buckets), eventID)
	if err != nil {
		log.WithError(err).WithField("event_id", eventID).Error("Failed to add bucket list items")
		return fmt.Errorf("failed to add bucket list items: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not determine rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return domain.ErrEventNotFound
	}

	return nil
}

func (r *postgresEventRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	log.WithField("event_id", id).Info("Deleting event from database")

	query := `DELETE FROM events WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		log.WithError(err).WithField("event_id", id).Error("Failed to delete event")
		return fmt.Errorf("failed to delete event: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not determine rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return domain.ErrEventNotFound
	}

	log.WithField("event_id", id).Info("Event successfully deleted")
	return nil
}
