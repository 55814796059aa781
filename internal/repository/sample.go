package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"event-service/internal/domain"

	log "github.com/sirupsen/logrus"
)

type postgresSampleRepository struct {
	db *sql.DB
}

func NewPostgresSampleRepository(db *sql.DB) *postgresSampleRepository {
	return &postgresSampleRepository{db: db}
}

// Create stores the sample metadata and its raw bytes in one transaction.
func (r *postgresSampleRepository) Create(ctx context.Context, sample *domain.Sample, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	log.WithFields(log.Fields{
		"sample_id": sample.ID,
		"event_id":  sample.EventID,
		"filename":  sample.Filename,
		"md5":       sample.MD5,
	}).Info("Storing sample for event")

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin sample transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO sample_data (storage_key, data) VALUES ($1, $2)`,
		sample.StorageKey, data)
	if err != nil {
		log.WithError(err).WithField("sample_id", sample.ID).Error("Failed to store sample data")
		return fmt.Errorf("failed to store sample data: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO samples (id, event_id, filename, md5, size, storage_key, source, analyst, created)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		sample.ID, sample.EventID, sample.Filename, sample.MD5, sample.Size,
		sample.StorageKey, sample.Source, sample.Analyst, sample.Created)
	if err != nil {
		log.WithError(err).WithField("sample_id", sample.ID).Error("Failed to store sample metadata")
		return fmt.Errorf("failed to store sample metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit sample transaction: %w", err)
	}

	log.WithField("sample_id", sample.ID).Info("Sample successfully stored")
	return nil
}

func (r *postgresSampleRepository) ListByEvent(ctx context.Context, eventID string) ([]domain.Sample, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `
		SELECT id, event_id, filename, md5, size, storage_key, source, analyst, created
		FROM samples
		WHERE event_id = $1
		ORDER BY created
	`

	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		log.WithError(err).WithField("event_id", eventID).Error("Failed to list samples")
		return nil, fmt.Errorf("failed to list samples: %w", err)
	}
	defer rows.Close()

	var samples []domain.Sample
	for rows.Next() {
		var s domain.Sample
		err := rows.Scan(&s.ID, &s.EventID, &s.Filename, &s.MD5, &s.Size,
			&s.StorageKey, &s.Source, &s.Analyst, &s.Created)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sample row: %w", err)
		}
		samples = append(samples, s)
	}

	return samples, rows.Err()
}

// GetByMD5 looks up a sample already attached to the event with the given
// digest. Used for upload de-duplication.
func (r *postgresSampleRepository) GetByMD5(ctx context.Context, eventID, md5 string) (*domain.Sample, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `
		SELECT id, event_id, filename, md5, size, storage_key, source, analyst, created
		FROM samples
		WHERE event_id = $1 AND md5 = $2
	`

	var s domain.Sample
	err := r.db.QueryRowContext(ctx, query, eventID, md5).Scan(
		&s.ID, &s.EventID, &s.Filename, &s.MD5, &s.Size,
		&s.StorageKey, &s.Source, &s.Analyst, &s.Created)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrSampleNotFound
		}
		return nil, fmt.Errorf("failed to get sample by md5: %w", err)
	}

	return &s, nil
}

func (r *postgresSampleRepository) GetByID(ctx context.Context, eventID, id string) (*domain.Sample, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `
		SELECT id, event_id, filename, md5, size, storage_key, source, analyst, created
		FROM samples
		WHERE event_id = $1 AND id = $2
	`

	var s domain.Sample
	err := r.db.QueryRowContext(ctx, query, eventID, id).Scan(
		&s.ID, &s.EventID, &s.Filename, &s.MD5, &s.Size,
		&s.StorageKey, &s.Source, &s.Analyst, &s.Created)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrSampleNotFound
		}
		return nil, fmt.Errorf("failed to get sample: %w", err)
	}

	return &s, nil
}

func (r *postgresSampleRepository) GetData(ctx context.Context, storageKey string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var data []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT data FROM sample_data WHERE storage_key = $1`, storageKey).Scan(&data)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrSampleNotFound
		}
		return nil, fmt.Errorf("failed to get sample data: %w", err)
	}
	return data, nil
}
