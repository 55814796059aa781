package repository

import (
	"context"
	"fmt"
	"time"

	"event-service/internal/domain"

	log "github.com/sirupsen/logrus"
)

// loadRelations fills the event's child collections: sources,
// releasability, tickets, campaigns, locations, relationships, objects,
// comments and analysis results. Samples live in their own repository.
func (r *postgresEventRepository) loadRelations(ctx context.Context, event *domain.Event) error {
	var err error
	if event.Sources, err = r.getSources(ctx, event.ID); err != nil {
		return err
	}
	if event.Releasability, err = r.getReleasability(ctx, event.ID); err != nil {
		return err
	}
	if event.Tickets, err = r.getTickets(ctx, event.ID); err != nil {
		return err
	}
	if event.Campaigns, err = r.getCampaigns(ctx, event.ID); err != nil {
		return err
	}
	if event.Locations, err = r.getLocations(ctx, event.ID); err != nil {
		return err
	}
	if event.Relationships, err = r.getRelationships(ctx, event.ID); err != nil {
		return err
	}
	if event.Objects, err = r.getObjects(ctx, event.ID); err != nil {
		return err
	}
	if event.Comments, err = r.getComments(ctx, event.ID); err != nil {
		return err
	}
	if event.ServiceResults, err = r.getAnalysisResults(ctx, event.ID); err != nil {
		return err
	}
	return nil
}

func (r *postgresEventRepository) getSources(ctx context.Context, eventID string) ([]domain.Source, error) {
	query := `
		SELECT name, date, method, reference, analyst
		FROM event_sources
		WHERE event_id = $1
		ORDER BY name, date
	`

	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get event sources: %w", err)
	}
	defer rows.Close()

	var sources []domain.Source
	for rows.Next() {
		var name string
		var inst domain.SourceInstance
		if err := rows.Scan(&name, &inst.Date, &inst.Method, &inst.Reference, &inst.Analyst); err != nil {
			return nil, fmt.Errorf("failed to scan source row: %w", err)
		}
		if n := len(sources); n > 0 && sources[n-1].Name == name {
			sources[n-1].Instances = append(sources[n-1].Instances, inst)
			continue
		}
		sources = append(sources, domain.Source{Name: name, Instances: []domain.SourceInstance{inst}})
	}

	return sources, rows.Err()
}

func (r *postgresEventRepository) insertSourceInstance(ctx context.Context, eventID, name string, inst domain.SourceInstance) error {
	query := `
		INSERT INTO event_sources (event_id, name, date, method, reference, analyst)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query, eventID, name, inst.Date, inst.Method, inst.Reference, inst.Analyst)
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"event_id": eventID,
			"source":   name,
		}).Error("Failed to add source instance")
		return fmt.Errorf("failed to add source instance: %w", err)
	}
	return nil
}

func (r *postgresEventRepository) AddSource(ctx context.Context, eventID, name string, inst domain.SourceInstance) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := r.eventExists(ctx, eventID); err != nil {
		return err
	}
	return r.insertSourceInstance(ctx, eventID, name, inst)
}

func (r *postgresEventRepository) getReleasability(ctx context.Context, eventID string) ([]domain.Releasability, error) {
	query := `
		SELECT name, analyst, date
		FROM event_releasability
		WHERE event_id = $1
		ORDER BY name
	`

	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get releasability: %w", err)
	}
	defer rows.Close()

	var items []domain.Releasability
	for rows.Next() {
		var item domain.Releasability
		if err := rows.Scan(&item.Name, &item.Analyst, &item.Date); err != nil {
			return nil, fmt.Errorf("failed to scan releasability row: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *postgresEventRepository) AddReleasability(ctx context.Context, eventID string, item domain.Releasability) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := r.eventExists(ctx, eventID); err != nil {
		return err
	}

	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM event_releasability WHERE event_id = $1 AND name = $2)`,
		eventID, item.Name).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check releasability: %w", err)
	}
	if exists {
		return domain.ErrReleasabilityExists
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO event_releasability (event_id, name, analyst, date) VALUES ($1, $2, $3, $4)`,
		eventID, item.Name, item.Analyst, item.Date)
	if err != nil {
		log.WithError(err).WithField("event_id", eventID).Error("Failed to add releasability")
		return fmt.Errorf("failed to add releasability: %w", err)
	}
	return nil
}

func (r *postgresEventRepository) RemoveReleasability(ctx context.Context, eventID, name string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	result, err := r.db.ExecContext(ctx,
		`DELETE FROM event_releasability WHERE event_id = $1 AND name = $2`, eventID, name)
	if err != nil {
		log.WithError(err).WithField("event_id", eventID).Error("Failed to remove releasability")
		return fmt.Errorf("failed to remove releasability: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not determine rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrReleasabilityNotFound
	}
	return nil
}

func (r *postgresEventRepository) getTickets(ctx context.Context, eventID string) ([]domain.Ticket, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT ticket_number, analyst, date FROM event_tickets WHERE event_id = $1 ORDER BY date`, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tickets: %w", err)
	}
	defer rows.Close()

	var tickets []domain.Ticket
	for rows.Next() {
		var t domain.Ticket
		if err := rows.Scan(&t.TicketNumber, &t.Analyst, &t.Date); err != nil {
			return nil, fmt.Errorf("failed to scan ticket row: %w", err)
		}
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}

func (r *postgresEventRepository) AddTicket(ctx context.Context, eventID string, ticket domain.Ticket) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := r.eventExists(ctx, eventID); err != nil {
		return err
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO event_tickets (event_id, ticket_number, analyst, date) VALUES ($1, $2, $3, $4)`,
		eventID, ticket.TicketNumber, ticket.Analyst, ticket.Date)
	if err != nil {
		log.WithError(err).WithField("event_id", eventID).Error("Failed to add ticket")
		return fmt.Errorf("failed to add ticket: %w", err)
	}
	return nil
}

func (r *postgresEventRepository) getCampaigns(ctx context.Context, eventID string) ([]domain.Campaign, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT name, confidence, analyst, date FROM event_campaigns WHERE event_id = $1 ORDER BY date`, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get campaigns: %w", err)
	}
	defer rows.Close()

	var campaigns []domain.Campaign
	for rows.Next() {
		var c domain.Campaign
		if err := rows.Scan(&c.Name, &c.Confidence, &c.Analyst, &c.Date); err != nil {
			return nil, fmt.Errorf("failed to scan campaign row: %w", err)
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

func (r *postgresEventRepository) AddCampaign(ctx context.Context, eventID string, campaign domain.Campaign) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := r.eventExists(ctx, eventID); err != nil {
		return err
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO event_campaigns (event_id, name, confidence, analyst, date) VALUES ($1, $2, $3, $4, $5)`,
		eventID, campaign.Name, campaign.Confidence, campaign.Analyst, campaign.Date)
	if err != nil {
		log.WithError(err).WithField("event_id", eventID).Error("Failed to add campaign")
		return fmt.Errorf("failed to add campaign: %w", err)
	}
	return nil
}

func (r *postgresEventRepository) getLocations(ctx context.Context, eventID string) ([]domain.Location, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT name, location_type, latitude, longitude, analyst, date
		 FROM event_locations WHERE event_id = $1 ORDER BY date`, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get locations: %w", err)
	}
	defer rows.Close()

	var locations []domain.Location
	for rows.Next() {
		var l domain.Location
		if err := rows.Scan(&l.Name, &l.LocationType, &l.Latitude, &l.Longitude, &l.Analyst, &l.Date); err != nil {
			return nil, fmt.Errorf("failed to scan location row: %w", err)
		}
		locations = append(locations, l)
	}
	return locations, rows.Err()
}

func (r *postgresEventRepository) AddLocation(ctx context.Context, eventID string, location domain.Location) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := r.eventExists(ctx, eventID); err != nil {
		return err
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO event_locations (event_id, name, location_type, latitude, longitude, analyst, date)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		eventID, location.Name, location.LocationType, location.Latitude, location.Longitude,
		location.Analyst, location.Date)
	if err != nil {
		log.WithError(err).WithField("event_id", eventID).Error("Failed to add location")
		return fmt.Errorf("failed to add location: %w", err)
	}
	return nil
}

func (r *postgresEventRepository) getRelationships(ctx context.Context, eventID string) ([]domain.Relationship, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT target_type, target_id, relationship, confidence, analyst, date
		 FROM event_relationships WHERE event_id = $1 ORDER BY target_type, date`, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get relationships: %w", err)
	}
	defer rows.Close()

	var rels []domain.Relationship
	for rows.Next() {
		var rel domain.Relationship
		if err := rows.Scan(&rel.TargetType, &rel.TargetID, &rel.Relationship, &rel.Confidence, &rel.Analyst, &rel.Date); err != nil {
			return nil, fmt.Errorf("failed to scan relationship row: %w", err)
		}
		rels = append(rels, rel)
	}
	return rels, rows.Err()
}

func (r *postgresEventRepository) AddRelationship(ctx context.Context, eventID string, rel domain.Relationship) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := r.eventExists(ctx, eventID); err != nil {
		return err
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO event_relationships (event_id, target_type, target_id, relationship, confidence, analyst, date)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		eventID, rel.TargetType, rel.TargetID, rel.Relationship, rel.Confidence, rel.Analyst, rel.Date)
	if err != nil {
		log.WithError(err).WithField("event_id", eventID).Error("Failed to add relationship")
		return fmt.Errorf("failed to add relationship: %w", err)
	}
	return nil
}

func (r *postgresEventRepository) getObjects(ctx context.Context, eventID string) ([]domain.EventObject, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, object_type, value, source, analyst, date
		 FROM event_objects WHERE event_id = $1 ORDER BY date`, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get objects: %w", err)
	}
	defer rows.Close()

	var objects []domain.EventObject
	for rows.Next() {
		var o domain.EventObject
		if err := rows.Scan(&o.ID, &o.ObjectType, &o.Value, &o.Source, &o.Analyst, &o.Date); err != nil {
			return nil, fmt.Errorf("failed to scan object row: %w", err)
		}
		objects = append(objects, o)
	}
	return objects, rows.Err()
}

func (r *postgresEventRepository) AddObject(ctx context.Context, eventID string, object domain.EventObject) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := r.eventExists(ctx, eventID); err != nil {
		return err
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO event_objects (id, event_id, object_type, value, source, analyst, date)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		object.ID, eventID, object.ObjectType, object.Value, object.Source, object.Analyst, object.Date)
	if err != nil {
		log.WithError(err).WithField("event_id", eventID).Error("Failed to add object")
		return fmt.Errorf("failed to add object: %w", err)
	}
	return nil
}

// GetObjectsByIDs returns the subset of the event's objects matching ids.
func (r *postgresEventRepository) GetObjectsByIDs(ctx context.Context, eventID string, ids []string) ([]domain.EventObject, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	objects, err := r.getObjects(ctx, eventID)
	if err != nil {
		return nil, err
	}

	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}

	var out []domain.EventObject
	for _, o := range objects {
		if want[o.ID] {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *postgresEventRepository) getComments(ctx context.Context, eventID string) ([]domain.Comment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, analyst, text, created FROM event_comments WHERE event_id = $1 ORDER BY created`, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get comments: %w", err)
	}
	defer rows.Close()

	var comments []domain.Comment
	for rows.Next() {
		var c domain.Comment
		if err := rows.Scan(&c.ID, &c.Analyst, &c.Text, &c.Created); err != nil {
			return nil, fmt.Errorf("failed to scan comment row: %w", err)
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

func (r *postgresEventRepository) AddComment(ctx context.Context, eventID string, comment domain.Comment) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := r.eventExists(ctx, eventID); err != nil {
		return err
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO event_comments (id, event_id, analyst, text, created) VALUES ($1, $2, $3, $4, $5)`,
		comment.ID, eventID, comment.Analyst, comment.Text, comment.Created)
	if err != nil {
		log.WithError(err).WithField("event_id", eventID).Error("Failed to add comment")
		return fmt.Errorf("failed to add comment: %w", err)
	}
	return nil
}

func (r *postgresEventRepository) getAnalysisResults(ctx context.Context, eventID string) ([]domain.AnalysisResult, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, service_name, version, status, results, started_at, finished_at
		 FROM analysis_results WHERE event_id = $1 ORDER BY started_at`, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get analysis results: %w", err)
	}
	defer rows.Close()

	var results []domain.AnalysisResult
	for rows.Next() {
		var a domain.AnalysisResult
		if err := rows.Scan(&a.ID, &a.ServiceName, &a.Version, &a.Status, &a.Results, &a.StartedAt, &a.FinishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan analysis result row: %w", err)
		}
		results = append(results, a)
	}
	return results, rows.Err()
}

func (r *postgresEventRepository) AddAnalysisResult(ctx context.Context, eventID string, result domain.AnalysisResult) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := r.eventExists(ctx, eventID); err != nil {
		return err
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO analysis_results (id, event_id, service_name, version, status, results, started_at, finished_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		result.ID, eventID, result.ServiceName, result.Version, result.Status,
		result.Results, result.StartedAt, result.FinishedAt)
	if err != nil {
		log.WithError(err).WithField("event_id", eventID).Error("Failed to add analysis result")
		return fmt.Errorf("failed to add analysis result: %w", err)
	}
	return nil
}

func (r *postgresEventRepository) eventExists(ctx context.Context, eventID string) error {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM events WHERE id = $1)`, eventID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check event existence: %w", err)
	}
	if !exists {
		return domain.ErrEventNotFound
	}
	return nil
}
