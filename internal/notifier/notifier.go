// Package notifier tracks per-analyst subscriptions, favorites and
// pending notifications in Redis. Subscribers to an entity get a pending
// notification whenever it changes; viewing the detail page clears it.
package notifier

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

type Notifier struct {
	client *redis.Client
}

func New(addr, password string, db int) *Notifier {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &Notifier{client: client}
}

// NewWithClient is used by tests to inject a prepared client.
func NewWithClient(client *redis.Client) *Notifier {
	return &Notifier{client: client}
}

func (n *Notifier) Ping(ctx context.Context) error {
	return n.client.Ping(ctx).Err()
}

func (n *Notifier) Close() error {
	return n.client.Close()
}

func subsKey(entityType, id string) string {
	return fmt.Sprintf("subs:%s:%s", entityType, id)
}

func favsKey(username string) string {
	return fmt.Sprintf("favs:%s", username)
}

func notifKey(username string) string {
	return fmt.Sprintf("notif:%s", username)
}

func entityField(entityType, id string) string {
	return entityType + ":" + id
}

func (n *Notifier) IsSubscribed(ctx context.Context, username, entityType, id string) (bool, error) {
	return n.client.SIsMember(ctx, subsKey(entityType, id), username).Result()
}

// ToggleSubscription flips the subscription and returns the new state.
func (n *Notifier) ToggleSubscription(ctx context.Context, username, entityType, id string) (bool, error) {
	key := subsKey(entityType, id)

	subscribed, err := n.client.SIsMember(ctx, key, username).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check subscription: %w", err)
	}

	if subscribed {
		if err := n.client.SRem(ctx, key, username).Err(); err != nil {
			return false, fmt.Errorf("failed to unsubscribe: %w", err)
		}
		return false, nil
	}

	if err := n.client.SAdd(ctx, key, username).Err(); err != nil {
		return false, fmt.Errorf("failed to subscribe: %w", err)
	}
	return true, nil
}

func (n *Notifier) IsFavorite(ctx context.Context, username, entityType, id string) (bool, error) {
	return n.client.SIsMember(ctx, favsKey(username), entityField(entityType, id)).Result()
}

// ToggleFavorite flips the favorite flag and returns the new state.
func (n *Notifier) ToggleFavorite(ctx context.Context, username, entityType, id string) (bool, error) {
	key := favsKey(username)
	field := entityField(entityType, id)

	favorite, err := n.client.SIsMember(ctx, key, field).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check favorite: %w", err)
	}

	if favorite {
		if err := n.client.SRem(ctx, key, field).Err(); err != nil {
			return false, fmt.Errorf("failed to remove favorite: %w", err)
		}
		return false, nil
	}

	if err := n.client.SAdd(ctx, key, field).Err(); err != nil {
		return false, fmt.Errorf("failed to add favorite: %w", err)
	}
	return true, nil
}

// NotifySubscribers records a pending notification for every subscriber
// of the entity except the acting analyst.
func (n *Notifier) NotifySubscribers(ctx context.Context, actor, entityType, id, message string) error {
	subscribers, err := n.client.SMembers(ctx, subsKey(entityType, id)).Result()
	if err != nil {
		return fmt.Errorf("failed to get subscribers: %w", err)
	}

	field := entityField(entityType, id)
	for _, username := range subscribers {
		if username == actor {
			continue
		}
		if err := n.client.HSet(ctx, notifKey(username), field, message).Err(); err != nil {
			log.WithError(err).WithFields(log.Fields{
				"username": username,
				"entity":   field,
			}).Error("Failed to record pending notification")
			return fmt.Errorf("failed to record notification: %w", err)
		}
	}
	return nil
}

// ClearNotifications drops the analyst's pending notifications for the
// entity. Called when the detail page is viewed.
func (n *Notifier) ClearNotifications(ctx context.Context, username, entityType, id string) error {
	err := n.client.HDel(ctx, notifKey(username), entityField(entityType, id)).Err()
	if err != nil {
		return fmt.Errorf("failed to clear notifications: %w", err)
	}
	return nil
}

// PendingNotifications returns entity field -> message for the analyst.
func (n *Notifier) PendingNotifications(ctx context.Context, username string) (map[string]string, error) {
	return n.client.HGetAll(ctx, notifKey(username)).Result()
}
