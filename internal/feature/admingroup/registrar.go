// Package admingroup tracks the group chats the bot operates in, marking the
// admin approval group and the history feed chat.
package admingroup

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/shaown803/XbetMasterAgentBot/internal/domain"
	"github.com/shaown803/XbetMasterAgentBot/internal/logging"
)

type groupCollection interface {
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
}

// Registrar persists group chats when the bot encounters them and keeps their
// last-seen timestamp updated. Chats matching the configured admin or history
// chat ids are labeled with their kind so operators can audit the setup.
type Registrar struct {
	groups        groupCollection
	adminChatID   int64
	historyChatID int64
	logger        *logrus.Entry
}

// NewRegistrar constructs a Registrar for the provided groups collection.
func NewRegistrar(groups groupCollection, adminChatID, historyChatID int64, logger *logrus.Entry) *Registrar {
	if logger == nil {
		logger = logging.Logger()
	}

	return &Registrar{
		groups:        groups,
		adminChatID:   adminChatID,
		historyChatID: historyChatID,
		logger:        logger,
	}
}

// EnsureGroup upserts the group record with the provided chat ID and updates
// last_seen_at on every call.
func (r *Registrar) EnsureGroup(ctx context.Context, chatID int64, title string) (bool, error) {
	if r == nil || r.groups == nil {
		return false, errors.New("group registrar is not initialized")
	}
	if ctx == nil {
		return false, errors.New("context is required")
	}
	if chatID == 0 {
		return false, errors.New("chat id is required")
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	updateTitle := strings.TrimSpace(title)

	setFields := bson.M{"last_seen_at": now}
	if updateTitle != "" {
		setFields["title"] = updateTitle
	}
	if kind := r.kindFor(chatID); kind != "" {
		setFields["kind"] = kind
	}

	update := bson.M{
		"$set": setFields,
		"$setOnInsert": bson.M{
			"chat_id":   chatID,
			"joined_at": now,
		},
	}

	result, err := r.groups.UpdateOne(ctx,
		bson.M{"chat_id": chatID},
		update,
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return false, fmt.Errorf("ensure group: %w", err)
	}

	created := result != nil && result.UpsertedCount > 0
	if created {
		r.logger.WithFields(logging.Fields{
			"event":   "group_registered",
			"chat_id": chatID,
			"title":   updateTitle,
		}).Info("registered new group")
		return true, nil
	}

	r.logger.WithFields(logging.Fields{
		"event":   "group_seen",
		"chat_id": chatID,
		"title":   updateTitle,
	}).Debug("updated group last seen")

	return false, nil
}

func (r *Registrar) kindFor(chatID int64) string {
	switch chatID {
	case r.adminChatID:
		return domain.GroupKindAdmin
	case r.historyChatID:
		return domain.GroupKindHistory
	default:
		return ""
	}
}
