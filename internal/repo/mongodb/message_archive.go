package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nguyentranbao-ct/chat-client/internal/models"
	"github.com/nguyentranbao-ct/chat-client/pkg/util"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrArchiveDisabled = errors.New("message archive is disabled")

// ArchivedMessage is a message copied from a chat view into local storage.
type ArchivedMessage struct {
	ID         int64     `bson:"_id"`
	ChatID     int64     `bson:"chat_id"`
	AuthorID   int64     `bson:"author_id"`
	Content    string    `bson:"content"`
	Timestamp  time.Time `bson:"timestamp"`
	ArchivedAt time.Time `bson:"archived_at"`
}

func (m ArchivedMessage) ToModel() models.Message {
	return models.Message{
		ID:        m.ID,
		ChatID:    m.ChatID,
		AuthorID:  m.AuthorID,
		Content:   m.Content,
		Timestamp: m.Timestamp,
	}
}

// MessageArchive keeps a local copy of the messages seen by the chat view.
type MessageArchive interface {
	EnsureIndexes(ctx context.Context) error
	Archive(ctx context.Context, msgs []models.Message) error
	Forget(ctx context.Context, messageID int64) error
	History(ctx context.Context, chatID int64, limit int) ([]models.Message, error)
}

type messageArchiveRepo struct {
	collection *mongo.Collection
}

func NewMessageArchive(db *DB) MessageArchive {
	return &messageArchiveRepo{
		collection: db.Database.Collection("message_archive"),
	}
}

func (r *messageArchiveRepo) EnsureIndexes(ctx context.Context) error {
	chatIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "chat_id", Value: 1},
			{Key: "_id", Value: -1},
		},
		Options: options.Index().SetName("chat_recent"),
	}
	if _, err := r.collection.Indexes().CreateOne(ctx, chatIndex); err != nil {
		return fmt.Errorf("create archive indexes: %w", err)
	}
	return nil
}

// Archive upserts msgs by message id, so archiving the same message twice
// keeps one document with the latest content.
func (r *messageArchiveRepo) Archive(ctx context.Context, msgs []models.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	now := time.Now()
	writes := make([]mongo.WriteModel, 0, len(msgs))
	for _, m := range msgs {
		doc := ArchivedMessage{
			ID:         m.ID,
			ChatID:     m.ChatID,
			AuthorID:   m.AuthorID,
			Content:    m.Content,
			Timestamp:  m.Timestamp,
			ArchivedAt: now,
		}
		writes = append(writes, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": m.ID}).
			SetReplacement(doc).
			SetUpsert(true))
	}

	opts := options.BulkWrite().SetOrdered(false)
	if _, err := r.collection.BulkWrite(ctx, writes, opts); err != nil {
		return fmt.Errorf("archive %d messages: %w", len(msgs), err)
	}
	return nil
}

func (r *messageArchiveRepo) Forget(ctx context.Context, messageID int64) error {
	if _, err := r.collection.DeleteOne(ctx, bson.M{"_id": messageID}); err != nil {
		return fmt.Errorf("forget message %d: %w", messageID, err)
	}
	return nil
}

// History returns up to limit archived messages of chatID, newest first.
func (r *messageArchiveRepo) History(ctx context.Context, chatID int64, limit int) ([]models.Message, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, bson.M{"chat_id": chatID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find archived messages: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []ArchivedMessage
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode archived messages: %w", err)
	}

	return util.ConvertList(docs, ArchivedMessage.ToModel), nil
}

type disabledArchive struct{}

// NewDisabledArchive accepts writes and drops them.
func NewDisabledArchive() MessageArchive {
	return disabledArchive{}
}

func (disabledArchive) EnsureIndexes(context.Context) error             { return nil }
func (disabledArchive) Archive(context.Context, []models.Message) error { return nil }
func (disabledArchive) Forget(context.Context, int64) error             { return nil }

func (disabledArchive) History(context.Context, int64, int) ([]models.Message, error) {
	return nil, ErrArchiveDisabled
}
