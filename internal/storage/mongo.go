package storage

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/arc53/tg-bot-docsgpt-extenstion/internal/conversation"
)

const mongoConnectTimeout = 5 * time.Second

// MongoStore keeps one document per chat in a MongoDB collection, keyed by
// the decimal chat id.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoStore connects to MongoDB and verifies liveness with a short ping.
// A connection failure is returned to the selector, which decides whether to
// fall back or abort.
func NewMongoStore(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	connectCtx, cancel := context.WithTimeout(ctx, mongoConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return &MongoStore{
		client:     client,
		collection: client.Database(database).Collection(collection),
	}, nil
}

type mongoDocument struct {
	ID             string                 `bson:"_id"`
	History        []conversation.Turn    `bson:"conversation_history"`
	ConversationID string                 `bson:"conversation_id,omitempty"`
	User           *conversation.UserInfo `bson:"user_info,omitempty"`
	LastUpdated    time.Time              `bson:"last_updated,omitempty"`
}

// Get performs a point lookup by chat id. A missing document yields the empty
// default; any other error also yields the empty default and is logged, so a
// read failure is treated as "no history yet" rather than propagated.
func (s *MongoStore) Get(ctx context.Context, chatID int64) *conversation.State {
	var doc mongoDocument
	err := s.collection.FindOne(ctx, bson.M{"_id": chatKey(chatID)}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return &conversation.State{}
	}
	if err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("mongo read failed, using empty state")
		return &conversation.State{}
	}
	return &conversation.State{
		History:        doc.History,
		ConversationID: doc.ConversationID,
		User:           doc.User,
		LastUpdated:    doc.LastUpdated,
	}
}

// Save upserts the chat's document. The first save creates it; later saves
// replace the listed fields. user_info is only written when identity info is
// present, so an absent sender never wipes the stored identity.
func (s *MongoStore) Save(ctx context.Context, chatID int64, history []conversation.Turn, conversationID string, user *conversation.UserInfo) {
	set := bson.M{
		"conversation_history": conversation.Trim(history),
		"conversation_id":      conversationID,
	}
	if user != nil {
		set["user_info"] = user
	}
	update := bson.M{
		"$set":         set,
		"$currentDate": bson.M{"last_updated": true},
	}
	_, err := s.collection.UpdateOne(ctx, bson.M{"_id": chatKey(chatID)}, update, options.Update().SetUpsert(true))
	if err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("mongo save failed")
	}
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) Kind() string { return "mongodb" }

func chatKey(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}
