package mongorepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/trezcool/elimu/core/course"
)

type notificationDoc struct {
	ID        primitive.ObjectID `bson:"_id"`
	UserID    string             `bson:"user_id"`
	Title     string             `bson:"title"`
	Message   string             `bson:"message"`
	Status    string             `bson:"status"`
	CreatedAt time.Time          `bson:"created_at"`
}

type notificationRepository struct {
	coll *mongo.Collection
}

var _ course.Notifier = (*notificationRepository)(nil)

func NewNotificationRepository(db *mongo.Database) *notificationRepository {
	return &notificationRepository{coll: db.Collection(notificationsCollection)}
}

func (repo *notificationRepository) Notify(ctx context.Context, n course.Notification) error {
	doc := notificationDoc{
		ID:        primitive.NewObjectID(),
		UserID:    n.UserID,
		Title:     n.Title,
		Message:   n.Message,
		Status:    n.Status,
		CreatedAt: n.CreatedAt,
	}
	_, err := repo.coll.InsertOne(ctx, doc)
	return errors.Wrap(err, "inserting notification")
}
