package inmemdb

import (
	"context"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/course"
)

type notificationRepository struct {
	db *notificationTable
}

var _ course.Notifier = (*notificationRepository)(nil)

func NewNotificationRepository(db *DB) *notificationRepository {
	return &notificationRepository{db: db.notification}
}

func (repo *notificationRepository) Notify(_ context.Context, n course.Notification) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	n.ID = core.NewID()
	repo.db.table = append(repo.db.table, n)
	return nil
}

// Notifications returns the stored notifications, oldest first.
func (repo *notificationRepository) Notifications() []course.Notification {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return append([]course.Notification{}, repo.db.table...)
}
