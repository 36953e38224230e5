package inmemdb

import (
	"sync"

	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/user"
)

type (
	// DB is a process local store, used in DEV and tests.
	DB struct {
		user         *userTable
		course       *courseTable
		notification *notificationTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	courseTable struct {
		sync.RWMutex
		table   map[string]*course.Course
		ordered []string // ids, by creation
	}

	notificationTable struct {
		sync.RWMutex
		table []course.Notification
	}
)

func Open() *DB {
	return &DB{
		user:         &userTable{table: make(map[string]*user.User)},
		course:       &courseTable{table: make(map[string]*course.Course)},
		notification: &notificationTable{},
	}
}
