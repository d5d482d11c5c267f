package dummydb

import (
	"sync"

	"github.com/darasahq/darasa/core/classroom"
	"github.com/darasahq/darasa/core/user"
)

type (
	DB struct {
		user      *userTable
		classroom *classroomTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	classroomTable struct {
		sync.RWMutex
		table       map[string]*classroom.Classroom
		memberships map[string][]membership // classroomID -> members
		content     map[string][]classroom.ContentItem
	}

	membership struct {
		userID string
		role   string
	}
)

func Open() (*DB, error) {
	db := &DB{
		user: &userTable{table: make(map[string]*user.User)},
		classroom: &classroomTable{
			table:       make(map[string]*classroom.Classroom),
			memberships: make(map[string][]membership),
			content:     make(map[string][]classroom.ContentItem),
		},
	}
	return db, nil
}
