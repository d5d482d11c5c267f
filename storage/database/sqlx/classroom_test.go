package sqlxrepos

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/darasahq/darasa/core/classroom"
)

// Malformed ids must read as "no such row", not surface a Postgres uuid cast
// error. The guards short-circuit before the pool is touched, so a nil
// handle proves no query was issued.
func TestClassroomRepositoryRejectsMalformedIDs(t *testing.T) {
	repo := NewClassroomRepository(nil)

	t.Run("GetClassroomByID", func(t *testing.T) {
		for _, id := range []string{"nope", "", "42", "f8b1e2d0-1a2b-4c3d-9e8f"} {
			_, err := repo.GetClassroomByID(id)
			assert.Equal(t, classroom.ErrNotFound, err, "id %q", id)
		}
	})

	t.Run("RemoveMember", func(t *testing.T) {
		err := repo.RemoveMember("f8b1e2d0-1a2b-4c3d-9e8f-7a6b5c4d3e2f", "not-a-uuid", classroom.RoleStudent)
		assert.Equal(t, classroom.ErrMemberNotFound, err)
	})
}
