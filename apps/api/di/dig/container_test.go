package dig_container

import (
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/shule/apps/api/echo"
	"github.com/trezcool/shule/core/grading"
	"github.com/trezcool/shule/core/school"
)

func TestNew_memoryEngine(t *testing.T) {
	t.Setenv("ENV", "TEST")
	t.Setenv("TEST_DATABASE_ENGINE", "memory")

	c := New("TEST")
	err := c.Invoke(func(
		dir grading.Directory,
		schoolDir *school.Directory,
		gradingSvc *grading.Service,
		server *echoapi.Server,
		db *sqlx.DB,
		closer *Closer,
	) {
		assert.Same(t, schoolDir, dir)
		assert.NotNil(t, gradingSvc)
		assert.NotNil(t, server)
		assert.Nil(t, db)
		assert.NoError(t, closer.Close())
	})
	require.NoError(t, err)
}

func TestCloser_Close(t *testing.T) {
	var calls []string
	errFirst := errors.New("first")

	c := new(Closer)
	c.add(func() error { calls = append(calls, "db"); return errFirst })
	c.add(func() error { calls = append(calls, "redis"); return errors.New("second") })
	c.add(func() error { calls = append(calls, "mongo"); return nil })

	assert.Equal(t, errors.New("second"), c.Close())
	assert.Equal(t, []string{"mongo", "redis", "db"}, calls)
}
