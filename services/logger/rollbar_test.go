package logsvc

import (
	"bytes"
	"log"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/kia/core"
	"github.com/trezcool/kia/core/user"
)

func TestRollbarLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewRollbarLogger(log.New(&buf, "TEST : ", 0), &core.Config{TestMode: true})
	usr := user.User{ID: 7, FullName: "Jane Doe", Email: "jane@kia.com"}

	t.Run("user arg is not printed", func(t *testing.T) {
		buf.Reset()
		args := logger.prepare("boom", []interface{}{usr, errors.New("oops")})
		assert.Len(t, args, 2)
		assert.Equal(t, "boom", args[0])
	})

	t.Run("print", func(t *testing.T) {
		buf.Reset()
		logger.Warn("something happened", errors.New("oops"))
		out := buf.String()
		assert.Contains(t, out, "TEST : something happened")
		assert.Contains(t, out, "oops")
	})
}
