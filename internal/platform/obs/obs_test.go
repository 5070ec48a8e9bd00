package obs

import (
	"context"
	"errors"
	"testing"

	"github.com/go-logr/logr/funcr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	for _, lvl := range []string{"", "info", "ERROR", "debug", "trace"} {
		_, err := NewLogger(lvl)
		assert.NoError(t, err, lvl)
	}
	_, err := NewLogger("loud")
	assert.Error(t, err)
}

func TestTimeLogsOutcome(t *testing.T) {
	var lines []string
	logger := funcr.New(func(prefix, args string) {
		lines = append(lines, args)
	}, funcr.Options{Verbosity: DEBUG})

	ctx := context.WithValue(IntoContext(context.Background(), logger), RequestIDKey, "abc")

	func() (err error) {
		defer Time(ctx, "ok-op")(&err)
		return nil
	}()
	func() (err error) {
		defer Time(ctx, "bad-op")(&err)
		return errors.New("boom")
	}()

	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"op"="ok-op"`)
	assert.Contains(t, lines[0], `"req_id"="abc"`)
	assert.Contains(t, lines[1], `"op"="bad-op"`)
	assert.Contains(t, lines[1], `"error"="boom"`)
}
