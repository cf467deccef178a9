package closer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloseOrderAndErrors(t *testing.T) {
	c := NewCloser(time.Second)

	var order []string
	c.AddQuiet("db", func() { order = append(order, "db") })
	c.Add("cache", func(context.Context) error {
		order = append(order, "cache")
		return errors.New("boom")
	})
	c.AddQuiet("server", func() { order = append(order, "server") })

	err := c.Close(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache: boom")
	assert.Equal(t, []string{"server", "cache", "db"}, order)

	// Повторный вызов ничего не закрывает
	assert.NoError(t, c.Close(context.Background()))
	assert.Len(t, order, 3)
}

func TestCloseForcedOnTimeout(t *testing.T) {
	c := NewCloser(50 * time.Millisecond)

	var (
		mu     sync.Mutex
		closed []string
	)
	mark := func(name string) {
		mu.Lock()
		closed = append(closed, name)
		mu.Unlock()
	}

	c.AddQuiet("first", func() { mark("first") })
	c.Add("slow", func(ctx context.Context) error {
		<-ctx.Done()
		mark("slow")
		return ctx.Err()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := c.Close(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shutdown interrupted")

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, closed, "first")
}
