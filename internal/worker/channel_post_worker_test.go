package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPoster struct {
	mu    sync.Mutex
	posts []string
	err   error
}

func (p *recordingPoster) PostToChannel(_ context.Context, channelID, content string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.posts = append(p.posts, channelID+":"+content)
	return p.err
}

func (p *recordingPoster) snapshot() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.posts...)
}

func TestChannelPostWorker_DeliversInOrder(t *testing.T) {
	target := &recordingPoster{}
	w := NewChannelPostWorker(target, 8, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go w.Run(ctx)

	require.NoError(t, w.PostToChannel(context.Background(), "c1", "first"))
	require.NoError(t, w.PostToChannel(context.Background(), "c1", "second"))

	assert.Eventually(t, func() bool { return len(target.snapshot()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"c1:first", "c1:second"}, target.snapshot())

	cancel()
	select {
	case <-w.Done():
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestChannelPostWorker_DropsWhenFull(t *testing.T) {
	w := NewChannelPostWorker(&recordingPoster{}, 1, nil)

	require.NoError(t, w.PostToChannel(context.Background(), "c1", "queued"))
	err := w.PostToChannel(context.Background(), "c1", "dropped")
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestChannelPostWorker_DrainsOnShutdown(t *testing.T) {
	target := &recordingPoster{}
	w := NewChannelPostWorker(target, 4, nil)
	require.NoError(t, w.PostToChannel(context.Background(), "c1", "a"))
	require.NoError(t, w.PostToChannel(context.Background(), "c2", "b"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w.Run(ctx)

	assert.ElementsMatch(t, []string{"c1:a", "c2:b"}, target.snapshot())
}

func TestChannelPostWorker_TargetErrorDoesNotStop(t *testing.T) {
	target := &recordingPoster{err: errors.New("missing access")}
	w := NewChannelPostWorker(target, 4, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.NoError(t, w.PostToChannel(context.Background(), "c1", "a"))
	require.NoError(t, w.PostToChannel(context.Background(), "c1", "b"))
	assert.Eventually(t, func() bool { return len(target.snapshot()) == 2 }, time.Second, 5*time.Millisecond)
}
