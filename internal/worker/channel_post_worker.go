package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/service"
)

// ErrQueueFull is returned when a post is dropped because the queue is full.
var ErrQueueFull = errors.New("channel post queue full")

const defaultPostTimeout = 10 * time.Second

type channelPost struct {
	channelID string
	content   string
}

// ChannelPostWorker moves chat-platform posts off the request path. It
// satisfies service.ChannelPoster; PostToChannel only enqueues.
type ChannelPostWorker struct {
	target  service.ChannelPoster
	queue   chan channelPost
	timeout time.Duration
	logger  *zap.Logger

	done     chan struct{}
	stopOnce sync.Once
}

// NewChannelPostWorker creates a worker delivering to target.
func NewChannelPostWorker(target service.ChannelPoster, queueSize int, logger *zap.Logger) *ChannelPostWorker {
	if queueSize <= 0 {
		queueSize = 64
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChannelPostWorker{
		target:  target,
		queue:   make(chan channelPost, queueSize),
		timeout: defaultPostTimeout,
		logger:  logger,
		done:    make(chan struct{}),
	}
}

// PostToChannel enqueues a post without blocking.
func (w *ChannelPostWorker) PostToChannel(_ context.Context, channelID, content string) error {
	select {
	case w.queue <- channelPost{channelID: channelID, content: content}:
		return nil
	default:
		w.logger.Warn("channel post dropped", zap.String("channel_id", channelID))
		return ErrQueueFull
	}
}

// Run delivers queued posts until ctx is cancelled, then drains what is
// already queued.
func (w *ChannelPostWorker) Run(ctx context.Context) {
	defer w.stopOnce.Do(func() { close(w.done) })
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return
		case post := <-w.queue:
			w.deliver(context.Background(), post)
		}
	}
}

// Done is closed once Run has returned.
func (w *ChannelPostWorker) Done() <-chan struct{} {
	return w.done
}

func (w *ChannelPostWorker) drain() {
	for {
		select {
		case post := <-w.queue:
			w.deliver(context.Background(), post)
		default:
			return
		}
	}
}

func (w *ChannelPostWorker) deliver(parent context.Context, post channelPost) {
	ctx, cancel := context.WithTimeout(parent, w.timeout)
	defer cancel()
	if err := w.target.PostToChannel(ctx, post.channelID, post.content); err != nil {
		w.logger.Warn("channel post failed", zap.String("channel_id", post.channelID), zap.Error(err))
		return
	}
	w.logger.Debug("channel post delivered", zap.String("channel_id", post.channelID))
}
