package api

import (
	"context"

	"github.com/austinkregel/local-media/playerd/internal/types"
	"github.com/austinkregel/local-media/playerd/internal/worker"
)

// PlayCountNotifier reports plays in the background. Failures never reach
// the caller.
type PlayCountNotifier struct {
	client *Client
	pool   *worker.Pool
}

// NewPlayCountNotifier creates a notifier that submits to pool.
func NewPlayCountNotifier(client *Client, pool *worker.Pool) *PlayCountNotifier {
	return &PlayCountNotifier{client: client, pool: pool}
}

// TrackPlayed queues a play-count increment and returns immediately.
func (n *PlayCountNotifier) TrackPlayed(track types.Track) {
	if track.ID == "" {
		return
	}
	id := track.ID
	n.pool.Submit(worker.Job{
		Name: "play-count " + id,
		Run: func(ctx context.Context) error {
			return n.client.TrackPlayed(ctx, id)
		},
	})
}
