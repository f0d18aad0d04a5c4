// Package stream re-emits a fully materialized answer as a sequence of
// word-sized chunks, pacing them with short random delays so clients see
// incremental output rather than one large flush.
package stream

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"github.com/conduitchat/conduit/internal/monitoring"
)

const (
	minDelay = 10 * time.Millisecond
	maxDelay = 50 * time.Millisecond
)

// Sink receives one chunk at a time. Returning an error aborts the stream.
type Sink func(chunk string) error

// Streamer paces word chunks onto a sink. The zero value is not usable;
// construct with New.
type Streamer struct {
	sleep func(d time.Duration)
	rng   *rand.Rand
	route string
}

// Option customizes a Streamer, used by tests to remove timing.
type Option func(*Streamer)

// WithSleep replaces the delay function
func WithSleep(fn func(d time.Duration)) Option {
	return func(s *Streamer) { s.sleep = fn }
}

// WithSeed makes the delay sequence deterministic
func WithSeed(seed int64) Option {
	return func(s *Streamer) { s.rng = rand.New(rand.NewSource(seed)) }
}

// New builds a Streamer labeling its chunk metric with route
func New(route string, opts ...Option) *Streamer {
	s := &Streamer{
		sleep: time.Sleep,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
		route: route,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Words emits text word by word. Each chunk is the word followed by a
// single space, so concatenating all chunks reproduces the answer with
// normalized whitespace. Consecutive whitespace in the input collapses.
func (s *Streamer) Words(ctx context.Context, text string, sink Sink) error {
	m := monitoring.Get()
	for _, word := range strings.Fields(text) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := sink(word + " "); err != nil {
			return err
		}
		m.StreamChunksEmitted.WithLabelValues(s.route).Inc()
		s.sleep(s.delay())
	}
	return nil
}

func (s *Streamer) delay() time.Duration {
	return minDelay + time.Duration(s.rng.Int63n(int64(maxDelay-minDelay)))
}
