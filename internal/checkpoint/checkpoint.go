// Package checkpoint implements an optional, side-channel progress
// writer: when tumor.checkpoint.redisAddr is configured, a trial
// periodically persists a compact summary (time step, total cell count,
// a digest of the per-site cell-count cache) to Redis, keyed by
// trialIndex, so an external supervisor can detect a stalled or crashed
// trial. It never participates in step semantics — a trial runs
// identically with or without it — mirroring the teacher's
// internal/memory pooling style of a resource that is reset/reused
// around the hot path rather than threaded through it, built here on
// redis/go-redis/v9's plain Set/Get calls instead of an in-process
// pool.
package checkpoint

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"tumorsim/internal/errors"
	"tumorsim/internal/tumor"
)

// interval is how often a running trial pushes a fresh checkpoint.
const interval = 5 * time.Second

// ttl is how long a checkpoint record survives in Redis after the last
// write, long enough for a supervisor polling at a coarser interval to
// still see the most recent progress after a trial finishes.
const ttl = 10 * time.Minute

// Progress is the compact, JSON-encoded trial summary written to Redis.
type Progress struct {
	TrialIndex     int       `json:"trialIndex"`
	TimeStep       int64     `json:"timeStep"`
	TotalCellCount int       `json:"totalCellCount"`
	SiteDigest     string    `json:"siteDigest"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Writer is the interface the driver depends on; Client and Noop both
// satisfy it so the driver never branches on whether checkpointing is
// configured.
type Writer interface {
	Enabled() bool
	LogResumeHint(trialIndex int)
	Watch(tm *tumor.Tumor, trialIndex int)
	Close() error
}

// New returns a Redis-backed Writer when addr is non-empty, or Noop
// otherwise.
func New(addr string) Writer {
	if addr == "" {
		return Noop{}
	}
	return &Client{rdb: redis.NewClient(&redis.Options{Addr: addr})}
}

// Client is the Redis-backed checkpoint writer.
type Client struct {
	rdb    *redis.Client
	cancel context.CancelFunc
}

func (c *Client) Enabled() bool { return true }

func key(trialIndex int) string { return fmt.Sprintf("tumorsim:checkpoint:%d", trialIndex) }

// LogResumeHint consults the last checkpoint for trialIndex at startup,
// logging it as a resume hint. It is advisory only: the trial proceeds
// identically whether or not a prior checkpoint exists.
func (c *Client) LogResumeHint(trialIndex int) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	val, err := c.rdb.Get(ctx, key(trialIndex)).Result()
	if err != nil {
		return
	}
	var p Progress
	if err := json.Unmarshal([]byte(val), &p); err != nil {
		return
	}
	fmt.Printf("checkpoint: trial %d previously reached timeStep=%d, cellCount=%d at %s\n",
		trialIndex, p.TimeStep, p.TotalCellCount, p.UpdatedAt.Format(time.RFC3339))
}

// Watch periodically pushes a fresh Progress snapshot until Close
// cancels it. Intended to run in its own
// goroutine for the lifetime of the trial.
func (c *Client) Watch(tm *tumor.Tumor, trialIndex int) {
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.push(ctx, tm, trialIndex)
		}
	}
}

func (c *Client) push(ctx context.Context, tm *tumor.Tumor, trialIndex int) {
	p := Progress{
		TrialIndex:     trialIndex,
		TimeStep:       tm.TimeStep(),
		TotalCellCount: tm.TotalCellCount(),
		SiteDigest:     digestSiteCounts(tm),
		UpdatedAt:      time.Now(),
	}
	data, err := json.Marshal(p)
	if err != nil {
		return
	}
	setCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	c.rdb.Set(setCtx, key(trialIndex), data, ttl)
}

// Close stops the watch loop and the Redis client connection. Any
// resulting error is wrapped as a non-critical ErrSystemResource
// diagnostic, per internal/errors' retryable-resource taxonomy — a
// checkpoint shutdown failure never fails the trial itself.
func (c *Client) Close() error {
	if c.cancel != nil {
		c.cancel()
	}
	if err := c.rdb.Close(); err != nil {
		return errors.Wrap(errors.ErrSystemResource, errors.SeverityWarning, "closing checkpoint client", err).WithRecoverable(true)
	}
	return nil
}

// digestSiteCounts hashes the per-site cell-count cache into a short
// hex digest, cheap enough to compute every interval without shipping
// the whole map to Redis.
func digestSiteCounts(tm *tumor.Tumor) string {
	h := sha256.New()
	for coord, n := range tm.SiteCounts() {
		fmt.Fprintf(h, "%d,%d,%d:%d;", coord.X, coord.Y, coord.Z, n)
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// Noop is the checkpoint Writer used when no Redis address is
// configured; every call is a no-op.
type Noop struct{}

func (Noop) Enabled() bool                        { return false }
func (Noop) LogResumeHint(int)                    {}
func (Noop) Watch(*tumor.Tumor, int)               {}
func (Noop) Close() error                          { return nil }
