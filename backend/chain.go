package backend

import (
	"context"
	"log/slog"

	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/ratelimit"
	"github.com/poiesic/recall/retry"
)

// Chain fronts a local backend with an optional remote one. The local
// backend is the source of truth: every write lands there first, and
// retrieval degrades to it whenever the remote path fails.
type Chain struct {
	local    Backend
	remote   Backend
	embedder ai.Embedder
	policy   retry.Policy
	limiter  *ratelimit.Limiter
	logger   *slog.Logger
}

var _ Backend = (*Chain)(nil)

// ChainOption configures a Chain.
type ChainOption func(*Chain) error

// WithRemote adds a secondary backend mirrored on writes and preferred
// for similarity retrieval.
func WithRemote(remote Backend) ChainOption {
	return func(c *Chain) error {
		c.remote = remote
		return nil
	}
}

// WithChainEmbedder ties the chain to the embedder whose vectors feed
// the remote backend. While the embedder reports degraded, similarity
// ranking is meaningless, so query retrieval skips the remote backend
// and lands on the local most-recent path.
func WithChainEmbedder(embedder ai.Embedder) ChainOption {
	return func(c *Chain) error {
		c.embedder = embedder
		return nil
	}
}

// WithRetryPolicy sets the retry policy wrapped around remote calls.
// Default is retry.DefaultPolicy.
func WithRetryPolicy(policy retry.Policy) ChainOption {
	return func(c *Chain) error {
		c.policy = policy
		return nil
	}
}

// WithLimiter sheds remote calls for users hitting the chain faster
// than the limiter's interval. Local operations are never shed.
func WithLimiter(limiter *ratelimit.Limiter) ChainOption {
	return func(c *Chain) error {
		c.limiter = limiter
		return nil
	}
}

// WithChainLogger sets a custom logger.
// Default is slog.Default().
func WithChainLogger(logger *slog.Logger) ChainOption {
	return func(c *Chain) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
		return nil
	}
}

// NewChain creates a Chain over the given local backend.
func NewChain(local Backend, opts ...ChainOption) (*Chain, error) {
	if local == nil {
		return nil, ErrLocalBackendRequired
	}

	c := &Chain{
		local:  local,
		policy: retry.DefaultPolicy(),
		logger: slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	return c, nil
}

func (c *Chain) Name() string {
	return "chain"
}

// AddMessage writes to the local backend, then mirrors the message to
// the remote backend under the retry policy. A remote failure after
// retries is logged, not returned; the local write already succeeded.
func (c *Chain) AddMessage(ctx context.Context, username, text string, role core.Role) (*core.MemoryRecord, error) {
	record, err := c.local.AddMessage(ctx, username, text, role)
	if err != nil {
		return nil, err
	}

	if c.remote == nil || c.shedRemote(username) {
		return record, nil
	}

	err = c.policy.Do(ctx, func(ctx context.Context) error {
		_, err := c.remote.AddMessage(ctx, username, text, role)
		return err
	})
	if err != nil {
		c.logger.Warn("Remote write failed after retries, continuing local-only",
			"backend", c.remote.Name(), "user", username, "error", err)
	}

	return record, nil
}

// Context prefers the remote backend for similarity retrieval and
// falls back to the local backend when the remote fails, is shed,
// returns nothing, or the embedder is degraded.
func (c *Chain) Context(ctx context.Context, username, query string, k int) (string, error) {
	if c.remote != nil && query != "" && !c.embedderDegraded() && !c.shedRemote(username) {
		var text string
		err := c.policy.Do(ctx, func(ctx context.Context) error {
			var err error
			text, err = c.remote.Context(ctx, username, query, k)
			return err
		})
		if err != nil {
			c.logger.Warn("Remote retrieval failed after retries, falling back",
				"backend", c.remote.Name(), "user", username, "error", err)
		} else if text != "" {
			return text, nil
		}
	}

	return c.local.Context(ctx, username, query, k)
}

// DeleteUser forwards deletion to the remote backend if it supports
// it. The local log is append-only and is left intact.
func (c *Chain) DeleteUser(ctx context.Context, username string) error {
	if c.remote == nil {
		return nil
	}
	deleter, ok := c.remote.(UserDeleter)
	if !ok {
		return nil
	}
	return deleter.DeleteUser(ctx, username)
}

// embedderDegraded reports whether the chain's embedder produces
// vectors unfit for similarity ranking.
func (c *Chain) embedderDegraded() bool {
	return c.embedder != nil && c.embedder.Degraded()
}

// shedRemote reports whether remote calls for this user should be
// skipped, and stamps the user's last-call time otherwise.
func (c *Chain) shedRemote(username string) bool {
	if c.limiter == nil {
		return false
	}
	if c.limiter.IsLimited(username) {
		c.logger.Debug("Rate limited, skipping remote backend", "user", username)
		return true
	}
	c.limiter.Record(username)
	return false
}
