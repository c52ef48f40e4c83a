package cache

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/skozubek/startsnap/internal/algorand"
)

// CachedNode serves account lookups from a BalanceCache, falling through to the node on miss.
// Cache failures are logged and never fail the lookup.
type CachedNode struct {
	algorand.Node
	cache  BalanceCache
	logger logrus.FieldLogger
}

// NewCachedNode wraps node with cache.
func NewCachedNode(node algorand.Node, cache BalanceCache, logger logrus.FieldLogger) *CachedNode {
	if cache == nil {
		cache = NoopCache{}
	}
	return &CachedNode{Node: node, cache: cache, logger: logger.WithField("component", "balance_cache")}
}

func (n *CachedNode) AccountInfo(ctx context.Context, address string) (algorand.Account, error) {
	acct, ok, err := n.cache.Get(ctx, address)
	if err != nil {
		n.logger.WithError(err).WithField("address", address).Warn("balance cache read failed")
	} else if ok {
		return acct, nil
	}

	acct, err = n.Node.AccountInfo(ctx, address)
	if err != nil {
		return algorand.Account{}, err
	}
	if err := n.cache.Set(ctx, acct); err != nil {
		n.logger.WithError(err).WithField("address", address).Warn("balance cache write failed")
	}
	return acct, nil
}

// Invalidate forwards to the underlying cache.
func (n *CachedNode) Invalidate(ctx context.Context, addresses ...string) error {
	return n.cache.Invalidate(ctx, addresses...)
}
