package feed

import (
	"sync"
	"time"

	"github.com/zhouzhuojie/conditions"

	"github.com/astranet-network/gateway/types"
)

// SubscriptionOptions - options of a feed subscriber
type SubscriptionOptions struct {
	Include               []string            `json:"include"`
	Filters               string              `json:"filters"`
	Duplicates            bool                `json:"duplicates"`
	IncludeFromBlockchain bool                `json:"include_from_blockchain"`
	CallParams            []map[string]string `json:"call_params"`
}

// DefaultSubscriptionOptions returns the options applied when a subscriber omits them
func DefaultSubscriptionOptions() SubscriptionOptions {
	return SubscriptionOptions{
		Duplicates:            false,
		IncludeFromBlockchain: true,
	}
}

// Subscription represents a single subscriber attached to a feed. Notifications
// are delivered on a bounded channel, closed when the subscription ends.
type Subscription struct {
	ID         string
	feedName   types.FeedType
	networkNum types.NetworkNum
	options    SubscriptionOptions
	filter     conditions.Expr
	notify     chan types.Notification
	seenHashes *hashHistory
	openedAt   time.Time
	closeOnce  sync.Once
}

// Notifications returns the channel the subscriber reads notifications from.
// The channel is closed when the subscription is removed from its feed.
func (s *Subscription) Notifications() <-chan types.Notification {
	return s.notify
}

// FeedName returns the feed this subscription is attached to
func (s *Subscription) FeedName() types.FeedType {
	return s.feedName
}

// NetworkNum returns the blockchain network of the subscription's feed
func (s *Subscription) NetworkNum() types.NetworkNum {
	return s.networkNum
}

// Options returns the options the subscriber provided at subscribe time
func (s *Subscription) Options() SubscriptionOptions {
	return s.options
}

// Filter returns the compiled filter expression, nil when no filters were set
func (s *Subscription) Filter() conditions.Expr {
	return s.filter
}

func (s *Subscription) close() {
	s.closeOnce.Do(func() {
		close(s.notify)
	})
}

// hashHistory is a bounded set of notification hashes already delivered on a
// subscription. Once capacity is reached the oldest hash is evicted, so very
// old duplicates may be delivered again.
type hashHistory struct {
	capacity int
	order    []string
	seen     map[string]struct{}
}

func newHashHistory(capacity int) *hashHistory {
	return &hashHistory{
		capacity: capacity,
		seen:     make(map[string]struct{}),
	}
}

// SeenOrAdd returns whether the hash was delivered before, recording it if not.
// Callers hold the feed lock, so no internal locking is needed.
func (h *hashHistory) SeenOrAdd(hash string) bool {
	if _, ok := h.seen[hash]; ok {
		return true
	}

	if len(h.order) >= h.capacity {
		oldest := h.order[0]
		h.order = h.order[1:]
		delete(h.seen, oldest)
	}

	h.order = append(h.order, hash)
	h.seen[hash] = struct{}{}
	return false
}
