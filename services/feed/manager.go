package feed

import (
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/astranet-network/gateway/metrics"
	"github.com/astranet-network/gateway/types"
)

// FeedKey identifies a feed by name and blockchain network
type FeedKey struct {
	Name       types.FeedType
	NetworkNum types.NetworkNum
}

// SubscriptionModel describes an active subscription for introspection
type SubscriptionModel struct {
	SubscriptionID string
	Feed           types.FeedType
	NetworkNum     types.NetworkNum
	Options        SubscriptionOptions
}

// Manager is the registry of feeds. It routes publishes and subscriptions by
// feed key and tracks subscription IDs across all feeds.
type Manager struct {
	lock              sync.RWMutex
	feeds             map[FeedKey]*Feed
	subscriptionToKey map[string]FeedKey

	log *log.Entry
}

// NewManager creates an empty feed registry
func NewManager() *Manager {
	return &Manager{
		feeds:             make(map[FeedKey]*Feed),
		subscriptionToKey: make(map[string]FeedKey),
		log:               log.WithField("component", "feedManager"),
	}
}

// RegisterFeed adds a feed to the registry
func (m *Manager) RegisterFeed(feed *Feed) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	key := feed.Key()
	if _, ok := m.feeds[key]; ok {
		return fmt.Errorf("%w: %v network %v", ErrDuplicateFeed, key.Name, key.NetworkNum)
	}

	feed.onRemove = m.forgetSubscription
	m.feeds[key] = feed
	m.log.Debugf("feed %v registered for network %v", key.Name, key.NetworkNum)
	return nil
}

// DeregisterFeed removes a feed, closing all of its subscriptions
func (m *Manager) DeregisterFeed(key FeedKey) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	feed, ok := m.feeds[key]
	if !ok {
		return fmt.Errorf("%w: %v network %v", ErrUnknownFeed, key.Name, key.NetworkNum)
	}

	feed.close()
	delete(m.feeds, key)
	for id, subscriptionKey := range m.subscriptionToKey {
		if subscriptionKey == key {
			delete(m.subscriptionToKey, id)
		}
	}

	metrics.GaugeActiveSubscriptions(float64(len(m.subscriptionToKey)))
	m.log.Debugf("feed %v deregistered for network %v", key.Name, key.NetworkNum)
	return nil
}

// Subscribe attaches a subscriber to the feed identified by key
func (m *Manager) Subscribe(key FeedKey, options SubscriptionOptions) (*Subscription, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	feed, ok := m.feeds[key]
	if !ok {
		return nil, fmt.Errorf("%w: %v network %v", ErrUnknownFeed, key.Name, key.NetworkNum)
	}

	subscription, err := feed.Subscribe(options)
	if err != nil {
		return nil, err
	}

	m.subscriptionToKey[subscription.ID] = key
	metrics.GaugeActiveSubscriptions(float64(len(m.subscriptionToKey)))
	return subscription, nil
}

// Unsubscribe removes a subscription by ID, whichever feed it belongs to
func (m *Manager) Unsubscribe(subscriptionID string) error {
	m.lock.Lock()
	key, ok := m.subscriptionToKey[subscriptionID]
	if ok {
		delete(m.subscriptionToKey, subscriptionID)
	}
	feed := m.feeds[key]
	metrics.GaugeActiveSubscriptions(float64(len(m.subscriptionToKey)))
	m.lock.Unlock()

	if !ok || feed == nil {
		return fmt.Errorf("%w: %v", ErrSubscriptionNotFound, subscriptionID)
	}

	return feed.Unsubscribe(subscriptionID)
}

// SubscriptionExists indicates whether the subscription ID is active
func (m *Manager) SubscriptionExists(subscriptionID string) bool {
	m.lock.RLock()
	defer m.lock.RUnlock()

	_, ok := m.subscriptionToKey[subscriptionID]
	return ok
}

// Notify routes a notification to the feed matching its type and network.
// Publishing to a feed that was never registered is a no-op.
func (m *Manager) Notify(networkNum types.NetworkNum, notification types.Notification) {
	m.Publish(FeedKey{Name: notification.NotificationType(), NetworkNum: networkNum}, notification)
}

// Publish delivers a notification to the feed identified by key.
// Publishing to a feed that was never registered is a no-op.
func (m *Manager) Publish(key FeedKey, notification types.Notification) {
	m.lock.RLock()
	feed, ok := m.feeds[key]
	m.lock.RUnlock()

	if !ok {
		return
	}

	feed.Publish(notification)
}

// Subscriptions returns a snapshot of all active subscriptions
func (m *Manager) Subscriptions() []SubscriptionModel {
	m.lock.RLock()
	defer m.lock.RUnlock()

	subscriptions := make([]SubscriptionModel, 0, len(m.subscriptionToKey))
	for _, feed := range m.feeds {
		feed.lock.Lock()
		for _, subscription := range feed.idToSubscription {
			subscriptions = append(subscriptions, SubscriptionModel{
				SubscriptionID: subscription.ID,
				Feed:           subscription.feedName,
				NetworkNum:     subscription.networkNum,
				Options:        subscription.options,
			})
		}
		feed.lock.Unlock()
	}
	return subscriptions
}

// CloseAllSubscriptions closes every subscription on every feed, leaving the
// feeds themselves registered
func (m *Manager) CloseAllSubscriptions() {
	m.lock.Lock()
	defer m.lock.Unlock()

	for _, feed := range m.feeds {
		feed.close()
	}
	m.subscriptionToKey = make(map[string]FeedKey)
	metrics.GaugeActiveSubscriptions(0)
}

func (m *Manager) forgetSubscription(subscriptionID string) {
	m.lock.Lock()
	defer m.lock.Unlock()

	delete(m.subscriptionToKey, subscriptionID)
	metrics.GaugeActiveSubscriptions(float64(len(m.subscriptionToKey)))
}
