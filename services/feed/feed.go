package feed

import (
	"fmt"
	"sync"
	"time"

	uuid "github.com/satori/go.uuid"
	log "github.com/sirupsen/logrus"
	"github.com/zhouzhuojie/conditions"

	astragateway "github.com/astranet-network/gateway"
	"github.com/astranet-network/gateway/metrics"
	"github.com/astranet-network/gateway/types"
)

// Feed fans notifications out to its subscribers. Publishing never blocks:
// a subscriber that cannot keep up with its notification channel is removed
// and its channel closed.
type Feed struct {
	name       types.FeedType
	networkNum types.NetworkNum

	lock             sync.Mutex
	idToSubscription map[string]*Subscription
	onRemove         func(subscriptionID string)

	log *log.Entry
}

// NewFeed creates a feed for the given name and blockchain network
func NewFeed(name types.FeedType, networkNum types.NetworkNum) *Feed {
	return &Feed{
		name:             name,
		networkNum:       networkNum,
		idToSubscription: make(map[string]*Subscription),
		log: log.WithFields(log.Fields{
			"component": "feed",
			"feed":      name,
			"network":   networkNum,
		}),
	}
}

// Name returns the feed name
func (f *Feed) Name() types.FeedType {
	return f.name
}

// NetworkNum returns the blockchain network the feed serves
func (f *Feed) NetworkNum() types.NetworkNum {
	return f.networkNum
}

// Key returns the registry key of the feed
func (f *Feed) Key() FeedKey {
	return FeedKey{Name: f.name, NetworkNum: f.networkNum}
}

// Subscribe attaches a new subscriber to the feed. Filters are compiled and
// dry-run here, so a bad filter string fails the subscription instead of
// surfacing on the first notification.
func (f *Feed) Subscribe(options SubscriptionOptions) (*Subscription, error) {
	var filter conditions.Expr
	if options.Filters != "" {
		var err error
		filter, err = ValidateFilters(options.Filters)
		if err != nil {
			return nil, err
		}
	}

	subscriptionID, _ := uuid.NewV4()
	subscription := &Subscription{
		ID:         subscriptionID.String(),
		feedName:   f.name,
		networkNum: f.networkNum,
		options:    options,
		filter:     filter,
		notify:     make(chan types.Notification, astragateway.NotificationChannelSize),
		openedAt:   time.Now(),
	}
	if !options.Duplicates {
		subscription.seenHashes = newHashHistory(astragateway.SubscriptionDedupHistorySize)
	}

	f.lock.Lock()
	f.idToSubscription[subscription.ID] = subscription
	f.lock.Unlock()

	f.log.Debugf("subscription %v added, filters: %q", subscription.ID, options.Filters)
	return subscription, nil
}

// Unsubscribe removes a subscriber and closes its notification channel
func (f *Feed) Unsubscribe(subscriptionID string) error {
	f.lock.Lock()
	subscription, ok := f.idToSubscription[subscriptionID]
	if ok {
		delete(f.idToSubscription, subscriptionID)
	}
	f.lock.Unlock()

	if !ok {
		return fmt.Errorf("%w: %v", ErrSubscriptionNotFound, subscriptionID)
	}

	subscription.close()
	f.log.Debugf("subscription %v closed after %v", subscriptionID, time.Since(subscription.openedAt))
	return nil
}

// Publish delivers a notification to every subscriber that accepts it.
// Notifications sourced from the blockchain node are skipped for subscribers
// that opted out, duplicates are skipped unless requested, and filters are
// evaluated against the notification's filterable fields.
func (f *Feed) Publish(notification types.Notification) {
	f.lock.Lock()
	defer f.lock.Unlock()

	for _, subscription := range f.idToSubscription {
		if !subscription.options.IncludeFromBlockchain && notification.Source().FromBlockchain() {
			continue
		}

		if subscription.seenHashes != nil && subscription.seenHashes.SeenOrAdd(notification.GetHash()) {
			continue
		}

		if subscription.filter != nil && !f.matchesFilter(subscription, notification) {
			continue
		}

		select {
		case subscription.notify <- notification:
			metrics.IncrFeedNotificationDelivered(uint32(f.networkNum), string(f.name))
		default:
			f.log.Errorf("unable to send %v notification to subscription %v without blocking, closing subscription", f.name, subscription.ID)
			metrics.IncrSubscriptionOverflow(uint32(f.networkNum), string(f.name))
			go f.removeOverflowed(subscription.ID)
		}
	}
}

// SubscriberCount returns the number of active subscriptions
func (f *Feed) SubscriberCount() int {
	f.lock.Lock()
	defer f.lock.Unlock()

	return len(f.idToSubscription)
}

func (f *Feed) matchesFilter(subscription *Subscription, notification types.Notification) bool {
	filterableFields := notification.Filters(subscription.filter.Args())
	if filterableFields == nil {
		return false
	}

	matches, err := conditions.Evaluate(subscription.filter, filterableFields)
	if err != nil {
		f.log.Errorf("error evaluating filters for subscription %v: %v", subscription.ID, err)
		return false
	}
	return matches
}

func (f *Feed) removeOverflowed(subscriptionID string) {
	if err := f.Unsubscribe(subscriptionID); err != nil {
		return
	}
	if f.onRemove != nil {
		f.onRemove(subscriptionID)
	}
}

func (f *Feed) close() {
	f.lock.Lock()
	defer f.lock.Unlock()

	for id, subscription := range f.idToSubscription {
		subscription.close()
		delete(f.idToSubscription, id)
	}
}
