package feed

import (
	"strings"
	"testing"
	"time"

	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	astragateway "github.com/astranet-network/gateway"
	"github.com/astranet-network/gateway/test/bxmock"
	"github.com/astranet-network/gateway/types"
)

func txNotification(t *testing.T, nonce uint64) (*types.NewTransactionNotification, string) {
	t.Helper()

	ethTx, bxTx := bxmock.NewBxTransaction(ethtypes.LegacyTxType, nonce, types.AllNetworkNum, types.TFLocalRegion)
	notification := types.CreateNewTransactionNotification(bxTx)
	require.NoError(t, notification.MakeBlockchainTransaction())

	return notification, strings.ToLower(ethTx.To().Hex())
}

func readNotification(t *testing.T, subscription *Subscription) types.Notification {
	t.Helper()

	select {
	case notification, ok := <-subscription.Notifications():
		require.True(t, ok, "notification channel closed")
		return notification
	case <-time.After(time.Second):
		require.Fail(t, "no notification delivered")
		return nil
	}
}

func assertNoNotification(t *testing.T, subscription *Subscription) {
	t.Helper()

	select {
	case notification := <-subscription.Notifications():
		require.Fail(t, "unexpected notification", "%v", notification)
	default:
	}
}

func TestFeedPublishRespectsFilters(t *testing.T) {
	notification, to := txNotification(t, 1)
	f := NewFeed(types.NewTxsFeed, types.AllNetworkNum)

	options := DefaultSubscriptionOptions()
	options.Filters = "to = " + to
	matching, err := f.Subscribe(options)
	require.NoError(t, err)

	options = DefaultSubscriptionOptions()
	options.Filters = "to = 0x1111111111111111111111111111111111111111"
	nonMatching, err := f.Subscribe(options)
	require.NoError(t, err)

	f.Publish(notification)

	delivered := readNotification(t, matching)
	assert.Equal(t, notification.GetHash(), delivered.GetHash())
	assertNoNotification(t, nonMatching)
}

func TestFeedRejectsBadFilters(t *testing.T) {
	f := NewFeed(types.NewTxsFeed, types.AllNetworkNum)

	options := DefaultSubscriptionOptions()
	options.Filters = "value > = 10000"
	_, err := f.Subscribe(options)
	assert.ErrorIs(t, err, ErrInvalidFilterSyntax)
	assert.Equal(t, 0, f.SubscriberCount())
}

func TestFeedDeduplicatesByHash(t *testing.T) {
	notification, _ := txNotification(t, 1)
	f := NewFeed(types.NewTxsFeed, types.AllNetworkNum)

	deduped, err := f.Subscribe(DefaultSubscriptionOptions())
	require.NoError(t, err)

	options := DefaultSubscriptionOptions()
	options.Duplicates = true
	withDuplicates, err := f.Subscribe(options)
	require.NoError(t, err)

	f.Publish(notification)
	f.Publish(notification)

	readNotification(t, deduped)
	assertNoNotification(t, deduped)

	readNotification(t, withDuplicates)
	readNotification(t, withDuplicates)
}

func TestFeedSkipsBlockchainSourcedNotifications(t *testing.T) {
	notification, _ := txNotification(t, 1)
	notification.SetSource(types.FeedSourceBlockchainSocket)

	f := NewFeed(types.PendingTxsFeed, types.AllNetworkNum)

	options := DefaultSubscriptionOptions()
	options.IncludeFromBlockchain = false
	optedOut, err := f.Subscribe(options)
	require.NoError(t, err)

	optedIn, err := f.Subscribe(DefaultSubscriptionOptions())
	require.NoError(t, err)

	f.Publish(notification)

	assertNoNotification(t, optedOut)
	readNotification(t, optedIn)

	fromBDN, _ := txNotification(t, 2)
	f.Publish(fromBDN)
	readNotification(t, optedOut)
}

func TestFeedClosesSlowSubscription(t *testing.T) {
	notification, _ := txNotification(t, 1)
	f := NewFeed(types.NewTxsFeed, types.AllNetworkNum)

	options := DefaultSubscriptionOptions()
	options.Duplicates = true
	subscription, err := f.Subscribe(options)
	require.NoError(t, err)

	for i := 0; i < astragateway.NotificationChannelSize+1; i++ {
		f.Publish(notification)
	}

	assert.Eventually(t, func() bool {
		return f.SubscriberCount() == 0
	}, time.Second, 10*time.Millisecond)

	// drain until the closed channel is observed
	assert.Eventually(t, func() bool {
		for {
			select {
			case _, ok := <-subscription.Notifications():
				if !ok {
					return true
				}
			default:
				return false
			}
		}
	}, time.Second, 10*time.Millisecond)
}

func TestHashHistoryEviction(t *testing.T) {
	history := newHashHistory(2)

	assert.False(t, history.SeenOrAdd("a"))
	assert.True(t, history.SeenOrAdd("a"))
	assert.False(t, history.SeenOrAdd("b"))
	assert.False(t, history.SeenOrAdd("c"))

	// "a" was evicted once capacity was exceeded
	assert.False(t, history.SeenOrAdd("a"))
	assert.True(t, history.SeenOrAdd("c"))
}
