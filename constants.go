package astragateway

import "time"

// MicroSecTimeFormat - use for representing tx "time" in feed
const MicroSecTimeFormat = "2006-01-02 15:04:05.000000"

// NotificationChannelSize - is the size of feed subscription channels
const NotificationChannelSize = 1000

// SubscriptionDedupHistorySize - max seen hashes remembered per subscription before the oldest is evicted
const SubscriptionDedupHistorySize = 50000

// BlockFeedTimeout - max silence on the node's newHeads subscription before the feed is considered dead
const BlockFeedTimeout = 5 * time.Minute

// WSProviderTimeout - max duration to wait for a RPC response from the node's websockets endpoint
const WSProviderTimeout = 10 * time.Second

// MaxEthOnBlockCallRetries - max number of retries for eth RPC calls executed for ethOnBlock feed
const MaxEthOnBlockCallRetries = 2

// EthOnBlockCallRetrySleepInterval - duration of sleep between RPC call retry attempts
const EthOnBlockCallRetrySleepInterval = 10 * time.Millisecond

// MaxEthTxReceiptCallRetries - max number of retries for eth RPC calls executed for txReceipts feed
const MaxEthTxReceiptCallRetries = 5

// EthTxReceiptCallRetrySleepInterval - duration of sleep between RPC call retry attempts for txReceipts feed
const EthTxReceiptCallRetrySleepInterval = 2 * time.Millisecond

// TaskCompletedEvent - sent as notification on ethOnBlock feed after all RPC calls are completed
const TaskCompletedEvent = "TaskCompletedEvent"

// TaskDisabledEvent - sent as notification on ethOnBlock feed when a RPC call is disabled due to failure
const TaskDisabledEvent = "TaskDisabledEvent"

// Ethereum - string representation for the Ethereum protocol
const Ethereum = "Ethereum"
