package metrics

import (
	"fmt"
	"os"

	"github.com/DataDog/datadog-go/v5/statsd"
	log "github.com/sirupsen/logrus"
)

var statsdClient *statsd.Client

// RegisterStatsd creates a new global statsd client
func RegisterStatsd() error {
	host, port := os.Getenv("DD_AGENT_HOST"), os.Getenv("DD_DOGSTATSD_PORT")

	if host == "" || port == "" {
		log.Info("STATSD: statsd_host and statsd_port environment variables not set, ignoring metrics")
		return nil
	}

	addr := fmt.Sprintf("%s:%s", host, port)
	sd, err := statsd.New(addr)
	if err != nil {
		return fmt.Errorf("failed to create statsd client: %w", err)
	}

	statsdClient = sd
	return nil
}

const (
	sdNotificationsDelivered = "gateway.feed.notifications.delivered.count"
	sdSubscriptionOverflow   = "gateway.feed.subscriptions.overflow.count"
	sdSubscriptionsActive    = "gateway.feed.subscriptions.active.count"
	sdRPCRequestsTotal       = "gateway.api.requests.all.count"
	sdNodeReconnects         = "gateway.blockchain.ws.reconnects.count"
	sdNodeCallFailures       = "gateway.blockchain.rpc.failures.count"
	sdPendingTxFromLocal     = "gateway.feed.pending.from_local.count"
	sdPendingTxNoContents    = "gateway.feed.pending.missing_contents.count"
	sdPendingTxBelowFeeFloor = "gateway.feed.pending.below_fee_floor.count"
)

// IncrFeedNotificationDelivered increments number of notifications delivered for given network and feed name
func IncrFeedNotificationDelivered(networkNum uint32, feedName string) {
	tags := []string{
		tag(FeedName, feedName),
		tag(NetworkNum, networkNum),
	}
	Incr(sdNotificationsDelivered, tags)
}

// IncrSubscriptionOverflow increments number of subscriptions closed because their buffer filled up
func IncrSubscriptionOverflow(networkNum uint32, feedName string) {
	tags := []string{
		tag(FeedName, feedName),
		tag(NetworkNum, networkNum),
	}
	Incr(sdSubscriptionOverflow, tags)
}

// IncrRPCRequestsTotal increments total number of incoming rpc requests
func IncrRPCRequestsTotal(rpcMethod string) {
	Incr(sdRPCRequestsTotal, []string{tag(RPCMethod, rpcMethod)})
}

// IncrNodeReconnect increments number of reconnects to the blockchain node websocket endpoint
func IncrNodeReconnect(endpoint string) {
	Incr(sdNodeReconnects, []string{tag(RemoteEndpoint, endpoint)})
}

// IncrNodeCallFailure increments number of failed RPC calls to the blockchain node
func IncrNodeCallFailure(endpoint string, rpcMethod string) {
	tags := []string{
		tag(RemoteEndpoint, endpoint),
		tag(RPCMethod, rpcMethod),
	}
	Incr(sdNodeCallFailures, tags)
}

// IncrPendingTxFromLocal increments number of pending transactions first seen on the local blockchain node
func IncrPendingTxFromLocal(networkNum uint32) {
	Incr(sdPendingTxFromLocal, []string{tag(NetworkNum, networkNum)})
}

// IncrPendingTxMissingContents increments number of node-announced transactions whose contents could not be fetched
func IncrPendingTxMissingContents(networkNum uint32) {
	Incr(sdPendingTxNoContents, []string{tag(NetworkNum, networkNum)})
}

// IncrPendingTxBelowFeeFloor increments number of node-announced transactions dropped for insufficient gas price
func IncrPendingTxBelowFeeFloor(networkNum uint32) {
	Incr(sdPendingTxBelowFeeFloor, []string{tag(NetworkNum, networkNum)})
}

// GaugeActiveSubscriptions measures number of active feed subscriptions at the moment
func GaugeActiveSubscriptions(count float64) {
	if statsdClient == nil {
		return
	}

	if err := statsdClient.Gauge(sdSubscriptionsActive, count, nil, 1); err != nil {
		log.Errorf("Failed to update metric %s: %v", sdSubscriptionsActive, err)
	}
}

// Incr serves as a generic func for incrementing given metric
func Incr(name string, tags []string) {
	if statsdClient == nil {
		return
	}

	go func() {
		if err := statsdClient.Incr(name, tags, 1); err != nil {
			log.Errorf("Failed to update metric %s: %v", name, err)
		}
	}()
}

func tag(name string, val any) string {
	return fmt.Sprintf("%s:%v", name, val)
}
