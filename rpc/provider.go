package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	astragateway "github.com/astranet-network/gateway"
	"github.com/astranet-network/gateway/jsonrpc"
	"github.com/astranet-network/gateway/metrics"
	"github.com/astranet-network/gateway/utils"
)

// Provider errors
var (
	// ErrConnectionClosed is returned for operations attempted while the websocket connection is down
	ErrConnectionClosed = errors.New("destination connection is closed")

	// ErrSubscriptionTimeout is returned when no notification arrived within the requested window
	ErrSubscriptionTimeout = errors.New("no new notification was received within the timeout")
)

const (
	subscribeMethod          = "eth_subscribe"
	unsubscribeMethod        = "eth_unsubscribe"
	subscriptionNotification = "eth_subscription"

	redialInterval = time.Second
)

// Provider is a JSON-RPC client over a websocket connection. Responses are
// correlated to requests by ID, so calls may be issued concurrently and
// responses may arrive in any order. Subscription notifications are queued
// per subscription ID.
type Provider struct {
	addr    string
	timeout time.Duration
	clock   utils.Clock
	log     *log.Entry

	requestID uint64

	lock              sync.Mutex
	conn              *websocket.Conn
	open              bool
	closeCh           chan struct{}
	pending           map[string]chan *jsonrpc.Response
	subscribeRequests map[string]struct{}
	subscriptions     map[string]chan json.RawMessage
}

// NewProvider returns a provider for the given websocket address. The provider
// is not connected until Dial is called.
func NewProvider(addr string) *Provider {
	return &Provider{
		addr:    addr,
		timeout: astragateway.WSProviderTimeout,
		clock:   utils.RealClock{},
		log: log.WithFields(log.Fields{
			"component":  "wsProvider",
			"remoteAddr": addr,
		}),
	}
}

// Addr returns the websocket connection address
func (p *Provider) Addr() string { return p.addr }

// IsOpen indicates whether the websocket connection is active
func (p *Provider) IsOpen() bool {
	p.lock.Lock()
	defer p.lock.Unlock()

	return p.open
}

// Dial establishes the websocket connection and starts the read loop.
// Subscriptions from a previous connection are discarded, callers are
// expected to resubscribe.
func (p *Provider) Dial(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, p.addr, nil)
	if err != nil {
		return fmt.Errorf("failed to dial %v: %w", p.addr, err)
	}

	p.lock.Lock()
	p.conn = conn
	p.open = true
	p.closeCh = make(chan struct{})
	p.pending = make(map[string]chan *jsonrpc.Response)
	p.subscribeRequests = make(map[string]struct{})
	p.subscriptions = make(map[string]chan json.RawMessage)
	closeCh := p.closeCh
	p.lock.Unlock()

	p.log.Debug("connection was successfully established")
	go p.readLoop(conn, closeCh)
	return nil
}

// Reconnect drops the current connection and redials until it succeeds or the
// context is canceled
func (p *Provider) Reconnect(ctx context.Context) error {
	_ = p.Close()

	for {
		err := p.Dial(ctx)
		if err == nil {
			metrics.IncrNodeReconnect(p.addr)
			return nil
		}
		p.log.Warnf("failed to redial: %v, retrying...", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		p.clock.Sleep(redialInterval)
	}
}

// Close terminates the websocket connection. Pending calls and notification
// readers are released with ErrConnectionClosed.
func (p *Provider) Close() error {
	p.lock.Lock()
	defer p.lock.Unlock()

	if !p.open {
		return nil
	}

	p.open = false
	close(p.closeCh)
	return p.conn.Close()
}

// Call issues a JSON-RPC request and blocks until its response arrives, the
// connection drops or the context expires
func (p *Provider) Call(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	return p.call(ctx, method, params, false)
}

func (p *Provider) call(ctx context.Context, method string, params interface{}, subscribe bool) (json.RawMessage, error) {
	requestID := strconv.FormatUint(atomic.AddUint64(&p.requestID, 1), 10)
	responseCh := make(chan *jsonrpc.Response, 1)

	p.lock.Lock()
	if !p.open {
		p.lock.Unlock()
		return nil, ErrConnectionClosed
	}
	closeCh := p.closeCh
	p.pending[requestID] = responseCh
	if subscribe {
		p.subscribeRequests[requestID] = struct{}{}
	}
	err := p.conn.WriteJSON(jsonrpc.NewRequest(requestID, method, params))
	p.lock.Unlock()

	if err != nil {
		p.forgetPending(requestID)
		return nil, fmt.Errorf("failed to write %v request: %w", method, err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	select {
	case response := <-responseCh:
		if response.Error != nil {
			return nil, response.Error
		}
		return response.Result, nil
	case <-closeCh:
		p.forgetPending(requestID)
		return nil, ErrConnectionClosed
	case <-ctx.Done():
		p.forgetPending(requestID)
		return nil, ctx.Err()
	}
}

// Subscribe opens an Ethereum subscription for the given feed and returns the
// subscription ID assigned by the node. The notification queue is registered
// by the read loop together with the subscribe response, so notifications
// arriving right after the response are never lost.
func (p *Provider) Subscribe(ctx context.Context, feedName string, args ...interface{}) (string, error) {
	params := append([]interface{}{feedName}, args...)
	result, err := p.call(ctx, subscribeMethod, params, true)
	if err != nil {
		return "", fmt.Errorf("failed to subscribe to feed %v: %w", feedName, err)
	}

	var subscriptionID string
	if err = json.Unmarshal(result, &subscriptionID); err != nil {
		return "", fmt.Errorf("unexpected subscribe result %v: %v", string(result), err)
	}

	return subscriptionID, nil
}

// Unsubscribe closes the Ethereum subscription and drops any queued notifications
func (p *Provider) Unsubscribe(ctx context.Context, subscriptionID string) error {
	p.lock.Lock()
	delete(p.subscriptions, subscriptionID)
	p.lock.Unlock()

	_, err := p.Call(ctx, unsubscribeMethod, []interface{}{subscriptionID})
	return err
}

// GetNextSubscriptionNotificationByID blocks until the next notification for
// the subscription arrives
func (p *Provider) GetNextSubscriptionNotificationByID(ctx context.Context, subscriptionID string) (json.RawMessage, error) {
	notifyCh, closeCh, err := p.subscriptionChannel(subscriptionID)
	if err != nil {
		return nil, err
	}

	select {
	case notification := <-notifyCh:
		return notification, nil
	case <-closeCh:
		return nil, ErrConnectionClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// GetNextSubscriptionNotificationByIDTimeout is like
// GetNextSubscriptionNotificationByID, but gives up after the timeout
func (p *Provider) GetNextSubscriptionNotificationByIDTimeout(subscriptionID string, timeout time.Duration) (json.RawMessage, error) {
	notifyCh, closeCh, err := p.subscriptionChannel(subscriptionID)
	if err != nil {
		return nil, err
	}

	timer := p.clock.Timer(timeout)
	defer timer.Stop()

	select {
	case notification := <-notifyCh:
		return notification, nil
	case <-closeCh:
		return nil, ErrConnectionClosed
	case <-timer.Alert():
		return nil, ErrSubscriptionTimeout
	}
}

func (p *Provider) subscriptionChannel(subscriptionID string) (chan json.RawMessage, chan struct{}, error) {
	p.lock.Lock()
	defer p.lock.Unlock()

	notifyCh, ok := p.subscriptions[subscriptionID]
	if !ok {
		return nil, nil, fmt.Errorf("unknown subscription %v", subscriptionID)
	}
	return notifyCh, p.closeCh, nil
}

func (p *Provider) forgetPending(requestID string) {
	p.lock.Lock()
	defer p.lock.Unlock()

	delete(p.pending, requestID)
	delete(p.subscribeRequests, requestID)
}

func (p *Provider) readLoop(conn *websocket.Conn, closeCh chan struct{}) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			p.markClosed(conn, closeCh, err)
			return
		}

		var response jsonrpc.Response
		if err = json.Unmarshal(message, &response); err != nil {
			p.log.Warnf("discarding message that couldn't be parsed: %v", err)
			continue
		}

		switch {
		case response.ID != "":
			p.deliverResponse(&response)
		case response.Method == subscriptionNotification:
			p.deliverNotification(&response)
		default:
			p.log.Tracef("discarding unexpected message: %v", string(message))
		}
	}
}

func (p *Provider) deliverResponse(response *jsonrpc.Response) {
	p.lock.Lock()
	responseCh, ok := p.pending[response.ID]
	delete(p.pending, response.ID)
	if _, isSubscribe := p.subscribeRequests[response.ID]; isSubscribe {
		delete(p.subscribeRequests, response.ID)
		if response.Error == nil {
			var subscriptionID string
			if json.Unmarshal(response.Result, &subscriptionID) == nil {
				p.subscriptions[subscriptionID] = make(chan json.RawMessage, astragateway.NotificationChannelSize)
			}
		}
	}
	p.lock.Unlock()

	if !ok {
		p.log.Debugf("no pending request for response ID %v", response.ID)
		return
	}
	responseCh <- response
}

func (p *Provider) deliverNotification(response *jsonrpc.Response) {
	var params jsonrpc.SubscriptionParams
	if err := json.Unmarshal(response.Params, &params); err != nil {
		p.log.Warnf("discarding notification that couldn't be parsed: %v", err)
		return
	}

	p.lock.Lock()
	notifyCh, ok := p.subscriptions[params.Subscription]
	p.lock.Unlock()

	if !ok {
		p.log.Debugf("discarding notification for unknown subscription %v", params.Subscription)
		return
	}

	select {
	case notifyCh <- params.Result:
	default:
		p.log.Warnf("notification queue for subscription %v is full, discarding", params.Subscription)
	}
}

func (p *Provider) markClosed(conn *websocket.Conn, closeCh chan struct{}, err error) {
	p.lock.Lock()
	defer p.lock.Unlock()

	if p.open && p.closeCh == closeCh {
		p.open = false
		close(closeCh)
		_ = conn.Close()
		p.log.Debugf("connection was closed: %v", err)
	}
}
