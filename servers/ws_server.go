package servers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
	"github.com/sourcegraph/jsonrpc2"
	websocketjsonrpc2 "github.com/sourcegraph/jsonrpc2/websocket"

	"github.com/astranet-network/gateway/blockchain"
	"github.com/astranet-network/gateway/services/feed"
	"github.com/astranet-network/gateway/types"
)

var upgrader = websocket.Upgrader{}

// WSServer serves the gateway's JSON-RPC interface over websockets. Every
// client connection gets its own handler, a dropped connection releases all
// subscriptions the handler owns.
type WSServer struct {
	host       string
	port       int
	feeds      *feed.Manager
	nodeWS     blockchain.WSProvider
	txListener blockchain.TxListener
	networkNum types.NetworkNum
	server     *http.Server
	log        *log.Entry
}

// NewWSServer initializes the gateway websocket server. nodeWS and txListener
// may be nil, which disables the feeds and methods that depend on them.
func NewWSServer(host string, port int, feeds *feed.Manager, nodeWS blockchain.WSProvider, txListener blockchain.TxListener, networkNum types.NetworkNum) *WSServer {
	return &WSServer{
		host:       host,
		port:       port,
		feeds:      feeds,
		nodeWS:     nodeWS,
		txListener: txListener,
		networkNum: networkNum,
		log: log.WithFields(log.Fields{
			"component": "wsServer",
		}),
	}
}

// Handler returns the http handler serving websocket connections on /ws
func (s *WSServer) Handler() http.Handler {
	handler := http.NewServeMux()
	handler.HandleFunc("/ws", s.handleConnection)
	return handler
}

// Run starts the websocket server and blocks until it is shut down
func (s *WSServer) Run() error {
	listenAddr := fmt.Sprintf("%v:%v", s.host, s.port)
	s.server = &http.Server{
		Addr:    listenAddr,
		Handler: s.Handler(),
	}

	s.log.Infof("starting websocket server on %v", listenAddr)
	err := s.server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("could not listen on %v: %v", listenAddr, err)
	}
	return nil
}

// Shutdown closes all feed subscriptions and stops the server
func (s *WSServer) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down websocket server")
	s.feeds.CloseAllSubscriptions()
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *WSServer) handleConnection(w http.ResponseWriter, r *http.Request) {
	s.log.Debugf("new websocket connection from %v", r.RemoteAddr)
	connection, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Errorf("error upgrading HTTP server connection to websocket protocol: %v", err)
		return
	}

	handler := jsonrpc2.AsyncHandler(&handlerObj{
		feeds:         s.feeds,
		nodeWS:        s.nodeWS,
		txListener:    s.txListener,
		networkNum:    s.networkNum,
		remoteAddress: r.RemoteAddr,
		log: log.WithFields(log.Fields{
			"component":  "handlerObj",
			"remoteAddr": r.RemoteAddr,
		}),
	})
	jc := jsonrpc2.NewConn(r.Context(), websocketjsonrpc2.NewObjectStream(connection), handler)
	<-jc.DisconnectNotify()

	if err = connection.Close(); err != nil {
		s.log.Debugf("error closing connection: %v", err)
	}
}
