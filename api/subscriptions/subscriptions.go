// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package subscriptions

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/vechain/dispenser/api/utils"
	"github.com/vechain/dispenser/bridge"
	"github.com/vechain/dispenser/log"
	"github.com/vechain/dispenser/sim"
)

var logger = log.WithContext("pkg", "subscriptions")

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 7 / 10
)

// RelayMessage is pushed to subscribers after every relay round that moved something.
type RelayMessage struct {
	Delivered  int   `json:"delivered"`
	Failed     int   `json:"failed"`
	Duplicates int   `json:"duplicates"`
	Timestamp  int64 `json:"timestamp"`
}

// Subscriptions streams relay reports over websocket connections.
type Subscriptions struct {
	upgrader  *websocket.Upgrader
	listeners map[chan *RelayMessage]struct{}
	mu        sync.RWMutex
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

func New(net *sim.Network, allowedOrigins []string) *Subscriptions {
	s := &Subscriptions{
		upgrader: &websocket.Upgrader{
			EnableCompression: true,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				origin = strings.ToLower(origin)
				for _, allowed := range allowedOrigins {
					if allowed == "*" || allowed == origin {
						return true
					}
				}
				return false
			},
		},
		listeners: make(map[chan *RelayMessage]struct{}),
		done:      make(chan struct{}),
	}

	reportCh := make(chan *bridge.Report)
	sub := net.SubscribeRelays(reportCh)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer sub.Unsubscribe()
		s.dispatchLoop(reportCh, sub.Err())
	}()
	return s
}

func (s *Subscriptions) subscribe(ch chan *RelayMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.listeners[ch] = struct{}{}
}

func (s *Subscriptions) unsubscribe(ch chan *RelayMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.listeners, ch)
}

func (s *Subscriptions) dispatchLoop(reportCh <-chan *bridge.Report, errCh <-chan error) {
	for {
		select {
		case report := <-reportCh:
			msg := &RelayMessage{
				Delivered:  report.Delivered,
				Failed:     report.Failed,
				Duplicates: report.Duplicates,
				Timestamp:  time.Now().Unix(),
			}
			s.mu.RLock()
			for lsn := range s.listeners {
				select {
				case lsn <- msg:
				default: // slow subscribers miss reports
				}
			}
			s.mu.RUnlock()
		case <-errCh:
			return
		case <-s.done:
			return
		}
	}
}

func (s *Subscriptions) handleSubscribeRelays(w http.ResponseWriter, req *http.Request) error {
	conn, err := s.upgrader.Upgrade(w, req, nil)
	if err != nil {
		// the upgrader has already replied to the client
		logger.Debug("upgrade failed", "err", err)
		return nil
	}

	s.wg.Add(1)
	defer s.wg.Done()
	defer conn.Close()

	ch := make(chan *RelayMessage, 16)
	s.subscribe(ch)
	defer s.unsubscribe(ch)

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					logger.Debug("websocket read", "err", err)
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg := <-ch:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				return nil
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return nil
			}
		case <-closed:
			return nil
		case <-s.done:
			msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server closing")
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
			return nil
		}
	}
}

// Close disconnects every subscriber and stops dispatching.
func (s *Subscriptions) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
	s.wg.Wait()
}

func (s *Subscriptions) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/relays").
		Methods(http.MethodGet).
		Name("subscriptions_relays").
		HandlerFunc(utils.WrapHandlerFunc(s.handleSubscribeRelays))
}
