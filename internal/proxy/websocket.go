// Package proxy relays a debugging client's websocket to a session's CDP
// endpoint.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/shehryarbajwa/playwright-lab/internal/errs"
	"github.com/shehryarbajwa/playwright-lab/internal/obs"
	"github.com/shehryarbajwa/playwright-lab/pkg/models"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// SessionGetter finds sessions. *session.Manager satisfies it.
type SessionGetter interface {
	GetSession(id string) (*models.Session, error)
}

type Server struct {
	sessions    SessionGetter
	dialTimeout time.Duration
	log         *slog.Logger
}

func NewServer(sessions SessionGetter) *Server {
	return &Server{
		sessions:    sessions,
		dialTimeout: 10 * time.Second,
		log:         obs.Pkg("proxy"),
	}
}

// Target returns the CDP endpoint of a running session.
func (s *Server) Target(sessionID string) (string, error) {
	sess, err := s.sessions.GetSession(sessionID)
	if err != nil {
		return "", err
	}
	if sess.Status != models.StatusRunning {
		return "", errs.New(errs.FailedPrecondition, "session is not running")
	}
	if sess.ConnectURL == "" {
		return "", errs.New(errs.FailedPrecondition, "session has no CDP endpoint; use the docker backend")
	}
	return sess.ConnectURL, nil
}

// HandleDebugConnection upgrades the request and relays frames both ways
// until either side closes.
func (s *Server) HandleDebugConnection(w http.ResponseWriter, r *http.Request, sessionID string) {
	target, err := s.Target(sessionID)
	if err != nil {
		status, msg := errs.Reply(err)
		http.Error(w, msg, status)
		return
	}

	log := s.log.With("session_id", obs.ShortID(sessionID))

	clientConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer clientConn.Close()

	ctx, cancel := context.WithTimeout(r.Context(), s.dialTimeout)
	defer cancel()

	// browserless/chrome accepts CDP on its root websocket.
	chromeConn, _, err := websocket.DefaultDialer.DialContext(ctx, target, nil)
	if err != nil {
		log.Error("failed to connect to browser", "target", target, "error", err)
		clientConn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, fmt.Sprintf("connecting to browser: %v", err)))
		return
	}
	defer chromeConn.Close()

	log.Info("debug client connected", "target", target)

	errChan := make(chan error, 2)
	go func() {
		errChan <- relay(clientConn, chromeConn)
	}()
	go func() {
		errChan <- relay(chromeConn, clientConn)
	}()

	err = <-errChan
	if err != nil && !isNormalClose(err) {
		log.Warn("relay stopped", "error", err)
	}
	log.Info("debug client disconnected")
}

func relay(src, dst *websocket.Conn) error {
	for {
		messageType, message, err := src.ReadMessage()
		if err != nil {
			var ce *websocket.CloseError
			if errors.As(err, &ce) {
				dst.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(ce.Code, ce.Text))
			}
			return err
		}

		if err := dst.WriteMessage(messageType, message); err != nil {
			return err
		}
	}
}

func isNormalClose(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived)
}
