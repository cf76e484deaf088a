package handlers

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sbilibin2017/gw-login/internal/logger"
	"github.com/sbilibin2017/gw-login/internal/models"
	"github.com/sbilibin2017/gw-login/internal/submitter"
)

// Client message types of the live form protocol.
const (
	LiveSetEmail    = "set_email"
	LiveSetPassword = "set_password"
	LiveSubmit      = "submit"
)

// Server message types of the live form protocol.
const (
	LiveState    = "state"
	LiveNavigate = "navigate"
	LiveError    = "error"
)

// LiveMessage is sent by the browser.
type LiveMessage struct {
	Type  string `json:"type"`
	Value string `json:"value,omitempty"`
}

// LiveEvent is pushed to the browser.
type LiveEvent struct {
	Type     string                  `json:"type"`
	State    *models.SubmissionState `json:"state,omitempty"`
	Location string                  `json:"location,omitempty"`
	Token    string                  `json:"token,omitempty"`
	Error    string                  `json:"error,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// liveConn serializes writes; gorilla connections allow one concurrent writer.
type liveConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *liveConn) send(event LiveEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.WriteJSON(event); err != nil {
		logger.Log.Debugw("live form write failed", "err", err)
	}
}

// liveRouter tells the browser where to go and which token to keep.
type liveRouter struct {
	conn     *liveConn
	location string
}

func (lr liveRouter) Navigate(ctx context.Context, session *models.Session) {
	lr.conn.send(LiveEvent{Type: LiveNavigate, Location: lr.location, Token: session.Token})
}

// NewLiveFormHandler serves GET /ws. Each websocket connection is one mounted
// login form; closing the connection unmounts it.
func NewLiveFormHandler(deps FormDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Log.Errorw("websocket upgrade failed", "err", err)
			return
		}
		defer conn.Close()

		lc := &liveConn{conn: conn}
		form := deps.newForm(deps.Sessions, liveRouter{conn: lc, location: deps.redirect()})
		defer form.Unmount()

		form.Subscribe(func(state models.SubmissionState) {
			lc.send(LiveEvent{Type: LiveState, State: &state})
		})

		initial := form.State()
		lc.send(LiveEvent{Type: LiveState, State: &initial})
		logger.Log.Debugw("live form mounted", "remote", r.RemoteAddr)

		// Submissions must not outlive the connection.
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		var wg sync.WaitGroup
		defer wg.Wait()

		for {
			var msg LiveMessage
			if err := conn.ReadJSON(&msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logger.Log.Infow("live form connection lost", "err", err)
				}
				break
			}

			switch msg.Type {
			case LiveSetEmail:
				form.SetEmail(msg.Value)
			case LiveSetPassword:
				form.SetPassword(msg.Value)
			case LiveSubmit:
				wg.Add(1)
				go func() {
					defer wg.Done()
					if _, err := form.Submit(ctx); errors.Is(err, submitter.ErrSubmissionInProgress) {
						logger.Log.Debugw("duplicate submit ignored", "remote", r.RemoteAddr)
					}
				}()
			default:
				lc.send(LiveEvent{Type: LiveError, Error: "unknown message type " + msg.Type})
			}
		}

		form.Unmount()
		cancel()
		logger.Log.Debugw("live form unmounted", "remote", r.RemoteAddr)
	}
}
