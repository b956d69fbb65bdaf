package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/persys-dev/workflow-watch/internal/logging"
	"github.com/persys-dev/workflow-watch/internal/metrics"
	"github.com/persys-dev/workflow-watch/internal/store"
)

const updatesTopic = "workflow_update"

var hubLogger = logging.C("dashboard.hub")

// Frame types on the channel protocol.
const (
	frameInitialWorkflows = "initial_workflows"
	frameWorkflowUpdate   = "workflow_update"
	frameGetWorkflows     = "get_workflows"
)

type serverFrame struct {
	Type      string `json:"type"`
	Workflows []View `json:"workflows"`
}

type clientFrame struct {
	Type string `json:"type"`
	FilterRequest
}

// Hub upgrades dashboard connections and fans the poller's broadcasts out to
// every live connection through an in-process pub/sub topic. Explicit filter
// requests are answered on the requesting connection only.
type Hub struct {
	store    *store.Store
	pubsub   *gochannel.GoChannel
	upgrader websocket.Upgrader
}

func NewHub(st *store.Store) *Hub {
	return &Hub{
		store: st,
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: 16,
		}, watermill.NopLogger{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// The dashboard is unauthenticated and served cross-origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Publisher exposes the broadcast topic to the store poller.
func (h *Hub) Publisher() message.Publisher { return h.pubsub }

// ServeWS handles GET /ws. It blocks for the lifetime of the connection.
func (h *Hub) ServeWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		hubLogger.WithError(err).Warn("websocket upgrade failed")
		return
	}

	cl := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, 32),
	}
	cl.log = hubLogger.WithField("client", cl.id)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates, err := h.pubsub.Subscribe(ctx, updatesTopic)
	if err != nil {
		cl.log.WithError(err).Error("subscribing to updates")
		conn.Close()
		return
	}

	metrics.ClientConnected()
	cl.log.Info("client connected")
	defer func() {
		metrics.ClientDisconnected()
		cl.log.Info("client disconnected")
	}()

	go cl.writePump()
	go cl.forwardUpdates(updates)

	h.reply(cl, defaultRequest())
	h.readPump(cl)
}

// readPump consumes client frames until the connection drops. A failed view
// computation is logged and simply produces no reply frame.
func (h *Hub) readPump(cl *client) {
	defer cl.close()
	for {
		_, raw, err := cl.conn.ReadMessage()
		if err != nil {
			return
		}
		var frame clientFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			cl.log.WithError(err).Warn("discarding malformed frame")
			continue
		}
		if frame.Type != frameGetWorkflows {
			continue
		}
		if frame.TimeFilter == "" {
			frame.TimeFilter = TimeAll
		}
		if frame.ConclusionFilter == "" {
			frame.ConclusionFilter = "all"
		}
		h.reply(cl, frame.FilterRequest)
	}
}

// reply computes a filtered view and sends it to one client.
func (h *Hub) reply(cl *client, req FilterRequest) {
	views, err := fetchViews(h.store, req)
	if err != nil {
		cl.log.WithError(err).Error("failed to compute workflow view")
		return
	}
	payload, err := json.Marshal(serverFrame{Type: frameInitialWorkflows, Workflows: views})
	if err != nil {
		cl.log.WithError(err).Error("failed to encode workflow view")
		return
	}
	cl.enqueue(payload)
}

// client is one dashboard connection. All writes to the socket go through
// the send channel so that filter replies and broadcasts never interleave.
type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	log  *logrus.Entry

	closeOnce sync.Once
}

func (cl *client) writePump() {
	for payload := range cl.send {
		if err := cl.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			cl.conn.Close()
			return
		}
	}
}

func (cl *client) forwardUpdates(updates <-chan *message.Message) {
	for msg := range updates {
		cl.enqueue(msg.Payload)
		msg.Ack()
	}
}

// enqueue drops the connection instead of blocking when the client cannot
// keep up with its send buffer.
func (cl *client) enqueue(payload []byte) {
	defer func() {
		// send may already be closed by a concurrent teardown.
		_ = recover()
	}()
	select {
	case cl.send <- payload:
	default:
		cl.conn.Close()
	}
}

func (cl *client) close() {
	cl.closeOnce.Do(func() {
		close(cl.send)
		cl.conn.Close()
	})
}
