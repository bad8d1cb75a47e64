package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/dkeye/VoiceRelay/internal/app/orch"
	"github.com/dkeye/VoiceRelay/internal/config"
	"github.com/dkeye/VoiceRelay/internal/core"
	"github.com/dkeye/VoiceRelay/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
	ErrUnknownConn  = errors.New("unknown connection")
)

// SignalWSController serves the hub endpoint. Each websocket becomes one
// ConnID for the lifetime of the socket.
type SignalWSController struct {
	Orch    *orch.Orchestrator
	Hub     *Hub
	Limiter *InvokeRateLimiter
	cfg     *config.Config
}

func NewSignalWSController(cfg *config.Config, o *orch.Orchestrator, hub *Hub, limiter *InvokeRateLimiter) *SignalWSController {
	return &SignalWSController{
		Orch:    o,
		Hub:     hub,
		Limiter: limiter,
		cfg:     cfg,
	}
}

type WsSignalConn struct {
	id    domain.ConnID
	token string
	conn  *websocket.Conn
	send  chan core.Frame

	mu     sync.RWMutex
	closed bool
}

var _ core.SignalConnection = (*WsSignalConn)(nil)

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	token := c.GetString("client_token")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	conn := &WsSignalConn{
		id:    domain.ConnID(uuid.NewString()),
		token: token,
		conn:  ws,
		send:  make(chan core.Frame, ctl.cfg.SendBuffer),
	}
	log.Info().Str("module", "signal").Str("conn", string(conn.id)).Str("client_token", token).Msg("new WS connection")

	ctl.Hub.Register(conn.id, conn)

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, conn)
}
