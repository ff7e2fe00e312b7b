package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/vburojevic/lurk/internal/domain"
)

const (
	writeTimeout = 10 * time.Second
	pongTimeout  = 60 * time.Second
	pingInterval = 30 * time.Second
	callTimeout  = 30 * time.Second
	eventBuffer  = 256

	// codeConnectionLost is reported when the socket drops without the
	// gateway announcing why.
	codeConnectionLost = 408
)

// ErrSessionClosed is returned by calls on a session that has ended.
var ErrSessionClosed = errors.New("session closed")

// WSDialer connects to a protocol gateway over a websocket.
type WSDialer struct {
	url    string
	token  string
	logger *zap.Logger
}

// NewWSDialer creates a dialer for the gateway at url.
func NewWSDialer(url, token string, logger *zap.Logger) *WSDialer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WSDialer{url: url, token: token, logger: logger.Named("transport")}
}

// Dial opens the websocket and sends the hello frame.
func (d *WSDialer) Dial(ctx context.Context, opts DialOptions) (Session, error) {
	header := http.Header{}
	if d.token != "" {
		header.Set("Authorization", "Bearer "+d.token)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, d.url, header)
	if err != nil {
		return nil, fmt.Errorf("dial gateway: %w", err)
	}

	if opts.Browser == (Browser{}) {
		opts.Browser = DefaultBrowser
	}
	hello, err := json.Marshal(HelloPayload{
		Version:             opts.Version,
		Browser:             opts.Browser,
		MarkOnlineOnConnect: opts.MarkOnlineOnConnect,
		Credentials:         opts.Credentials,
	})
	if err != nil {
		conn.Close()
		return nil, err
	}
	// Not shared yet, no write lock needed.
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(Frame{Type: FrameHello, Payload: hello}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("send hello: %w", err)
	}

	sctx, cancel := context.WithCancel(context.Background())
	s := &wsSession{
		conn:       conn,
		getMessage: opts.GetMessage,
		logger:     d.logger,
		events:     make(chan domain.Event, eventBuffer),
		queue:      newEventQueue(),
		pending:    make(map[uint64]chan Frame),
		ctx:        sctx,
		cancel:     cancel,
		stop:       make(chan struct{}),
		pumped:     make(chan struct{}),
		done:       make(chan struct{}),
	}
	go s.pump()
	go s.readLoop()
	go s.pingLoop()
	return s, nil
}

type wsSession struct {
	conn       *websocket.Conn
	getMessage GetMessageFunc
	logger     *zap.Logger
	events     chan domain.Event
	queue      *eventQueue

	writeMu sync.Mutex // serialises all conn writes

	mu      sync.Mutex
	pending map[uint64]chan Frame
	nextID  uint64
	user    domain.User

	ctx       context.Context
	cancel    context.CancelFunc
	stop      chan struct{} // closed by Close, releases the pump
	pumped    chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func (s *wsSession) Events() <-chan domain.Event { return s.events }

func (s *wsSession) User() domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

func (s *wsSession) SendMessage(ctx context.Context, to domain.JID, msg domain.OutgoingMessage) error {
	return s.call(ctx, FrameSendMessage, SendMessagePayload{
		To:                  to,
		Text:                msg.Text,
		Mentions:            msg.Mentions,
		Quoted:              msg.Quoted,
		EphemeralExpiration: int64(msg.Ephemeral / time.Second),
	}, nil)
}

func (s *wsSession) MarkRead(ctx context.Context, keys []domain.MessageKey) error {
	return s.call(ctx, FrameReadMessages, ReadMessagesPayload{Keys: keys}, nil)
}

func (s *wsSession) SetPresence(ctx context.Context, p domain.Presence) error {
	return s.call(ctx, FramePresence, PresencePayload{Presence: p}, nil)
}

func (s *wsSession) RequestPairingCode(ctx context.Context, phone string) (string, error) {
	var res PairingResultPayload
	if err := s.call(ctx, FrameRequestPairingCode, PairingRequestPayload{Phone: phone}, &res); err != nil {
		return "", err
	}
	return res.Code, nil
}

// Close tears the connection down and waits for the read loop to exit.
func (s *wsSession) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.stop)
		s.cancel()
		s.writeMu.Lock()
		s.conn.SetWriteDeadline(time.Now().Add(time.Second))
		_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.writeMu.Unlock()
		err = s.conn.Close()
	})
	<-s.done
	return err
}

func (s *wsSession) write(f Frame) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.conn.WriteJSON(f)
}

// call sends a request frame and waits for the matching result, at most
// callTimeout.
func (s *wsSession) call(ctx context.Context, typ FrameType, payload, out any) error {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.pending == nil {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.nextID++
	id := s.nextID
	ch := make(chan Frame, 1)
	s.pending[id] = ch
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if s.pending != nil {
			delete(s.pending, id)
		}
		s.mu.Unlock()
	}()

	if err := s.write(Frame{Type: typ, ID: id, Payload: body}); err != nil {
		return fmt.Errorf("%s: %w", typ, err)
	}

	select {
	case res, ok := <-ch:
		if !ok {
			return ErrSessionClosed
		}
		if res.Error != "" {
			return fmt.Errorf("%s: %s", typ, res.Error)
		}
		if out != nil && len(res.Payload) > 0 {
			return json.Unmarshal(res.Payload, out)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", typ, ctx.Err())
	case <-s.ctx.Done():
		return ErrSessionClosed
	}
}

func (s *wsSession) emit(ev domain.Event) {
	s.queue.push(ev)
}

// pump moves queued events to the events channel so the reader never waits
// on the consumer. It stops early only when the session is closed locally.
func (s *wsSession) pump() {
	defer close(s.pumped)
	defer close(s.events)
	for {
		batch, closed := s.queue.take()
		for _, ev := range batch {
			select {
			case s.events <- ev:
			case <-s.stop:
				return
			}
		}
		if len(batch) > 0 {
			continue
		}
		if closed {
			return
		}
		select {
		case <-s.queue.ready:
		case <-s.stop:
			return
		}
	}
}

func (s *wsSession) readLoop() {
	defer close(s.done)
	defer func() {
		s.queue.close()
		<-s.pumped
	}()
	defer s.failPending()

	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongTimeout))
		return nil
	})
	s.conn.SetReadDeadline(time.Now().Add(pongTimeout))

	for {
		var f Frame
		if err := s.conn.ReadJSON(&f); err != nil {
			if s.ctx.Err() == nil {
				s.logger.Debug("gateway read failed", zap.Error(err))
				s.emit(domain.ConnectionUpdate{
					State:      domain.ConnectionClose,
					Disconnect: &domain.DisconnectSignal{Code: codeConnectionLost, Message: err.Error()},
				})
			}
			s.cancel()
			return
		}
		if closed := s.dispatch(f); closed {
			s.cancel()
			return
		}
	}
}

// dispatch handles one gateway frame and reports whether it ended the session.
func (s *wsSession) dispatch(f Frame) bool {
	switch f.Type {
	case FrameResult:
		s.mu.Lock()
		ch := s.pending[f.ID]
		s.mu.Unlock()
		if ch != nil {
			select {
			case ch <- f:
			default:
			}
		}

	case FrameConnectionUpdate:
		var p ConnectionPayload
		if err := json.Unmarshal(f.Payload, &p); err != nil {
			s.logger.Warn("bad connection.update", zap.Error(err))
			return false
		}
		if p.User != nil {
			s.mu.Lock()
			s.user = *p.User
			s.mu.Unlock()
		}
		ev := domain.ConnectionUpdate{State: p.Connection, QR: p.QR}
		if p.Connection == domain.ConnectionClose {
			sig := domain.DisconnectSignal{Code: codeConnectionLost}
			if p.LastDisconnect != nil {
				sig = *p.LastDisconnect
			}
			ev.Disconnect = &sig
		}
		s.emit(ev)
		return p.Connection == domain.ConnectionClose

	case FrameCredsUpdate:
		var c domain.Credentials
		if err := json.Unmarshal(f.Payload, &c); err != nil {
			s.logger.Warn("bad creds.update", zap.Error(err))
			return false
		}
		s.emit(domain.CredentialsUpdate{Credentials: c})

	case FramePresenceUpdate:
		var p PresenceUpdatePayload
		if err := json.Unmarshal(f.Payload, &p); err != nil {
			s.logger.Warn("bad presence.update", zap.Error(err))
			return false
		}
		s.emit(domain.PresenceQuery{From: p.ID})

	case FrameMessagesUpsert:
		var p MessagesPayload
		if err := json.Unmarshal(f.Payload, &p); err != nil {
			s.logger.Warn("bad messages.upsert", zap.Error(err))
			return false
		}
		s.emit(domain.MessagesUpsert{Messages: p.Messages})

	case FrameGetMessage:
		go s.answerGetMessage(f)

	default:
		s.logger.Debug("ignoring frame", zap.String("type", string(f.Type)))
	}
	return false
}

// answerGetMessage replies to a replay request. A missing message is an
// empty result, not an error.
func (s *wsSession) answerGetMessage(f Frame) {
	res := Frame{Type: FrameResult, ID: f.ID}
	res.Payload, res.Error = s.lookupMessage(f.Payload)
	if err := s.write(res); err != nil {
		s.logger.Debug("get_message reply failed", zap.Error(err))
	}
}

func (s *wsSession) lookupMessage(raw json.RawMessage) (payload json.RawMessage, errText string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("message lookup panicked", zap.Any("panic", r), zap.Stack("stack"))
			payload, errText = nil, "message lookup failed"
		}
	}()

	var key domain.MessageKey
	if err := json.Unmarshal(raw, &key); err != nil {
		return nil, err.Error()
	}
	var content json.RawMessage
	if s.getMessage != nil {
		var err error
		content, err = s.getMessage(s.ctx, key)
		if err != nil {
			s.logger.Warn("message lookup failed", zap.String("id", key.ID), zap.Error(err))
			content = nil
		}
	}
	payload, _ = json.Marshal(GetMessageResultPayload{Message: content})
	return payload, ""
}

func (s *wsSession) failPending() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, ch := range s.pending {
		close(ch)
		delete(s.pending, id)
	}
	s.pending = nil
}

func (s *wsSession) pingLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.writeMu.Lock()
			s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			err := s.conn.WriteMessage(websocket.PingMessage, nil)
			s.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}
