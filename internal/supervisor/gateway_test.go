package supervisor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/vburojevic/lurk/internal/domain"
	"github.com/vburojevic/lurk/internal/transport"
)

// floodingGateway opens the session, answers every call, and buries the
// result of the first presence call behind a burst of presence queries.
type floodingGateway struct {
	srv      *httptest.Server
	burst    int
	acks     atomic.Int64
	messages chan transport.SendMessagePayload
}

func newFloodingGateway(t *testing.T, burst int) *floodingGateway {
	t.Helper()
	g := &floodingGateway{burst: burst, messages: make(chan transport.SendMessagePayload, 4)}
	g.srv = httptest.NewServer(http.HandlerFunc(g.serve))
	return g
}

func (g *floodingGateway) url() string {
	return "ws" + strings.TrimPrefix(g.srv.URL, "http")
}

func (g *floodingGateway) serve(w http.ResponseWriter, r *http.Request) {
	c, err := (&websocket.Upgrader{}).Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer c.Close()

	var f transport.Frame
	if err := c.ReadJSON(&f); err != nil {
		return
	}
	write := func(typ transport.FrameType, id uint64, payload any) error {
		body, _ := json.Marshal(payload)
		return c.WriteJSON(transport.Frame{Type: typ, ID: id, Payload: body})
	}
	if write(transport.FrameConnectionUpdate, 0, transport.ConnectionPayload{
		Connection: domain.ConnectionOpen,
		User:       &domain.User{ID: selfJID, Name: "Alice"},
	}) != nil {
		return
	}

	flooded := false
	for {
		if err := c.ReadJSON(&f); err != nil {
			return
		}
		switch f.Type {
		case transport.FramePresence:
			g.acks.Add(1)
			if !flooded {
				flooded = true
				for i := 0; i < g.burst; i++ {
					if write(transport.FramePresenceUpdate, 0, transport.PresenceUpdatePayload{ID: "15557654321@s.whatsapp.net"}) != nil {
						return
					}
				}
			}
		case transport.FrameSendMessage:
			var p transport.SendMessagePayload
			if json.Unmarshal(f.Payload, &p) == nil {
				select {
				case g.messages <- p:
				default:
				}
			}
		}
		if write(transport.FrameResult, f.ID, struct{}{}) != nil {
			return
		}
	}
}

func TestRunStaysResponsiveThroughEventBurst(t *testing.T) {
	defer goleak.VerifyNone(t)

	const burst = 300
	g := newFloodingGateway(t, burst)
	defer g.srv.Close()

	sup := New(Options{
		Dialer:   transport.NewWSDialer(g.url(), "", nil),
		Versions: staticVersion{},
		Store:    &memStore{creds: registered()},
		Notifier: &recordingNotifier{},
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sup.Run(ctx) }()

	select {
	case msg := <-g.messages:
		assert.Equal(t, domain.JID("15551234567@s.whatsapp.net"), msg.To)
		assert.Equal(t, "Alice has Connected...", msg.Text)
	case <-time.After(5 * time.Second):
		t.Fatal("self-notification never sent")
	}

	// every queued presence query still gets answered
	require.Eventually(t, func() bool { return g.acks.Load() == burst+1 }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, domain.StateOpen, sup.State())

	cancel()
	require.NoError(t, <-done)
}
