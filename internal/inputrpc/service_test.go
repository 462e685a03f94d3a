package inputrpc

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"kiosk/agent/internal/orchestrator"
)

type recorder struct {
	mu  sync.Mutex
	got []orchestrator.Event
}

func (r *recorder) Submit(id string, ev orchestrator.Event) error {
	switch id {
	case "gone":
		return orchestrator.ErrUnknownSession
	case "closed":
		return orchestrator.ErrClosed
	}
	r.mu.Lock()
	r.got = append(r.got, ev)
	r.mu.Unlock()
	return nil
}

func (r *recorder) events() []orchestrator.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]orchestrator.Event(nil), r.got...)
}

func dial(t *testing.T, rec *recorder) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer()
	Register(s, &Service{Sessions: rec})
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	require.NoError(t, err)
	return s
}

func TestSubmit(t *testing.T) {
	rec := &recorder{}
	c := NewClient(dial(t, rec))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out, err := c.Submit(ctx, mustStruct(t, map[string]any{
		"session_id": "s1",
		"type":       "input",
		"payload":    map[string]any{"text": "module 2"},
	}))
	require.NoError(t, err)
	assert.Equal(t, true, out.AsMap()["ok"])

	_, err = c.Submit(ctx, mustStruct(t, map[string]any{
		"session_id": "s1",
		"type":       "media_ended",
		"payload":    map[string]any{"instance": 4},
	}))
	require.NoError(t, err)

	assert.Equal(t, []orchestrator.Event{
		orchestrator.UserInput{Text: "module 2"},
		orchestrator.MediaEnded{Instance: 4},
	}, rec.events())
}

func TestSubmitErrors(t *testing.T) {
	c := NewClient(dial(t, &recorder{}))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cases := []struct {
		in   map[string]any
		code codes.Code
	}{
		{map[string]any{"type": "input"}, codes.InvalidArgument},
		{map[string]any{"session_id": "s1", "type": "dance"}, codes.InvalidArgument},
		{map[string]any{"session_id": "gone", "type": "activity"}, codes.NotFound},
		{map[string]any{"session_id": "closed", "type": "activity"}, codes.FailedPrecondition},
	}
	for _, tc := range cases {
		_, err := c.Submit(ctx, mustStruct(t, tc.in))
		assert.Equal(t, tc.code, status.Code(err), "%v", tc.in)
	}
}

func TestTranscripts(t *testing.T) {
	rec := &recorder{}
	c := NewClient(dial(t, rec))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := c.Transcripts(ctx)
	require.NoError(t, err)

	require.NoError(t, stream.Send(mustStruct(t, map[string]any{"session_id": "s1", "text": "i study at", "final": false})))
	require.NoError(t, stream.Send(mustStruct(t, map[string]any{"session_id": "s1", "text": "   ", "final": true})))
	require.NoError(t, stream.Send(mustStruct(t, map[string]any{"session_id": "s1", "text": "I study at Stanford", "final": true})))

	ack, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, "I study at Stanford", ack.AsMap()["accepted"])

	require.NoError(t, stream.CloseSend())
	assert.Equal(t, []orchestrator.Event{orchestrator.UserInput{Text: "I study at Stanford"}}, rec.events())
}

func TestHealth(t *testing.T) {
	conn := dial(t, &recorder{})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}
