package inputrpc

import (
	"context"
	"errors"
	"io"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"kiosk/agent/internal/frontend"
	"kiosk/agent/internal/orchestrator"
)

// Service feeds gRPC input into running sessions.
type Service struct {
	Sessions frontend.Submitter
	Log      *zap.Logger
}

// Register installs the Input service and a health service reporting it.
func Register(s *grpc.Server, svc *Service) *health.Server {
	s.RegisterService(&ServiceDesc, svc)
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, hs)
	return hs
}

// Submit takes {session_id, type, payload} with the same types the kiosk
// websocket accepts.
func (s *Service) Submit(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	m := in.AsMap()
	sessionID, _ := m["session_id"].(string)
	if sessionID == "" {
		return nil, status.Error(codes.InvalidArgument, "session_id is required")
	}
	msg := frontend.Message{SessionID: sessionID}
	msg.Type, _ = m["type"].(string)
	msg.Payload, _ = m["payload"].(map[string]any)
	ev, err := frontend.ToEvent(msg)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if err := s.submit(sessionID, ev); err != nil {
		return nil, err
	}
	rpcRequests.WithLabelValues(msg.Type).Inc()
	return structpb.NewStruct(map[string]any{"ok": true})
}

// Transcripts reads {session_id, text, final} frames from a speech
// recognizer. Final, non-blank transcripts become user input and are
// acknowledged with {session_id, accepted}.
func (s *Service) Transcripts(stream TranscriptsServer) error {
	for {
		in, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		m := in.AsMap()
		sessionID, _ := m["session_id"].(string)
		text, _ := m["text"].(string)
		final, _ := m["final"].(bool)
		if sessionID == "" {
			return status.Error(codes.InvalidArgument, "session_id is required")
		}
		if !final || strings.TrimSpace(text) == "" {
			continue
		}
		if err := s.submit(sessionID, orchestrator.UserInput{Text: text}); err != nil {
			return err
		}
		rpcRequests.WithLabelValues("transcript").Inc()
		ack, err := structpb.NewStruct(map[string]any{"session_id": sessionID, "accepted": text})
		if err != nil {
			return err
		}
		if err := stream.Send(ack); err != nil {
			return err
		}
	}
}

func (s *Service) submit(sessionID string, ev orchestrator.Event) error {
	err := s.Sessions.Submit(sessionID, ev)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, orchestrator.ErrUnknownSession):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, orchestrator.ErrClosed):
		return status.Error(codes.FailedPrecondition, err.Error())
	}
	if s.Log != nil {
		s.Log.Warn("submit", zap.String("session_id", sessionID), zap.Error(err))
	}
	return status.Error(codes.Internal, err.Error())
}
