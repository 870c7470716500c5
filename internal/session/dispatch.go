package session

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"deskwire/internal/compress"
	"deskwire/internal/domain"
	"deskwire/internal/pb"
	"deskwire/internal/transport"
)

// loop dispatches inbound messages in arrival order until one is fatal or
// the transport ends.
func (s *Session) loop(a *attempt) error {
	for {
		// A read that began while the user was being prompted may time out
		// after the password arrives; the next read gets a fresh deadline.
		prompting := s.State() == domain.StateAwaitingPassword
		msg, err := a.conn.NextMessage(a.ctx)
		switch {
		case err == nil:
		case errors.Is(err, transport.ErrMalformed):
			s.log.Debug("dropping malformed message", zap.Error(err))
			continue
		case errors.Is(err, transport.ErrTimeout) && (prompting || s.State() == domain.StateAwaitingPassword):
			continue
		default:
			return err
		}
		if err := s.dispatch(a, msg); err != nil {
			return err
		}
	}
}

// dispatch handles one message. A non-nil error ends the session.
func (s *Session) dispatch(a *attempt, msg *pb.Message) error {
	switch m := msg.Payload.(type) {
	case *pb.Hash:
		return s.handleHash(a, m)
	case *pb.TestDelay:
		if !m.FromClient {
			if err := s.send(pb.NewMessage(m)); err != nil {
				s.log.Debug("echo test delay", zap.Error(err))
			}
		}
	case *pb.LoginResponse:
		return s.handleLoginResponse(a, m)
	case *pb.VideoFrame:
		s.handleVideo(m)
	case *pb.Clipboard:
		s.handleClipboard(m)
	case *pb.CursorData:
		s.handleCursorData(m)
	case pb.CursorID:
		s.fe.UI.PushEvent("cursor_id", map[string]uint64{"id": uint64(m)})
	case *pb.CursorPosition:
		s.fe.UI.PushEvent("cursor_position", map[string]int32{"x": m.X, "y": m.Y})
	case *pb.Misc:
		return s.handleMisc(m)
	case *pb.AudioFrame:
		s.fe.Audio.Play(m.Data)
	default:
		s.log.Debug("ignoring message", zap.String("kind", fmt.Sprintf("%T", m)))
	}
	return nil
}

func (s *Session) handleClipboard(c *pb.Clipboard) {
	content := c.Content
	if c.Compress {
		out, err := compress.Decompress(content)
		if err != nil {
			s.log.Debug("dropping clipboard", zap.Error(err))
			return
		}
		content = out
	}
	text := string(content)
	if s.fe.Clipboard == nil {
		s.fe.UI.PushEvent("clipboard", map[string]string{"text": text})
		return
	}
	if err := s.fe.Clipboard.SetText(text); err != nil {
		s.log.Debug("set clipboard", zap.Error(err))
	}
}

func (s *Session) handleCursorData(c *pb.CursorData) {
	colors, err := compress.Decompress(c.Colors)
	if err != nil {
		s.log.Debug("dropping cursor data", zap.Uint64("id", c.ID), zap.Error(err))
		return
	}
	cd := *c
	cd.Colors = colors
	s.fe.UI.PushEvent("cursor_data", &cd)
}
