package session

import (
	"go.uber.org/zap"

	"deskwire/internal/pb"
)

var permissionNames = map[pb.Permission]string{
	pb.PermissionKeyboard:  "keyboard",
	pb.PermissionClipboard: "clipboard",
	pb.PermissionAudio:     "audio",
}

func (s *Session) handleMisc(m *pb.Misc) error {
	switch p := m.Payload.(type) {
	case *pb.AudioFormat:
		s.fe.Audio.Init(p.Channels, p.SampleRate)
	case *pb.ChatMessage:
		s.fe.UI.PushEvent("chat", map[string]string{"text": p.Text})
	case *pb.PermissionInfo:
		name, ok := permissionNames[p.Permission]
		if !ok {
			s.log.Debug("ignoring permission", zap.Int32("permission", int32(p.Permission)))
			return nil
		}
		s.fe.UI.PushEvent("permission", map[string]bool{name: p.Enabled})
	case *pb.SwitchDisplay:
		s.fe.Decoder.Reset()
		s.fe.UI.PushEvent("switch_display", p)
	case pb.CloseReason:
		s.fe.UI.Msgbox("error", "Connection Error", string(p), "")
		return &ClosedByHostError{Reason: string(p)}
	default:
		s.log.Debug("ignoring misc")
	}
	return nil
}
