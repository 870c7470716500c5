package session

import (
	"go.uber.org/zap"

	"deskwire/internal/domain"
	"deskwire/internal/pb"
)

// Modifiers are the modifier keys held during an input event.
type Modifiers struct {
	Alt     bool
	Ctrl    bool
	Shift   bool
	Command bool
}

func (m Modifiers) keys() []pb.ControlKey {
	var out []pb.ControlKey
	if m.Alt {
		out = append(out, pb.KeyAlt)
	}
	if m.Ctrl {
		out = append(out, pb.KeyControl)
	}
	if m.Shift {
		out = append(out, pb.KeyShift)
	}
	if m.Command {
		out = append(out, pb.KeyMeta)
	}
	return out
}

// InputKey queues a key event. A modifier is dropped when name is that
// modifier key itself. Unknown names are ignored.
func (s *Session) InputKey(name string, down, press bool, mods Modifiers) error {
	ev, ok := mapKey(name)
	if !ok {
		s.log.Debug("ignoring unknown key", zap.String("name", name))
		return nil
	}
	switch name {
	case "VK_MENU", "RAlt":
		mods.Alt = false
	case "VK_CONTROL", "RControl":
		mods.Ctrl = false
	case "VK_SHIFT", "RShift":
		mods.Shift = false
	case "Meta", "RWin":
		mods.Command = false
	}
	ev.Down = down
	ev.Press = press
	ev.Modifiers = mods.keys()
	return s.push(pb.NewMessage(ev))
}

// InputString types seq on the remote side.
func (s *Session) InputString(seq string) error {
	return s.push(pb.NewMessage(&pb.KeyEvent{Seq: seq}))
}

// InputMouse queues a mouse event.
func (s *Session) InputMouse(mask, x, y int32, mods Modifiers) error {
	return s.push(pb.NewMessage(&pb.MouseEvent{Mask: mask, X: x, Y: y, Modifiers: mods.keys()}))
}

// CtrlAltDel sends the secure attention sequence: a dedicated key on
// Windows peers and Delete with Alt+Control elsewhere.
func (s *Session) CtrlAltDel() error {
	ev := &pb.KeyEvent{Down: true}
	if p := s.PeerInfo(); p != nil && p.Platform == "Windows" {
		ev.ControlKey = pb.KeyCtrlAltDel
	} else {
		ev.ControlKey = pb.KeyDelete
		ev.Modifiers = Modifiers{Alt: true, Ctrl: true}.keys()
	}
	return s.push(pb.NewMessage(ev))
}

// LockScreen locks the remote screen.
func (s *Session) LockScreen() error {
	return s.push(pb.NewMessage(&pb.KeyEvent{Down: true, ControlKey: pb.KeyLockScreen}))
}

// Refresh asks the host for a fresh key frame.
func (s *Session) Refresh() error {
	return s.push(pb.NewMisc(pb.RefreshVideo(true)))
}

// Restart asks the host to reboot.
func (s *Session) Restart() error {
	return s.push(pb.NewMisc(pb.RestartRemoteDevice(true)))
}

// SendChat sends a chat line to the host.
func (s *Session) SendChat(text string) error {
	return s.push(pb.NewMisc(&pb.ChatMessage{Text: text}))
}

// SwitchDisplay selects the displays to view. A single display is switched
// to, and also captured alone unless desktop is set; several displays are
// captured together.
func (s *Session) SwitchDisplay(displays []int32, desktop bool) error {
	if len(displays) == 1 {
		if err := s.push(pb.NewMisc(&pb.SwitchDisplay{Display: displays[0]})); err != nil {
			return err
		}
		if desktop {
			return nil
		}
	}
	return s.CaptureDisplays(nil, nil, displays)
}

// CaptureDisplays changes the captured display set.
func (s *Session) CaptureDisplays(add, sub, set []int32) error {
	return s.push(pb.NewMisc(&pb.CaptureDisplays{Add: add, Sub: sub, Set: set}))
}

// toggles maps option names to the OptionMessage field they drive.
var toggles = map[string]func(*pb.OptionMessage) *pb.BoolOption{
	domain.OptShowRemoteCursor:    func(o *pb.OptionMessage) *pb.BoolOption { return &o.ShowRemoteCursor },
	domain.OptDisableAudio:        func(o *pb.OptionMessage) *pb.BoolOption { return &o.DisableAudio },
	domain.OptDisableClipboard:    func(o *pb.OptionMessage) *pb.BoolOption { return &o.DisableClipboard },
	domain.OptLockAfterSessionEnd: func(o *pb.OptionMessage) *pb.BoolOption { return &o.LockAfterSessionEnd },
	domain.OptPrivacyMode:         func(o *pb.OptionMessage) *pb.BoolOption { return &o.PrivacyMode },
}

// ToggleOption flips a boolean option, persists it and tells the host if
// connected.
// block-input and unblock-input are one-shot commands and are not stored.
func (s *Session) ToggleOption(name string) error {
	msg := &pb.OptionMessage{}
	switch name {
	case "block-input":
		msg.BlockInput = pb.BoolYes
	case "unblock-input":
		msg.BlockInput = pb.BoolNo
	default:
		field, ok := toggles[name]
		if !ok {
			return ErrUnknownOption
		}
		var v bool
		s.updateOptions(func(o domain.Options) {
			v = !o.Bool(name)
			o.SetBool(name, v)
		})
		*field(msg) = pb.BoolOf(v)
	}
	return s.pushIfConnected(pb.NewMisc(msg))
}

var imageQualities = map[string]pb.ImageQuality{
	"low":      pb.ImageQualityLow,
	"balanced": pb.ImageQualityBalanced,
	"best":     pb.ImageQualityBest,
}

// SetImageQuality persists q and, when it is a known level and a connection
// is up, tells the host.
func (s *Session) SetImageQuality(q string) error {
	s.updateOptions(func(o domain.Options) { o.Set(domain.OptImageQuality, q) })
	iq, ok := imageQualities[q]
	if !ok {
		return nil
	}
	return s.pushIfConnected(pb.NewMisc(&pb.OptionMessage{ImageQuality: iq}))
}

// SetRemember controls whether the password is stored after login.
func (s *Session) SetRemember(v bool) error {
	return s.updateOptions(func(o domain.Options) { o.SetBool(domain.OptRemember, v) })
}

// SetOption stores a raw option value. An empty value deletes it.
func (s *Session) SetOption(name, value string) error {
	return s.updateOptions(func(o domain.Options) { o.Set(name, value) })
}

// updateOptions applies fn to the options and persists the result.
func (s *Session) updateOptions(fn func(domain.Options)) error {
	s.mu.Lock()
	fn(s.opts)
	snapshot := s.opts.Clone()
	s.mu.Unlock()
	if err := s.deps.Store.SavePeer(s.id, snapshot); err != nil {
		s.log.Warn("persist options", zap.Error(err))
		return err
	}
	return nil
}
