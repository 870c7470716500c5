package session

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"deskwire/internal/crypto"
	"deskwire/internal/domain"
	"deskwire/internal/pb"
)

// handleHash stores the login challenge and answers it. Without a cached
// password hash an empty login is sent so hosts that need no password can
// accept straight away, and the user is prompted. The state advances only
// once the login request is queued.
func (s *Session) handleHash(a *attempt, h *pb.Hash) error {
	s.mu.Lock()
	s.hash = h
	var cred []byte
	if s.pwHash != nil {
		cred = crypto.Credential(s.pwHash, h.Challenge)
	}
	s.mu.Unlock()

	if err := s.sendLogin(cred, nil); err != nil {
		return err
	}
	if cred != nil {
		s.setState(a, domain.StateLoggingIn)
		return nil
	}
	s.setState(a, domain.StateAwaitingPassword)
	s.fe.UI.Msgbox("input-password", "Password Required", "", "")
	return nil
}

// Login answers the current challenge with password. The password hash is
// cached for later challenges in this session and for remembering.
func (s *Session) Login(password string) error {
	return s.login(password, nil)
}

// LoginOS answers the challenge and asks the host to also log into the OS
// account osUser. An empty password reuses the cached password hash.
func (s *Session) LoginOS(osUser, osPassword, password string) error {
	return s.login(password, &pb.OSLogin{Username: osUser, Password: osPassword})
}

func (s *Session) login(password string, osLogin *pb.OSLogin) error {
	s.mu.Lock()
	h := s.hash
	if h == nil {
		s.mu.Unlock()
		return ErrNoChallenge
	}
	if password != "" || osLogin == nil {
		s.pwHash = crypto.PasswordHash(password, h.Salt)
	}
	var cred []byte
	if s.pwHash != nil {
		cred = crypto.Credential(s.pwHash, h.Challenge)
	}
	a := s.cur
	s.mu.Unlock()

	s.setState(a, domain.StateLoggingIn)
	s.fe.UI.Msgbox("connecting", "Connecting...", "Logging in...", "")
	return s.sendLogin(cred, osLogin)
}

// Send2FA submits a second-factor code.
func (s *Session) Send2FA(code string) error {
	return s.push(pb.NewMessage(&pb.Auth2FA{Code: code}))
}

func (s *Session) sendLogin(cred []byte, osLogin *pb.OSLogin) error {
	s.mu.Lock()
	opt := optionMessage(s.opts)
	s.mu.Unlock()
	err := s.send(pb.NewMessage(&pb.LoginRequest{
		Username:         s.id,
		Password:         cred,
		MyID:             s.cfg.MyID,
		MyName:           s.cfg.MyName,
		Option:           opt,
		VideoAckRequired: true,
		OSLogin:          osLogin,
	}))
	if err != nil {
		s.log.Warn("send login request", zap.Error(err))
	}
	return err
}

// optionMessage builds the login-time options, or nil when none are set.
func optionMessage(opts domain.Options) *pb.OptionMessage {
	msg := &pb.OptionMessage{}
	n := 0
	switch opts.Get(domain.OptImageQuality) {
	case "low":
		msg.ImageQuality = pb.ImageQualityLow
		n++
	case "best":
		msg.ImageQuality = pb.ImageQualityBest
		n++
	}
	for _, b := range []struct {
		name string
		dst  *pb.BoolOption
	}{
		{domain.OptShowRemoteCursor, &msg.ShowRemoteCursor},
		{domain.OptLockAfterSessionEnd, &msg.LockAfterSessionEnd},
		{domain.OptPrivacyMode, &msg.PrivacyMode},
		{domain.OptDisableAudio, &msg.DisableAudio},
		{domain.OptDisableClipboard, &msg.DisableClipboard},
	} {
		if opts.Bool(b.name) {
			*b.dst = pb.BoolYes
			n++
		}
	}
	if n == 0 {
		return nil
	}
	return msg
}

func (s *Session) handleLoginResponse(a *attempt, r *pb.LoginResponse) error {
	if r.Error != "" {
		s.handleLoginError(a, domain.ClassifyLoginError(r.Error))
		return nil
	}
	if r.PeerInfo != nil {
		return s.handlePeerInfo(a, r.PeerInfo)
	}
	return nil
}

func (s *Session) handleLoginError(a *attempt, f *domain.LoginFailure) {
	s.log.Info("login rejected", zap.String("error", f.Text))
	switch f.Kind {
	case domain.LoginEmptyPassword:
		s.clearPassword()
		s.setState(a, domain.StateAwaitingPassword)
		s.fe.UI.Msgbox("input-password", "Password Required", "", "")
	case domain.LoginWrongPassword:
		s.clearPassword()
		s.setState(a, domain.StateAwaitingPassword)
		s.fe.UI.Msgbox("re-input-password", f.Text, "Do you want to enter again?", "")
	case domain.Login2FA:
		s.setState(a, domain.StateAwaitingPassword)
		s.fe.UI.Msgbox("input-2fa", f.Text, "", "")
	default:
		s.fe.UI.Msgbox("error", "Login Error", f.Text, "")
	}
}

func (s *Session) clearPassword() {
	s.mu.Lock()
	s.pwHash = nil
	s.mu.Unlock()
}

// peerSummary is the persisted form of the last peer info.
type peerSummary struct {
	Username string `json:"username"`
	Hostname string `json:"hostname"`
	Platform string `json:"platform"`
	Version  string `json:"version"`
	Displays int    `json:"displays"`
}

// minRestartVersion is the first host version that supports remote
// restart.
var minRestartVersion = VersionNumber("1.1.10")

func (s *Session) handlePeerInfo(a *attempt, pi *pb.PeerInfo) error {
	if err := s.deps.Store.SetSetting(domain.SettingLastRemoteID, s.id); err != nil {
		s.log.Warn("persist last remote id", zap.Error(err))
	}
	if int(pi.CurrentDisplay) >= len(pi.Displays) {
		pi.CurrentDisplay = 0
	}
	if VersionNumber(pi.Version) < minRestartVersion {
		s.fe.UI.PushEvent("permission", map[string]bool{"restart": false})
	}

	if len(pi.Displays) == 0 {
		s.mu.Lock()
		s.peer = pi
		s.mu.Unlock()
		s.pushPrivacyMode()
		s.fe.UI.Msgbox("error", "Remote Error", "No Display", "")
		return ErrNoDisplay
	}

	s.fe.UI.Msgbox("success", "Successful", "Connected, waiting for image...", "")
	s.fe.UI.PushEvent("peer_info", pi)

	s.mu.Lock()
	opts := s.opts.Clone()
	pwHash := s.pwHash
	s.mu.Unlock()

	if pw := opts.Get(domain.OptOSPassword); pw != "" &&
		opts.Bool(domain.OptLockAfterSessionEnd) && opts.Bool(domain.OptAutoLogin) {
		go s.inputOSPassword(a, pw)
	}

	if pi.Username == "" {
		var prev peerSummary
		if raw := opts.Get(domain.OptInfo); raw != "" && json.Unmarshal([]byte(raw), &prev) == nil {
			pi.Username = prev.Username
		}
	}

	s.mu.Lock()
	s.peer = pi
	s.mu.Unlock()
	s.pushPrivacyMode()

	summary, _ := json.Marshal(peerSummary{
		Username: pi.Username,
		Hostname: pi.Hostname,
		Platform: pi.Platform,
		Version:  pi.Version,
		Displays: len(pi.Displays),
	})
	s.updateOptions(func(o domain.Options) {
		o.Set(domain.OptInfo, string(summary))
		if !o.Bool(domain.OptRemember) {
			if o.Get(domain.OptPassword) != "" {
				o.Set(domain.OptPassword, "")
			}
			return
		}
		if pwHash == nil {
			return
		}
		if enc := crypto.B64(pwHash); o.Get(domain.OptPassword) != enc {
			o.Set(domain.OptPassword, enc)
		}
	})

	s.setState(a, domain.StateStreaming)
	s.log.Info("streaming",
		zap.String("platform", pi.Platform),
		zap.String("version", pi.Version),
		zap.Int("displays", len(pi.Displays)))
	return nil
}

func (s *Session) pushPrivacyMode() {
	s.mu.Lock()
	on := s.opts.Bool(domain.OptPrivacyMode)
	s.mu.Unlock()
	s.fe.UI.PushEvent("update_privacy_mode", map[string]bool{"privacy_mode": on})
}

// inputOSPassword types the OS password into the remote lock screen.
func (s *Session) inputOSPassword(a *attempt, password string) {
	wait := func(d time.Duration) bool {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-a.ctx.Done():
			return false
		case <-t.C:
			return true
		}
	}
	mouse := func(mask, x, y int32) {
		_ = s.push(pb.NewMessage(&pb.MouseEvent{Mask: mask, X: x, Y: y}))
	}

	mouse(0, 0, 0)
	if !wait(50 * time.Millisecond) {
		return
	}
	mouse(0, 3, 3)
	if !wait(50 * time.Millisecond) {
		return
	}
	mouse(1|1<<3, 0, 0)
	mouse(2|1<<3, 0, 0)
	if !wait(1200 * time.Millisecond) {
		return
	}
	_ = s.push(pb.NewMessage(&pb.KeyEvent{Press: true, Seq: password}))
	s.log.Debug("os password entered")
}
