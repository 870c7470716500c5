package session_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deskwire/internal/crypto"
	"deskwire/internal/domain"
	"deskwire/internal/pb"
	"deskwire/internal/session"
)

func TestStart_NegotiationFailures(t *testing.T) {
	cases := []struct {
		err  error
		text string
	}{
		{&domain.NegotiationFailure{Kind: domain.FailureIDNotExist}, "ID does not exist"},
		{&domain.NegotiationFailure{Kind: domain.FailureOffline}, "Remote desktop is offline"},
		{&domain.NegotiationFailure{Kind: domain.FailureLicenseMismatch}, "Key mismatch"},
		{&domain.NegotiationFailure{Kind: domain.FailureLicenseOveruse}, "Key overuse"},
		{&domain.NegotiationFailure{Kind: domain.FailureOther, Text: "busy"}, "busy"},
		{domain.ErrUnsupportedPeerVersion, domain.UnsupportedPeerVersionText},
	}
	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			e := newEnv(t, setup{negotiateErr: tc.err})
			err := e.sess.Start(t.Context())
			require.ErrorIs(t, err, tc.err)

			assert.Equal(t, []box{{"error", "Error", tc.text}}, e.ui.boxesOf("error"))
			assert.Equal(t, domain.StateFailed, e.sess.State())
			assert.Empty(t, e.dialed, "no transport should be opened")
		})
	}
}

func TestLogin_PromptThenPassword(t *testing.T) {
	e := newEnv(t, setup{})
	require.ErrorIs(t, e.sess.Login("early"), session.ErrNoChallenge)

	e.start()
	assert.Equal(t, "relay-uuid", (<-e.neg.relayed).UUID)

	e.send(&pb.Hash{Salt: "abc", Challenge: "xyz"})
	first := next[*pb.LoginRequest](t, e.host)
	assert.Equal(t, []any{map[string]bool{"secure": false, "direct": false}}, e.ui.eventsNamed("connection_ready"))
	assert.Empty(t, first.Password)
	e.eventually(func() bool { return len(e.ui.boxesOf("input-password")) == 1 })
	assert.Equal(t, []box{{"input-password", "Password Required", ""}}, e.ui.boxesOf("input-password"))
	assert.Equal(t, domain.StateAwaitingPassword, e.sess.State())

	require.NoError(t, e.sess.Login("secret"))
	req := next[*pb.LoginRequest](t, e.host)
	want := crypto.Credential(crypto.PasswordHash("secret", "abc"), "xyz")
	assert.Equal(t, want, req.Password)
	assert.Equal(t, peerID, req.Username)
	assert.Equal(t, "tester", req.MyID)
	assert.Equal(t, "Tester", req.MyName)
	assert.True(t, req.VideoAckRequired)
	assert.Nil(t, req.Option)
	assert.Len(t, e.ui.boxesOf("connecting"), 1)

	e.send(&pb.LoginResponse{PeerInfo: oneDisplay()})
	e.eventually(func() bool { return e.sess.State() == domain.StateStreaming })
	assert.Equal(t, []box{{"success", "Successful", "Connected, waiting for image..."}}, e.ui.boxesOf("success"))
	assert.Len(t, e.ui.eventsNamed("peer_info"), 1)

	require.NoError(t, e.sess.Close())
	require.NoError(t, e.wait())
	assert.Equal(t, domain.StateClosed, e.sess.State())
	assert.Empty(t, e.ui.boxesOf("error"))
}

func TestLogin_CachedHashAnswersEachChallenge(t *testing.T) {
	hash := crypto.PasswordHash("pw", "salt")
	e := newEnv(t, setup{options: domain.Options{domain.OptPassword: crypto.B64(hash)}})
	e.start()

	e.send(&pb.Hash{Salt: "salt", Challenge: "c1"})
	r1 := next[*pb.LoginRequest](t, e.host)
	assert.Equal(t, crypto.Credential(hash, "c1"), r1.Password)
	e.eventually(func() bool { return e.sess.State() == domain.StateLoggingIn })
	assert.Empty(t, e.ui.boxesOf("input-password"))

	e.send(&pb.Hash{Salt: "salt", Challenge: "c2"})
	r2 := next[*pb.LoginRequest](t, e.host)
	assert.Equal(t, crypto.Credential(hash, "c2"), r2.Password)
	assert.NotEqual(t, r1.Password, r2.Password)
}

func TestLogin_Errors(t *testing.T) {
	cases := []struct {
		hostErr     string
		want        box
		clearsCache bool
	}{
		{"Empty Password", box{"input-password", "Password Required", ""}, true},
		{"Wrong Password", box{"re-input-password", "Wrong Password", "Do you want to enter again?"}, true},
		{"Wrong 2FA Code", box{"input-2fa", "Wrong 2FA Code", ""}, false},
		{"2FA Required", box{"input-2fa", "2FA Required", ""}, false},
		{"Access denied", box{"error", "Login Error", "Access denied"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.hostErr, func(t *testing.T) {
			hash := crypto.PasswordHash("pw", "s")
			e := newEnv(t, setup{options: domain.Options{domain.OptPassword: crypto.B64(hash)}})
			e.start()
			e.send(&pb.Hash{Salt: "s", Challenge: "c"})
			next[*pb.LoginRequest](t, e.host)

			e.send(&pb.LoginResponse{Error: tc.hostErr})
			e.eventually(func() bool { return len(e.ui.boxesOf(tc.want.kind)) > 0 })
			assert.Equal(t, tc.want, e.ui.boxesOf(tc.want.kind)[0])

			// A fresh challenge shows whether the cached hash survived.
			e.send(&pb.Hash{Salt: "s", Challenge: "c2"})
			req := next[*pb.LoginRequest](t, e.host)
			if tc.clearsCache {
				assert.Empty(t, req.Password)
			} else {
				assert.Equal(t, crypto.Credential(hash, "c2"), req.Password)
			}
		})
	}
}

func TestLogin_OptionsSentWithRequest(t *testing.T) {
	e := newEnv(t, setup{options: domain.Options{
		domain.OptImageQuality:     "best",
		domain.OptShowRemoteCursor: "Y",
		domain.OptDisableAudio:     "Y",
	}})
	e.start()
	e.send(&pb.Hash{Salt: "s", Challenge: "c"})
	req := next[*pb.LoginRequest](t, e.host)
	require.NotNil(t, req.Option)
	assert.Equal(t, pb.ImageQualityBest, req.Option.ImageQuality)
	assert.Equal(t, pb.BoolYes, req.Option.ShowRemoteCursor)
	assert.Equal(t, pb.BoolYes, req.Option.DisableAudio)
	assert.Equal(t, pb.BoolNotSet, req.Option.PrivacyMode)
}

func TestPeerInfo_NoDisplayIsFatal(t *testing.T) {
	e := newEnv(t, setup{})
	e.start()
	e.send(&pb.Hash{Salt: "s", Challenge: "c"})
	next[*pb.LoginRequest](t, e.host)
	e.send(&pb.LoginResponse{PeerInfo: &pb.PeerInfo{Platform: "Linux", Version: "1.2.0"}})

	require.ErrorIs(t, e.wait(), session.ErrNoDisplay)
	assert.Equal(t, []box{{"error", "Remote Error", "No Display"}}, e.ui.boxesOf("error"))
	assert.Equal(t, domain.StateFailed, e.sess.State())
	assert.NotNil(t, e.sess.PeerInfo())

	require.NoError(t, e.sess.Close())
	assert.Equal(t, domain.StateFailed, e.sess.State())
}

func TestPeerInfo_RememberStoresPassword(t *testing.T) {
	e := newEnv(t, setup{options: domain.Options{domain.OptRemember: "Y"}})
	e.start()
	e.login(oneDisplay())

	opts, err := e.store.LoadPeer(peerID)
	require.NoError(t, err)
	assert.Equal(t, crypto.B64(crypto.PasswordHash("secret", "abc")), opts[domain.OptPassword])
	assert.NotEmpty(t, opts[domain.OptTimestamp])

	var info map[string]any
	require.NoError(t, json.Unmarshal([]byte(opts[domain.OptInfo]), &info))
	assert.Equal(t, "desk", info["hostname"])
	assert.Equal(t, "alice", info["username"])

	last, err := e.store.Setting(domain.SettingLastRemoteID)
	require.NoError(t, err)
	assert.Equal(t, peerID, last)
}

func TestPeerInfo_ForgetsPasswordWithoutRemember(t *testing.T) {
	e := newEnv(t, setup{options: domain.Options{
		domain.OptPassword: crypto.B64([]byte("stale")),
		domain.OptInfo:     `{"username":"bob"}`,
	}})
	e.start()
	info := oneDisplay()
	info.Username = ""
	info.CurrentDisplay = 4
	info.Version = "1.1.9"
	e.login(info)

	opts, err := e.store.LoadPeer(peerID)
	require.NoError(t, err)
	assert.NotContains(t, opts, domain.OptPassword)

	pi := e.sess.PeerInfo()
	assert.Equal(t, "bob", pi.Username)
	assert.EqualValues(t, 0, pi.CurrentDisplay)
	assert.Contains(t, e.ui.eventsNamed("permission"), map[string]bool{"restart": false})
}

func TestVideo_OneAckPerBatch(t *testing.T) {
	e := newEnv(t, setup{})
	e.start()
	e.login(oneDisplay())

	batch := &pb.VideoFrame{Codec: pb.CodecVP9, Frames: []pb.EncodedVideoFrame{{Data: []byte{1}}, {Data: []byte{2}}, {Data: []byte{3}}}}
	e.send(batch)
	assert.True(t, bool(nextMisc[pb.VideoReceived](t, e.host)))
	e.send(batch)
	assert.True(t, bool(nextMisc[pb.VideoReceived](t, e.host)))
	e.alive()

	decoded, _, _ := e.dec.counts()
	assert.Equal(t, 6, decoded)
	assert.Len(t, e.ui.boxesOf(""), 1, "first frame clears the prompt once")
}

func TestVideo_AckEvenWhenEveryDecodeFails(t *testing.T) {
	e := newEnv(t, setup{})
	e.dec.failAll = true
	e.start()
	e.login(oneDisplay())

	e.send(&pb.VideoFrame{Codec: pb.CodecH264, Frames: []pb.EncodedVideoFrame{{Data: []byte{1}}, {Data: []byte{2}}}})
	nextMisc[pb.VideoReceived](t, e.host)
	e.alive()
}

func TestClipboardAndCursor(t *testing.T) {
	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	defer enc.Close()

	e := newEnv(t, setup{})
	e.start()

	e.send(&pb.Clipboard{Compress: true, Content: enc.EncodeAll([]byte("hello"), nil)})
	e.send(&pb.Clipboard{Content: []byte("plain")})
	e.send(&pb.Clipboard{Compress: true, Content: []byte("not zstd")})
	e.send(&pb.CursorData{ID: 7, Colors: enc.EncodeAll([]byte{1, 2, 3, 4}, nil)})
	e.send(&pb.CursorData{ID: 8, Colors: []byte("garbage")})
	e.send(pb.CursorID(7))
	e.send(&pb.CursorPosition{X: 10, Y: 20})
	e.alive()

	assert.Equal(t, []any{map[string]string{"text": "hello"}, map[string]string{"text": "plain"}}, e.ui.eventsNamed("clipboard"))
	cursors := e.ui.eventsNamed("cursor_data")
	require.Len(t, cursors, 1)
	assert.Equal(t, []byte{1, 2, 3, 4}, cursors[0].(*pb.CursorData).Colors)
	assert.Equal(t, []any{map[string]uint64{"id": 7}}, e.ui.eventsNamed("cursor_id"))
	assert.Equal(t, []any{map[string]int32{"x": 10, "y": 20}}, e.ui.eventsNamed("cursor_position"))
}

func TestTestDelayEcho(t *testing.T) {
	e := newEnv(t, setup{})
	e.start()
	e.send(&pb.TestDelay{Time: 1, FromClient: true})
	e.alive()
}

func TestMisc(t *testing.T) {
	e := newEnv(t, setup{})
	e.start()
	e.login(oneDisplay())

	e.sendMisc(&pb.AudioFormat{SampleRate: 48000, Channels: 2})
	e.send(&pb.AudioFrame{Data: []byte{1, 2}})
	e.sendMisc(&pb.ChatMessage{Text: "hi"})
	e.sendMisc(&pb.PermissionInfo{Permission: pb.PermissionKeyboard, Enabled: true})
	e.sendMisc(&pb.PermissionInfo{Permission: pb.PermissionClipboard})
	e.sendMisc(&pb.PermissionInfo{Permission: pb.PermissionFile, Enabled: true})
	e.sendMisc(&pb.SwitchDisplay{Display: 1, Width: 800, Height: 600})
	e.alive()

	e.audio.mu.Lock()
	assert.EqualValues(t, 2, e.audio.channels)
	assert.EqualValues(t, 48000, e.audio.rate)
	assert.Equal(t, 1, e.audio.chunks)
	e.audio.mu.Unlock()

	assert.Equal(t, []any{map[string]string{"text": "hi"}}, e.ui.eventsNamed("chat"))
	assert.Equal(t, []any{
		map[string]bool{"keyboard": true},
		map[string]bool{"clipboard": false},
	}, e.ui.eventsNamed("permission"))
	require.Len(t, e.ui.eventsNamed("switch_display"), 1)
	_, resets, _ := e.dec.counts()
	assert.Equal(t, 1, resets)

	e.sendMisc(pb.CloseReason("Host closed"))
	err := e.wait()
	var closed *session.ClosedByHostError
	require.ErrorAs(t, err, &closed)
	assert.Equal(t, "Host closed", closed.Reason)
	assert.Equal(t, []box{{"error", "Connection Error", "Host closed"}}, e.ui.boxesOf("error"))
	assert.Equal(t, domain.StateFailed, e.sess.State())
}

func TestTransportClosedByPeer(t *testing.T) {
	e := newEnv(t, setup{})
	e.start()
	require.NoError(t, e.host.Close())

	require.Error(t, e.wait())
	assert.Equal(t, []box{{"error", "Connection Error", "Reset by the peer"}}, e.ui.boxesOf("error"))
	assert.Equal(t, domain.StateFailed, e.sess.State())
}

func TestAwaitingPasswordSurvivesReadTimeouts(t *testing.T) {
	e := newEnv(t, setup{readTimeout: 200 * time.Millisecond})
	e.start()
	e.send(&pb.Hash{Salt: "abc", Challenge: "xyz"})
	next[*pb.LoginRequest](t, e.host)

	time.Sleep(600 * time.Millisecond)
	assert.Equal(t, domain.StateAwaitingPassword, e.sess.State())
	require.NoError(t, e.sess.Login("secret"))
	next[*pb.LoginRequest](t, e.host)
	e.send(&pb.LoginResponse{PeerInfo: oneDisplay()})
	e.eventually(func() bool { return e.sess.State() == domain.StateStreaming })
}

func TestLoginLateInReadWindowStillStreams(t *testing.T) {
	e := newEnv(t, setup{readTimeout: 300 * time.Millisecond})
	e.start()
	e.send(&pb.Hash{Salt: "abc", Challenge: "xyz"})
	next[*pb.LoginRequest](t, e.host)
	e.eventually(func() bool { return e.sess.State() == domain.StateAwaitingPassword })

	// The read started with the prompt times out after the password is in.
	time.Sleep(250 * time.Millisecond)
	require.NoError(t, e.sess.Login("secret"))
	req := next[*pb.LoginRequest](t, e.host)
	assert.Equal(t, crypto.Credential(crypto.PasswordHash("secret", "abc"), "xyz"), req.Password)
	time.Sleep(100 * time.Millisecond)

	e.send(&pb.LoginResponse{PeerInfo: oneDisplay()})
	e.eventually(func() bool { return e.sess.State() == domain.StateStreaming })
	assert.Empty(t, e.ui.boxesOf("error"))
}

func TestStateLeavesHandshakingOnlyWithLogin(t *testing.T) {
	e := newEnv(t, setup{})
	e.start()
	e.alive()
	assert.Equal(t, domain.StateHandshaking, e.sess.State())

	e.send(&pb.Hash{Salt: "abc", Challenge: "xyz"})
	next[*pb.LoginRequest](t, e.host)
	e.eventually(func() bool { return e.sess.State() == domain.StateAwaitingPassword })
}

func TestLoginOS_CarriesOSCredentials(t *testing.T) {
	e := newEnv(t, setup{})
	e.start()
	require.ErrorIs(t, e.sess.LoginOS("bob", "hunter2", "secret"), session.ErrNoChallenge)

	e.send(&pb.Hash{Salt: "abc", Challenge: "xyz"})
	next[*pb.LoginRequest](t, e.host)
	e.eventually(func() bool { return e.sess.State() == domain.StateAwaitingPassword })

	require.NoError(t, e.sess.LoginOS("bob", "hunter2", "secret"))
	req := next[*pb.LoginRequest](t, e.host)
	require.NotNil(t, req.OSLogin)
	assert.Equal(t, pb.OSLogin{Username: "bob", Password: "hunter2"}, *req.OSLogin)
	want := crypto.Credential(crypto.PasswordHash("secret", "abc"), "xyz")
	assert.Equal(t, want, req.Password)
	assert.Equal(t, domain.StateLoggingIn, e.sess.State())

	// An empty password reuses the hash cached by the previous attempt.
	require.NoError(t, e.sess.LoginOS("bob", "other", ""))
	req = next[*pb.LoginRequest](t, e.host)
	assert.Equal(t, want, req.Password)
	assert.Equal(t, "other", req.OSLogin.Password)
}

func TestTarget_BoundPerAttempt(t *testing.T) {
	e := newEnv(t, setup{})
	assert.Equal(t, domain.PeerIdentity{}, e.sess.Target())

	e.start()
	assert.Equal(t, domain.PeerIdentity{ID: peerID, Key: []byte("signed-pk")}, e.sess.Target())

	require.NoError(t, e.sess.Close())
	require.NoError(t, e.wait())
	assert.Equal(t, domain.PeerIdentity{}, e.sess.Target())
}

func TestSetOption_PersistsWithoutConnection(t *testing.T) {
	e := newEnv(t, setup{options: domain.Options{domain.OptDisableAudio: "Y"}})

	require.NoError(t, e.sess.SetOption(domain.OptImageQuality, "low"))
	require.NoError(t, e.sess.SetOption(domain.OptDisableAudio, ""))

	stored, err := e.store.LoadPeer(peerID)
	require.NoError(t, err)
	assert.Equal(t, "low", stored.Get(domain.OptImageQuality))
	assert.NotContains(t, stored, domain.OptDisableAudio)
	assert.NotEmpty(t, stored.Get(domain.OptTimestamp))
	assert.Equal(t, stored, e.sess.Options())
}

func TestClose_Idempotent(t *testing.T) {
	e := newEnv(t, setup{})
	e.start()

	require.NoError(t, e.sess.Close())
	require.NoError(t, e.sess.Close())
	require.NoError(t, e.wait())
	assert.Equal(t, domain.StateClosed, e.sess.State())
	_, _, closes := e.dec.counts()
	assert.Equal(t, 1, closes)

	require.ErrorIs(t, e.sess.Start(t.Context()), session.ErrClosed)
	require.ErrorIs(t, e.sess.Refresh(), session.ErrNotConnected)
}

func TestVersionNumber(t *testing.T) {
	cases := map[string]int64{
		"1.1.10":  1001100,
		"1.2.3":   1002030,
		"1.2.3-1": 1002031,
		"1.1.9":   1001090,
		"":        0,
		"x.y":     0,
	}
	for in, want := range cases {
		assert.Equal(t, want, session.VersionNumber(in), in)
	}
	assert.Less(t, session.VersionNumber("1.1.9"), session.VersionNumber("1.1.10"))
}
