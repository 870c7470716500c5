package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"deskwire/internal/domain"
	"deskwire/internal/handshake"
	"deskwire/internal/pb"
	"deskwire/internal/session"
	"deskwire/internal/store"
	"deskwire/internal/transport"
)

const peerID = "123456789"

type box struct{ kind, title, text string }

type event struct {
	name    string
	payload any
}

type recordingUI struct {
	mu     sync.Mutex
	boxes  []box
	events []event
}

func (u *recordingUI) Msgbox(kind, title, text, _ string) {
	u.mu.Lock()
	u.boxes = append(u.boxes, box{kind, title, text})
	u.mu.Unlock()
}

func (u *recordingUI) PushEvent(name string, payload any) {
	u.mu.Lock()
	u.events = append(u.events, event{name, payload})
	u.mu.Unlock()
}

func (u *recordingUI) boxesOf(kind string) []box {
	u.mu.Lock()
	defer u.mu.Unlock()
	var out []box
	for _, b := range u.boxes {
		if b.kind == kind {
			out = append(out, b)
		}
	}
	return out
}

func (u *recordingUI) eventsNamed(name string) []any {
	u.mu.Lock()
	defer u.mu.Unlock()
	var out []any
	for _, e := range u.events {
		if e.name == name {
			out = append(out, e.payload)
		}
	}
	return out
}

type countingDecoder struct {
	mu      sync.Mutex
	decoded int
	resets  int
	closes  int
	failAll bool
}

func (d *countingDecoder) Decode(int32, string, []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.decoded++
	if d.failAll || d.decoded%2 == 0 {
		return errors.New("decode failed")
	}
	return nil
}

func (d *countingDecoder) Reset() {
	d.mu.Lock()
	d.resets++
	d.mu.Unlock()
}

func (d *countingDecoder) Close() error {
	d.mu.Lock()
	d.closes++
	d.mu.Unlock()
	return nil
}

func (d *countingDecoder) counts() (decoded, resets, closes int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.decoded, d.resets, d.closes
}

type recordingAudio struct {
	mu       sync.Mutex
	channels uint32
	rate     uint32
	chunks   int
}

func (a *recordingAudio) Init(channels, sampleRate uint32) {
	a.mu.Lock()
	a.channels, a.rate = channels, sampleRate
	a.mu.Unlock()
}

func (a *recordingAudio) Play([]byte) {
	a.mu.Lock()
	a.chunks++
	a.mu.Unlock()
}

type fakeNegotiator struct {
	desc    domain.ConnectionDescriptor
	err     error
	relayed chan domain.ConnectionDescriptor
}

func (f *fakeNegotiator) Negotiate(context.Context, string) (domain.ConnectionDescriptor, error) {
	return f.desc, f.err
}

func (f *fakeNegotiator) RequestRelay(_ *transport.Conn, desc domain.ConnectionDescriptor) error {
	f.relayed <- desc
	return nil
}

// plainSecurer always declines encryption, as the engine does when the
// peer key cannot be verified.
type plainSecurer struct{}

func (plainSecurer) Secure(_ context.Context, ch handshake.Channel, _ string, _ []byte) bool {
	_ = ch.SendMessage(pb.NewMessage(&pb.PublicKey{}))
	return false
}

type setup struct {
	negotiateErr error
	options      domain.Options
	readTimeout  time.Duration
}

type env struct {
	t      *testing.T
	sess   *session.Session
	host   *transport.Conn
	ui     *recordingUI
	dec    *countingDecoder
	audio  *recordingAudio
	store  domain.OptionStore
	neg    *fakeNegotiator
	dialed chan struct{}
	done   chan error
}

func newEnv(t *testing.T, st setup) *env {
	t.Helper()
	clientEnd, hostEnd := transport.Pipe()
	readTimeout := st.readTimeout
	if readTimeout == 0 {
		readTimeout = -1
	}
	e := &env{
		t:      t,
		host:   transport.NewConn(hostEnd, transport.Options{ReadTimeout: 2 * time.Second}),
		ui:     &recordingUI{},
		dec:    &countingDecoder{},
		audio:  &recordingAudio{},
		store:  store.NewOptionFileStore(t.TempDir()),
		dialed: make(chan struct{}, 1),
		done:   make(chan error, 1),
		neg: &fakeNegotiator{
			desc: domain.ConnectionDescriptor{
				Endpoint:    "ws://relay.test:21119",
				Kind:        domain.ConnRelay,
				PeerVersion: "1.2.0",
				PeerKey:     []byte("signed-pk"),
				UUID:        "relay-uuid",
			},
			err:     st.negotiateErr,
			relayed: make(chan domain.ConnectionDescriptor, 1),
		},
	}
	t.Cleanup(func() { _ = e.host.Close() })
	if st.options != nil {
		require.NoError(t, e.store.SavePeer(peerID, st.options))
	}

	dial := func(context.Context, string) (*transport.Conn, error) {
		e.dialed <- struct{}{}
		return transport.NewConn(clientEnd, transport.Options{ReadTimeout: readTimeout}), nil
	}
	sess, err := session.New(peerID, session.Deps{
		Negotiator: e.neg,
		Dial:       dial,
		Handshake:  plainSecurer{},
		Store:      e.store,
	}, session.Frontend{UI: e.ui, Decoder: e.dec, Audio: e.audio}, session.Config{MyID: "tester", MyName: "Tester"})
	require.NoError(t, err)
	e.sess = sess
	t.Cleanup(func() { _ = sess.Close() })
	return e
}

// start runs the session in the background and consumes the unsecured
// handshake reply.
func (e *env) start() {
	e.t.Helper()
	go func() { e.done <- e.sess.Start(context.Background()) }()
	next[*pb.PublicKey](e.t, e.host)
}

func (e *env) send(p pb.Payload) {
	e.t.Helper()
	require.NoError(e.t, e.host.SendMessage(pb.NewMessage(p)))
}

func (e *env) sendMisc(p pb.MiscPayload) {
	e.t.Helper()
	require.NoError(e.t, e.host.SendMessage(pb.NewMisc(p)))
}

func (e *env) wait() error {
	e.t.Helper()
	select {
	case err := <-e.done:
		return err
	case <-time.After(3 * time.Second):
		e.t.Fatal("session did not end")
		return nil
	}
}

func (e *env) eventually(cond func() bool) {
	e.t.Helper()
	require.Eventually(e.t, cond, 2*time.Second, 5*time.Millisecond)
}

// login answers the first challenge with a plain password and brings the
// session to Streaming.
func (e *env) login(info *pb.PeerInfo) {
	e.t.Helper()
	e.send(&pb.Hash{Salt: "abc", Challenge: "xyz"})
	next[*pb.LoginRequest](e.t, e.host)
	require.NoError(e.t, e.sess.Login("secret"))
	next[*pb.LoginRequest](e.t, e.host)
	e.send(&pb.LoginResponse{PeerInfo: info})
	e.eventually(func() bool { return e.sess.State() == domain.StateStreaming })
}

// alive proves the loop is still dispatching by round-tripping a test delay.
func (e *env) alive() {
	e.t.Helper()
	e.send(&pb.TestDelay{Time: 42})
	td := next[*pb.TestDelay](e.t, e.host)
	require.EqualValues(e.t, 42, td.Time)
}

func next[T any](t *testing.T, host *transport.Conn) T {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	m, err := host.NextMessage(ctx)
	require.NoError(t, err)
	p, ok := m.Payload.(T)
	require.Truef(t, ok, "want %T, got %T", *new(T), m.Payload)
	return p
}

func nextMisc[T any](t *testing.T, host *transport.Conn) T {
	t.Helper()
	m := next[*pb.Misc](t, host)
	p, ok := m.Payload.(T)
	require.Truef(t, ok, "want misc %T, got %T", *new(T), m.Payload)
	return p
}

func oneDisplay() *pb.PeerInfo {
	return &pb.PeerInfo{
		Username: "alice",
		Hostname: "desk",
		Platform: "Linux",
		Version:  "1.2.0",
		Displays: []pb.DisplayInfo{{Width: 1920, Height: 1080}},
	}
}
