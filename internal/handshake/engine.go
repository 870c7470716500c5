package handshake

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"deskwire/internal/crypto"
	"deskwire/internal/pb"
)

// Channel is the part of transport.Conn the handshake drives.
type Channel interface {
	SendMessage(m *pb.Message) error
	NextMessage(ctx context.Context) (*pb.Message, error)
	SetSecretKey(key *[32]byte) error
}

// Engine runs handshakes against one trust anchor.
type Engine struct {
	anchor *[32]byte
	log    *zap.Logger
}

// NewEngine verifies rendezvous-signed keys with anchor, a base64 signing
// key. An empty anchor selects crypto.DefaultTrustAnchor. An anchor that
// does not parse makes every handshake degrade.
func NewEngine(anchor string, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	if anchor == "" {
		anchor = crypto.DefaultTrustAnchor
	}
	k, err := crypto.ParseSigningKey(anchor)
	if err != nil {
		log.Warn("trust anchor unusable, sessions will be unsecured", zap.Error(err))
	}
	return &Engine{anchor: k, log: log}
}

var (
	errNoKey          = errors.New("no public key from rendezvous server")
	errIDMismatch     = errors.New("id mismatch")
	errKeyLength      = errors.New("invalid public box key length")
	errNotSignedID    = errors.New("expected signed id")
	errAnchorUnusable = errors.New("trust anchor unusable")
)

// Secure runs the client side of the handshake on ch and reports whether a
// session key was installed. It never fails: every problem downgrades, which
// sends an empty PublicKey so the host continues unsecured.
//
// Steps:
//  1. Open signedPk, the host key blob from the rendezvous server, with the
//     trust anchor and check it names id.
//  2. Wait for the host's SignedId and open it with that signing key to
//     learn the host's box key.
//  3. Generate an ephemeral box key pair and a random session key.
//  4. Seal the session key to the host's box key and send it in a
//     PublicKey message.
//  5. Install the session key on ch; later frames are encrypted.
func (e *Engine) Secure(ctx context.Context, ch Channel, id string, signedPk []byte) bool {
	log := e.log.With(zap.String("peer", id))
	signKey, err := e.peerSigningKey(id, signedPk)
	if err != nil {
		return e.downgrade(ch, log, "invalid public key from rendezvous server", err)
	}

	msg, err := ch.NextMessage(ctx)
	if err != nil {
		return e.downgrade(ch, log, "no signed id", err)
	}
	sid, ok := msg.Payload.(*pb.SignedID)
	if !ok {
		return e.downgrade(ch, log, "invalid message type", errNotSignedID)
	}
	theirBox, err := verifyIdentity(sid.ID, signKey, id)
	if err != nil {
		return e.downgrade(ch, log, "signed id rejected", err)
	}

	myPub, myPriv, err := crypto.GenerateBoxKeyPair()
	if err != nil {
		return e.downgrade(ch, log, "key generation", err)
	}
	defer crypto.WipeKey(myPriv)
	key, err := crypto.GenerateSessionKey()
	if err != nil {
		return e.downgrade(ch, log, "key generation", err)
	}
	defer crypto.WipeKey(key)

	sealed := crypto.SealSessionKey(key, theirBox, myPriv)
	if err := ch.SendMessage(pb.NewMessage(&pb.PublicKey{AsymmetricValue: myPub[:], SymmetricValue: sealed})); err != nil {
		log.Warn("handshake send failed", zap.Error(err))
		return false
	}
	if err := ch.SetSecretKey(key); err != nil {
		log.Warn("install session key", zap.Error(err))
		return false
	}
	log.Info("handshake complete", zap.Bool("secure", true))
	return true
}

// peerSigningKey opens the rendezvous-signed IdPk and returns the host's
// signing key if it is bound to id.
func (e *Engine) peerSigningKey(id string, signedPk []byte) (*[32]byte, error) {
	if len(signedPk) == 0 {
		return nil, errNoKey
	}
	if e.anchor == nil {
		return nil, errAnchorUnusable
	}
	return verifyIdentity(signedPk, e.anchor, id)
}

// verifyIdentity opens a signed IdPk and checks it names id and a 32-byte
// key.
func verifyIdentity(signed []byte, by *[32]byte, id string) (*[32]byte, error) {
	raw, err := crypto.OpenSigned(signed, by)
	if err != nil {
		return nil, err
	}
	idpk, err := pb.UnmarshalIdPk(raw)
	if err != nil {
		return nil, err
	}
	if idpk.ID != id {
		return nil, errIDMismatch
	}
	if len(idpk.Pk) != crypto.KeySize {
		return nil, errKeyLength
	}
	var k [32]byte
	copy(k[:], idpk.Pk)
	return &k, nil
}

func (e *Engine) downgrade(ch Channel, log *zap.Logger, reason string, err error) bool {
	log.Warn("handshake degraded", zap.Bool("secure", false), zap.String("reason", reason), zap.Error(err))
	if err := ch.SendMessage(pb.NewMessage(&pb.PublicKey{})); err != nil {
		log.Debug("send empty public key", zap.Error(err))
	}
	return false
}
