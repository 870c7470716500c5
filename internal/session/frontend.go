package session

import "go.uber.org/zap"

func (f Frontend) withDefaults() Frontend {
	if f.UI == nil {
		f.UI = nopUI{}
	}
	if f.Decoder == nil {
		f.Decoder = nopDecoder{}
	}
	if f.Audio == nil {
		f.Audio = nopAudio{}
	}
	return f
}

type nopUI struct{}

func (nopUI) Msgbox(string, string, string, string) {}
func (nopUI) PushEvent(string, any)                 {}

type nopDecoder struct{}

func (nopDecoder) Decode(int32, string, []byte) error { return nil }
func (nopDecoder) Reset()                             {}
func (nopDecoder) Close() error                       { return nil }

type nopAudio struct{}

func (nopAudio) Init(uint32, uint32) {}
func (nopAudio) Play([]byte)         {}

// LogUI is a UI that writes prompts and events to a logger.
type LogUI struct {
	Log *zap.Logger
}

func (u LogUI) Msgbox(kind, title, text, link string) {
	u.Log.Info("msgbox",
		zap.String("kind", kind), zap.String("title", title),
		zap.String("text", text), zap.String("link", link))
}

func (u LogUI) PushEvent(name string, payload any) {
	u.Log.Debug("event", zap.String("name", name), zap.Any("payload", payload))
}
