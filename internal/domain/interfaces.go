package domain

// OptionStore persists per-peer options and process-wide settings.
type OptionStore interface {
	LoadPeer(id string) (Options, error)
	SavePeer(id string, opts Options) error
	DeletePeer(id string) error
	ListPeers() ([]string, error)

	Setting(key string) (string, error)
	SetSetting(key, value string) error
}

// UI receives prompts and named events from a session.
type UI interface {
	// Msgbox shows a categorized prompt. kind is e.g. "error",
	// "input-password", "re-input-password", "input-2fa", "success".
	Msgbox(kind, title, text, link string)
	// PushEvent delivers a named event with a JSON-friendly payload.
	PushEvent(name string, payload any)
}

// VideoDecoder decodes one encoded unit at a time. Decode returning is the
// completion of that unit, whatever the error.
type VideoDecoder interface {
	Decode(display int32, codec string, data []byte) error
	// Reset reinitializes decoder state, e.g. after a display switch.
	Reset()
	Close() error
}

// AudioSink plays PCM or encoded audio chunks.
type AudioSink interface {
	Init(channels, sampleRate uint32)
	Play(data []byte)
}

// Clipboard receives text copied on the remote side.
type Clipboard interface {
	SetText(text string) error
}
