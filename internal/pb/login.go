package pb

import "google.golang.org/protobuf/encoding/protowire"

// LoginRequest authenticates the client to the host.
type LoginRequest struct {
	Username         string
	Password         []byte
	MyID             string
	MyName           string
	Option           *OptionMessage
	VideoAckRequired bool
	OSLogin          *OSLogin
}

func (*LoginRequest) messageField() protowire.Number { return msgLoginRequest }

func (l *LoginRequest) marshal() []byte {
	var b []byte
	b = appendString(b, 1, l.Username)
	b = appendBytes(b, 2, l.Password)
	b = appendString(b, 4, l.MyID)
	b = appendString(b, 5, l.MyName)
	if l.Option != nil {
		b = appendMessage(b, 6, l.Option.marshal())
	}
	b = appendBool(b, 9, l.VideoAckRequired)
	if l.OSLogin != nil {
		b = appendMessage(b, 12, l.OSLogin.marshal())
	}
	return b
}

func (l *LoginRequest) unmarshal(b []byte) error {
	return parse(b, func(f field) error {
		var err error
		switch f.num {
		case 1:
			l.Username, err = f.str()
		case 2:
			l.Password, err = f.bytes()
		case 4:
			l.MyID, err = f.str()
		case 5:
			l.MyName, err = f.str()
		case 6:
			l.Option, err = decodeInto(f, &OptionMessage{})
		case 9:
			l.VideoAckRequired, err = f.boolean()
		case 12:
			l.OSLogin, err = decodeInto(f, &OSLogin{})
		}
		return err
	})
}

// OSLogin carries operating-system credentials for the host's login screen.
type OSLogin struct {
	Username string
	Password string
}

func (o *OSLogin) marshal() []byte {
	var b []byte
	b = appendString(b, 1, o.Username)
	b = appendString(b, 2, o.Password)
	return b
}

func (o *OSLogin) unmarshal(b []byte) error {
	return parse(b, func(f field) error {
		var err error
		switch f.num {
		case 1:
			o.Username, err = f.str()
		case 2:
			o.Password, err = f.str()
		}
		return err
	})
}

// LoginResponse is either an error string or the host's PeerInfo.
type LoginResponse struct {
	Error    string
	PeerInfo *PeerInfo
}

func (*LoginResponse) messageField() protowire.Number { return msgLoginResponse }

func (l *LoginResponse) marshal() []byte {
	if l.PeerInfo != nil {
		return appendMessage(nil, 2, l.PeerInfo.marshal())
	}
	return appendStringAlways(nil, 1, l.Error)
}

func (l *LoginResponse) unmarshal(b []byte) error {
	return parse(b, func(f field) error {
		var err error
		switch f.num {
		case 1:
			l.Error, err = f.str()
		case 2:
			l.PeerInfo, err = decodeInto(f, &PeerInfo{})
		}
		return err
	})
}

// PeerInfo describes the host after a successful login.
type PeerInfo struct {
	Username       string
	Hostname       string
	Platform       string
	Displays       []DisplayInfo
	CurrentDisplay int32
	SasEnabled     bool
	Version        string
	ConnID         int32
}

func (p *PeerInfo) marshal() []byte {
	var b []byte
	b = appendString(b, 1, p.Username)
	b = appendString(b, 2, p.Hostname)
	b = appendString(b, 3, p.Platform)
	for i := range p.Displays {
		b = appendMessage(b, 4, p.Displays[i].marshal())
	}
	b = appendInt32(b, 5, p.CurrentDisplay)
	b = appendBool(b, 6, p.SasEnabled)
	b = appendString(b, 7, p.Version)
	b = appendInt32(b, 8, p.ConnID)
	return b
}

func (p *PeerInfo) unmarshal(b []byte) error {
	return parse(b, func(f field) error {
		var err error
		switch f.num {
		case 1:
			p.Username, err = f.str()
		case 2:
			p.Hostname, err = f.str()
		case 3:
			p.Platform, err = f.str()
		case 4:
			var d *DisplayInfo
			if d, err = decodeInto(f, &DisplayInfo{}); err == nil {
				p.Displays = append(p.Displays, *d)
			}
		case 5:
			p.CurrentDisplay, err = f.int32()
		case 6:
			p.SasEnabled, err = f.boolean()
		case 7:
			p.Version, err = f.str()
		case 8:
			p.ConnID, err = f.int32()
		}
		return err
	})
}

// DisplayInfo describes one remote monitor.
type DisplayInfo struct {
	X      int32
	Y      int32
	Width  int32
	Height int32
	Name   string
	Online bool
}

func (d *DisplayInfo) marshal() []byte {
	var b []byte
	b = appendSint32(b, 1, d.X)
	b = appendSint32(b, 2, d.Y)
	b = appendInt32(b, 3, d.Width)
	b = appendInt32(b, 4, d.Height)
	b = appendString(b, 5, d.Name)
	b = appendBool(b, 6, d.Online)
	return b
}

func (d *DisplayInfo) unmarshal(b []byte) error {
	return parse(b, func(f field) error {
		var err error
		switch f.num {
		case 1:
			d.X, err = f.sint32()
		case 2:
			d.Y, err = f.sint32()
		case 3:
			d.Width, err = f.int32()
		case 4:
			d.Height, err = f.int32()
		case 5:
			d.Name, err = f.str()
		case 6:
			d.Online, err = f.boolean()
		}
		return err
	})
}

// ImageQuality is the requested video quality preset.
type ImageQuality int32

const (
	ImageQualityNotSet   ImageQuality = 0
	ImageQualityLow      ImageQuality = 2
	ImageQualityBalanced ImageQuality = 3
	ImageQualityBest     ImageQuality = 4
)

// BoolOption is a tri-state toggle; NotSet leaves the host's value alone.
type BoolOption int32

const (
	BoolNotSet BoolOption = 0
	BoolNo     BoolOption = 1
	BoolYes    BoolOption = 2
)

// BoolOf maps v to Yes or No.
func BoolOf(v bool) BoolOption {
	if v {
		return BoolYes
	}
	return BoolNo
}

// OptionMessage carries session options in a login or a Misc update.
type OptionMessage struct {
	ImageQuality        ImageQuality
	LockAfterSessionEnd BoolOption
	ShowRemoteCursor    BoolOption
	PrivacyMode         BoolOption
	BlockInput          BoolOption
	CustomImageQuality  int32
	DisableAudio        BoolOption
	DisableClipboard    BoolOption
	EnableFileTransfer  BoolOption
}

func (o *OptionMessage) marshal() []byte {
	var b []byte
	b = appendInt32(b, 1, int32(o.ImageQuality))
	b = appendInt32(b, 2, int32(o.LockAfterSessionEnd))
	b = appendInt32(b, 3, int32(o.ShowRemoteCursor))
	b = appendInt32(b, 4, int32(o.PrivacyMode))
	b = appendInt32(b, 5, int32(o.BlockInput))
	b = appendInt32(b, 6, o.CustomImageQuality)
	b = appendInt32(b, 7, int32(o.DisableAudio))
	b = appendInt32(b, 8, int32(o.DisableClipboard))
	b = appendInt32(b, 9, int32(o.EnableFileTransfer))
	return b
}

func (o *OptionMessage) unmarshal(b []byte) error {
	return parse(b, func(f field) error {
		if f.num < 1 || f.num > 9 {
			return nil
		}
		v, err := f.int32()
		if err != nil {
			return err
		}
		switch f.num {
		case 1:
			o.ImageQuality = ImageQuality(v)
		case 2:
			o.LockAfterSessionEnd = BoolOption(v)
		case 3:
			o.ShowRemoteCursor = BoolOption(v)
		case 4:
			o.PrivacyMode = BoolOption(v)
		case 5:
			o.BlockInput = BoolOption(v)
		case 6:
			o.CustomImageQuality = v
		case 7:
			o.DisableAudio = BoolOption(v)
		case 8:
			o.DisableClipboard = BoolOption(v)
		case 9:
			o.EnableFileTransfer = BoolOption(v)
		}
		return nil
	})
}
