package pb

import "google.golang.org/protobuf/encoding/protowire"

// ControlKey is a non-character key.
type ControlKey int32

const (
	KeyUnknown    ControlKey = 0
	KeyAlt        ControlKey = 1
	KeyBackspace  ControlKey = 2
	KeyCapsLock   ControlKey = 3
	KeyControl    ControlKey = 4
	KeyDelete     ControlKey = 5
	KeyDownArrow  ControlKey = 6
	KeyEnd        ControlKey = 7
	KeyEscape     ControlKey = 8
	KeyF1         ControlKey = 9
	KeyF10        ControlKey = 10
	KeyF11        ControlKey = 11
	KeyF12        ControlKey = 12
	KeyF2         ControlKey = 13
	KeyF3         ControlKey = 14
	KeyF4         ControlKey = 15
	KeyF5         ControlKey = 16
	KeyF6         ControlKey = 17
	KeyF7         ControlKey = 18
	KeyF8         ControlKey = 19
	KeyF9         ControlKey = 20
	KeyHome       ControlKey = 21
	KeyLeftArrow  ControlKey = 22
	KeyMeta       ControlKey = 23
	KeyOption     ControlKey = 24
	KeyPageDown   ControlKey = 25
	KeyPageUp     ControlKey = 26
	KeyReturn     ControlKey = 27
	KeyRightArrow ControlKey = 28
	KeyShift      ControlKey = 29
	KeySpace      ControlKey = 30
	KeyTab        ControlKey = 31
	KeyUpArrow    ControlKey = 32
	KeyInsert     ControlKey = 58
	KeyRWin       ControlKey = 64
	KeyRShift     ControlKey = 73
	KeyRControl   ControlKey = 74
	KeyRAlt       ControlKey = 75
	KeyCtrlAltDel ControlKey = 100
	KeyLockScreen ControlKey = 101
)

// ControlKeyNames maps the protocol names of control keys to values.
var ControlKeyNames = map[string]ControlKey{
	"Alt": KeyAlt, "Backspace": KeyBackspace, "CapsLock": KeyCapsLock,
	"Control": KeyControl, "Delete": KeyDelete, "DownArrow": KeyDownArrow,
	"End": KeyEnd, "Escape": KeyEscape,
	"F1": KeyF1, "F2": KeyF2, "F3": KeyF3, "F4": KeyF4, "F5": KeyF5, "F6": KeyF6,
	"F7": KeyF7, "F8": KeyF8, "F9": KeyF9, "F10": KeyF10, "F11": KeyF11, "F12": KeyF12,
	"Home": KeyHome, "LeftArrow": KeyLeftArrow, "Meta": KeyMeta, "Option": KeyOption,
	"PageDown": KeyPageDown, "PageUp": KeyPageUp, "Return": KeyReturn,
	"RightArrow": KeyRightArrow, "Shift": KeyShift, "Space": KeySpace, "Tab": KeyTab,
	"UpArrow": KeyUpArrow, "Insert": KeyInsert, "RWin": KeyRWin, "RShift": KeyRShift,
	"RControl": KeyRControl, "RAlt": KeyRAlt, "CtrlAltDel": KeyCtrlAltDel,
	"LockScreen": KeyLockScreen,
}

func appendKeys(b []byte, num protowire.Number, keys []ControlKey) []byte {
	if len(keys) == 0 {
		return b
	}
	vs := make([]int32, len(keys))
	for i, k := range keys {
		vs[i] = int32(k)
	}
	return appendPackedInt32s(b, num, vs)
}

func readKeys(f field, dst []ControlKey) ([]ControlKey, error) {
	vs, err := f.int32s(nil)
	for _, v := range vs {
		dst = append(dst, ControlKey(v))
	}
	return dst, err
}

// MouseEvent is a pointer move or button change. Mask packs the button in
// the low 3 bits and the event type above them.
type MouseEvent struct {
	Mask      int32
	X         int32
	Y         int32
	Modifiers []ControlKey
}

func (*MouseEvent) messageField() protowire.Number { return msgMouseEvent }

func (m *MouseEvent) marshal() []byte {
	var b []byte
	b = appendInt32(b, 1, m.Mask)
	b = appendSint32(b, 2, m.X)
	b = appendSint32(b, 3, m.Y)
	b = appendKeys(b, 4, m.Modifiers)
	return b
}

func (m *MouseEvent) unmarshal(b []byte) error {
	return parse(b, func(f field) error {
		var err error
		switch f.num {
		case 1:
			m.Mask, err = f.int32()
		case 2:
			m.X, err = f.sint32()
		case 3:
			m.Y, err = f.sint32()
		case 4:
			m.Modifiers, err = readKeys(f, m.Modifiers)
		}
		return err
	})
}

// KeyEvent is a key press or release. At most one of ControlKey, Chr,
// Unicode and Seq is meaningful; they are checked in that order.
type KeyEvent struct {
	Down       bool
	Press      bool
	ControlKey ControlKey
	Chr        uint32
	Unicode    uint32
	Seq        string
	Modifiers  []ControlKey
}

func (*KeyEvent) messageField() protowire.Number { return msgKeyEvent }

func (k *KeyEvent) marshal() []byte {
	var b []byte
	b = appendBool(b, 1, k.Down)
	b = appendBool(b, 2, k.Press)
	switch {
	case k.ControlKey != KeyUnknown:
		b = appendUvarintAlways(b, 3, uint64(int64(k.ControlKey)))
	case k.Chr != 0:
		b = appendUvarintAlways(b, 4, uint64(k.Chr))
	case k.Unicode != 0:
		b = appendUvarintAlways(b, 5, uint64(k.Unicode))
	case k.Seq != "":
		b = appendStringAlways(b, 6, k.Seq)
	}
	b = appendKeys(b, 8, k.Modifiers)
	return b
}

func (k *KeyEvent) unmarshal(b []byte) error {
	return parse(b, func(f field) error {
		var (
			v   uint64
			err error
		)
		switch f.num {
		case 1:
			k.Down, err = f.boolean()
		case 2:
			k.Press, err = f.boolean()
		case 3:
			var c int32
			c, err = f.int32()
			k.ControlKey = ControlKey(c)
		case 4:
			v, err = f.varint()
			k.Chr = uint32(v)
		case 5:
			v, err = f.varint()
			k.Unicode = uint32(v)
		case 6:
			k.Seq, err = f.str()
		case 8:
			k.Modifiers, err = readKeys(f, k.Modifiers)
		}
		return err
	})
}
