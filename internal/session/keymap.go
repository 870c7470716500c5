package session

import (
	"unicode/utf8"

	"deskwire/internal/pb"
)

// keyNames maps browser-style virtual key names to either a single
// character or a protocol control key name.
var keyNames = map[string]string{
	"VK_A": "a", "VK_B": "b", "VK_C": "c", "VK_D": "d", "VK_E": "e", "VK_F": "f",
	"VK_G": "g", "VK_H": "h", "VK_I": "i", "VK_J": "j", "VK_K": "k", "VK_L": "l",
	"VK_M": "m", "VK_N": "n", "VK_O": "o", "VK_P": "p", "VK_Q": "q", "VK_R": "r",
	"VK_S": "s", "VK_T": "t", "VK_U": "u", "VK_V": "v", "VK_W": "w", "VK_X": "x",
	"VK_Y": "y", "VK_Z": "z",
	"VK_0": "0", "VK_1": "1", "VK_2": "2", "VK_3": "3", "VK_4": "4",
	"VK_5": "5", "VK_6": "6", "VK_7": "7", "VK_8": "8", "VK_9": "9",
	"VK_COMMA": ",", "VK_SLASH": "/", "VK_SEMICOLON": ";", "VK_QUOTE": "'",
	"VK_LBRACKET": "[", "VK_RBRACKET": "]", "VK_BACKSLASH": "\\",
	"VK_MINUS": "-", "VK_PLUS": "=",
	"VK_F1": "F1", "VK_F2": "F2", "VK_F3": "F3", "VK_F4": "F4", "VK_F5": "F5", "VK_F6": "F6",
	"VK_F7": "F7", "VK_F8": "F8", "VK_F9": "F9", "VK_F10": "F10", "VK_F11": "F11", "VK_F12": "F12",
	"VK_ENTER": "Return", "VK_RETURN": "Return",
	"VK_BACK":    "Backspace",
	"VK_TAB":     "Tab",
	"VK_SHIFT":   "Shift",
	"VK_CONTROL": "Control",
	"VK_MENU":    "Alt",
	"VK_CAPITAL": "CapsLock",
	"VK_ESCAPE":  "Escape",
	"VK_SPACE":   "Space",
	"VK_PRIOR":   "PageUp",
	"VK_NEXT":    "PageDown",
	"VK_END":     "End",
	"VK_HOME":    "Home",
	"VK_LEFT":    "LeftArrow",
	"VK_UP":      "UpArrow",
	"VK_RIGHT":   "RightArrow",
	"VK_DOWN":    "DownArrow",
	"VK_INSERT":  "Insert",
	"VK_DELETE":  "Delete",
}

// mapKey converts a key name to a KeyEvent carrying either chr or
// control_key. It reports false for names it cannot map.
func mapKey(name string) (*pb.KeyEvent, bool) {
	if v, ok := keyNames[name]; ok {
		name = v
	}
	if r, size := utf8.DecodeRuneInString(name); size > 0 && size == len(name) && r != utf8.RuneError {
		return &pb.KeyEvent{Chr: uint32(r)}, true
	}
	if k, ok := pb.ControlKeyNames[name]; ok {
		return &pb.KeyEvent{ControlKey: k}, true
	}
	return nil, false
}
