package commands

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"deskwire/internal/session"
)

// consoleUI prints prompts to out and answers credential prompts from the
// --password flag first, then from lines read on in.
type consoleUI struct {
	log  session.LogUI
	out  io.Writer
	in   *bufio.Scanner
	sess *session.Session

	// osUser and osPassword, when set, ride along with every login.
	osUser     string
	osPassword string

	mu       sync.Mutex
	password string

	// scanMu serializes terminal reads.
	scanMu sync.Mutex
}

func newConsoleUI(log *zap.Logger, in io.Reader, out io.Writer, password string) *consoleUI {
	return &consoleUI{
		log:      session.LogUI{Log: log},
		out:      out,
		in:       bufio.NewScanner(in),
		password: password,
	}
}

func (u *consoleUI) Msgbox(kind, title, text, link string) {
	u.log.Msgbox(kind, title, text, link)
	switch kind {
	case "input-password", "re-input-password":
		if pw := u.takePassword(); pw != "" {
			go u.answer(func() error { return u.login(pw) })
			return
		}
		fmt.Fprint(u.out, "Password: ")
		go u.prompt(u.login)
	case "input-2fa":
		fmt.Fprint(u.out, "2FA code: ")
		go u.prompt(u.sess.Send2FA)
	case "":
	default:
		if title != "" || text != "" {
			fmt.Fprintf(u.out, "[%s] %s: %s\n", kind, title, text)
		}
	}
}

func (u *consoleUI) PushEvent(name string, payload any) {
	u.log.PushEvent(name, payload)
	switch name {
	case "connection_ready", "peer_info", "chat_client_mode":
		fmt.Fprintf(u.out, "%s %v\n", name, payload)
	}
}

func (u *consoleUI) login(password string) error {
	if u.osUser != "" {
		return u.sess.LoginOS(u.osUser, u.osPassword, password)
	}
	return u.sess.Login(password)
}

// takePassword hands out the flag password once so a wrong one falls back
// to the terminal.
func (u *consoleUI) takePassword() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	pw := u.password
	u.password = ""
	return pw
}

func (u *consoleUI) prompt(submit func(string) error) {
	u.scanMu.Lock()
	ok := u.in.Scan()
	line := strings.TrimSpace(u.in.Text())
	u.scanMu.Unlock()
	if !ok {
		return
	}
	u.answer(func() error { return submit(line) })
}

func (u *consoleUI) answer(f func() error) {
	if err := f(); err != nil {
		fmt.Fprintf(u.out, "error: %v\n", err)
	}
}

// frameCounter is a decoder for headless sessions. It accepts every unit
// and only counts them.
type frameCounter struct {
	frames atomic.Int64
	resets atomic.Int64
}

func (d *frameCounter) Decode(int32, string, []byte) error {
	d.frames.Add(1)
	return nil
}

func (d *frameCounter) Reset() { d.resets.Add(1) }

func (d *frameCounter) Close() error { return nil }

// clipboardPrinter writes remote clipboard text to out.
type clipboardPrinter struct {
	out io.Writer
}

func (c clipboardPrinter) SetText(text string) error {
	_, err := fmt.Fprintf(c.out, "clipboard: %s\n", text)
	return err
}
