// Package library drives the library REST service through the HTTP engine.
// It owns the session state and interprets the JSON payloads,
// the engine itself never looks inside a body.
package library

import (
	"bytes"
	"strings"
)

const (
	PathRegister = "/api/v1/tema/auth/register"
	PathLogin    = "/api/v1/tema/auth/login"
	PathLogout   = "/api/v1/tema/auth/logout"
	PathAccess   = "/api/v1/tema/library/access"
	PathBooks    = "/api/v1/tema/library/books/"

	ContentTypeJSON = "application/json"

	SessionCookieName = "connect.sid"
)

// Session is the client-side authentication state.
// The zero value is a logged out session.
type Session struct {
	LoggedIn  bool
	InLibrary bool

	Token  string // Bearer token granted by the library access endpoint.
	Cookie string // "connect.sid=<value>" as received at login.
}

func (s Session) cookies() []string {
	if s.Cookie == "" {
		return nil
	}
	return []string{s.Cookie}
}

var sessionCookiePrefix = []byte(SessionCookieName + "=")

// ExtractSessionCookie returns the session cookie found in raw, from
// "connect.sid=" up to (not including) the next ';'.
// Without a ';' the cookie ends at the end of its line.
func ExtractSessionCookie(raw []byte) (string, bool) {
	idx := bytes.Index(raw, sessionCookiePrefix)
	if idx < 0 {
		return "", false
	}

	cookie := raw[idx:]
	if end := bytes.IndexByte(cookie, ';'); end >= 0 {
		cookie = cookie[:end]
	} else if end := bytes.Index(cookie, []byte("\r\n")); end >= 0 {
		cookie = cookie[:end]
	}
	return string(cookie), true
}

type Command uint8

const (
	CommandUnknown Command = iota
	CommandRegister
	CommandLogin
	CommandLogout
	CommandEnterLibrary
	CommandGetBooks
	CommandGetBook
	CommandAddBook
	CommandDeleteBook
	CommandExit
)

var commandNames = map[Command]string{
	CommandRegister:     "register",
	CommandLogin:        "login",
	CommandLogout:       "logout",
	CommandEnterLibrary: "enter_library",
	CommandGetBooks:     "get_books",
	CommandGetBook:      "get_book",
	CommandAddBook:      "add_book",
	CommandDeleteBook:   "delete_book",
	CommandExit:         "exit",
}

var commandsByName = func() map[string]Command {
	m := make(map[string]Command, len(commandNames))
	for cmd, name := range commandNames {
		m[name] = cmd
	}
	return m
}()

func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return "unknown"
}

// ParseCommand maps user input to a Command.
// Surrounding whitespace is ignored and matching is case-insensitive.
func ParseCommand(input string) (Command, bool) {
	cmd, ok := commandsByName[strings.ToLower(strings.TrimSpace(input))]
	if !ok {
		return CommandUnknown, false
	}
	return cmd, true
}
