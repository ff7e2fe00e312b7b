package domain

import "strings"

// JID is a messaging identity in "user@server" form, optionally carrying a
// device suffix ("user:12@server").
type JID string

// StatusBroadcast is the reserved conversation target for status updates.
const StatusBroadcast JID = "status@broadcast"

// Normalized strips the device and agent suffix so that every device of the
// same account maps to one JID.
func (j JID) Normalized() JID {
	user, server, ok := strings.Cut(string(j), "@")
	if !ok {
		return j
	}
	if i := strings.IndexAny(user, ":_"); i >= 0 {
		user = user[:i]
	}
	if server == "c.us" {
		server = "s.whatsapp.net"
	}
	return JID(user + "@" + server)
}

// User returns the part before the '@'.
func (j JID) User() string {
	user, _, _ := strings.Cut(string(j), "@")
	return user
}

func (j JID) String() string { return string(j) }
