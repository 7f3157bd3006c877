// Package switchbot encodes SwitchBot Bot and Curtain commands and decodes
// their responses.
//
// Commands are hex keys starting with the 0x57 request header. When a
// device has a password, the key's leading "570" becomes "571" and the
// CRC32 of the password is inserted after the action digit.
//
// Curtains are driven in reverse mode, so position 0 means fully closed
// and 100 fully open.
package switchbot
