package switchbot

import (
	"encoding/hex"
	"fmt"
	"hash/crc32"
)

// Command keys, as hex strings. The first byte is the request header.
const (
	keyBotPress = "570100"
	keyBotOn    = "570101"
	keyBotOff   = "570102"

	keyCurtainOpen     = "570f450105ff00"
	keyCurtainClose    = "570f450105ff64"
	keyCurtainStop     = "570f450100ff"
	keyCurtainPosition = "570f450105ff" // followed by one position byte

	keyBasicInfo = "5702"

	// passwordPrefix replaces the first three hex digits of a key when a
	// password is set; the encoded password follows the action digit.
	passwordPrefix = "571"
)

// Response status bytes.
const (
	statusOK      = 0x01
	statusOKBusy  = 0x05
	statusAuthErr = 0x09
)

// Offsets into a basic info response.
const (
	infoBatteryOffset  = 1
	infoPositionOffset = 6
)

// encodePassword returns the CRC32 of password as eight hex digits,
// or "" when there is no password.
func encodePassword(password string) string {
	if password == "" {
		return ""
	}
	return fmt.Sprintf("%08x", crc32.ChecksumIEEE([]byte(password)))
}

// commandBytes builds the wire payload for key, inserting the encoded
// password when one is set.
func commandBytes(key, encodedPassword string) ([]byte, error) {
	if encodedPassword != "" {
		if len(key) < 4 {
			return nil, fmt.Errorf("command key %q too short", key)
		}
		key = passwordPrefix + key[3:4] + encodedPassword + key[4:]
	}
	return hex.DecodeString(key)
}

// checkStatus interprets the first response byte.
func checkStatus(resp []byte) error {
	if len(resp) == 0 {
		return ErrMalformedResponse
	}
	switch resp[0] {
	case statusOK, statusOKBusy:
		return nil
	case statusAuthErr:
		return ErrAuthFailed
	default:
		return fmt.Errorf("%w: status 0x%02x", ErrCommandFailed, resp[0])
	}
}

// positionKey encodes a curtain position in reverse mode.
func positionKey(percent int) string {
	return fmt.Sprintf("%s%02x", keyCurtainPosition, 100-percent)
}
