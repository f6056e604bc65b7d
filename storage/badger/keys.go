package badger

import (
	"encoding/binary"
)

// Key prefixes for different data types
const (
	userRecordPrefix    = "usrrec"
	messageRecordPrefix = "msgrec"
	messageCountPrefix  = "msgcnt"
)

// lenPrefixed appends a length-prefixed username to buf. Usernames are
// free-form strings, so a plain separator would let one user's prefix
// scan bleed into another's keys.
func lenPrefixed(buf []byte, username string) []byte {
	var lenBytes [4]byte
	binary.BigEndian.PutUint32(lenBytes[:], uint32(len(username)))
	buf = append(buf, lenBytes[:]...)
	return append(buf, username...)
}

// makeUserKey generates the marker key recording that a user exists.
func makeUserKey(username string) []byte {
	return lenPrefixed([]byte(userRecordPrefix), username)
}

// makeMessageKey generates a key for one message in a user's log.
// Format: prefix:lenPrefixedUsername:seq
func makeMessageKey(username string, seq uint64) []byte {
	buf := lenPrefixed([]byte(messageRecordPrefix), username)
	totalSize := len(buf) + 8
	key := make([]byte, totalSize)
	offset := copy(key, buf)
	// Write in BigEndian order so lexicographic sort preserves append order
	binary.BigEndian.PutUint64(key[offset:], seq)
	return key
}

// makeMessagePrefix generates the scan prefix covering one user's log.
func makeMessagePrefix(username string) []byte {
	return lenPrefixed([]byte(messageRecordPrefix), username)
}

// makeMessageCountKey generates the key holding a user's next sequence number.
func makeMessageCountKey(username string) []byte {
	return lenPrefixed([]byte(messageCountPrefix), username)
}
