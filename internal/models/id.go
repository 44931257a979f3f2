package models

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"time"
)

// NewID returns a 24-character lowercase hex identifier: four bytes of
// big-endian unix seconds followed by eight random bytes.
func NewID() string {
	var b [12]byte
	binary.BigEndian.PutUint32(b[:4], uint32(time.Now().Unix()))
	if _, err := rand.Read(b[4:]); err != nil {
		panic("models: crypto/rand failed: " + err.Error())
	}
	return hex.EncodeToString(b[:])
}

// NowMillis is the store's timestamp unit.
func NowMillis(t time.Time) int64 {
	return t.UnixMilli()
}
