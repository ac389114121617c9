// Package mediakey issues and verifies the stream keys an instructor's encoder presents
// to the RTMP ingest server.
package mediakey

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/aura-learn/backend/pkg/utils"
)

// Key is a freshly issued stream key. Plain is shown to the owner once; only Hash is stored.
type Key struct {
	Plain     string `json:"stream_key"`
	IngestURL string `json:"ingest_url"`
	Hash      string `json:"-"`
}

// Issuer creates stream keys for sessions.
type Issuer struct {
	rtmpBase string
}

// NewIssuer creates an issuer for the given RTMP base URL (e.g. rtmp://media:1935/live).
func NewIssuer(rtmpBase string) *Issuer {
	return &Issuer{rtmpBase: strings.TrimRight(rtmpBase, "/")}
}

// Issue generates a new key for sessionID.
func (i *Issuer) Issue(sessionID uuid.UUID) (Key, error) {
	plain := uuid.NewString()
	hash, err := utils.HashSecret(plain)
	if err != nil {
		return Key{}, fmt.Errorf("hash stream key: %w", err)
	}
	return Key{Plain: plain, IngestURL: i.IngestURL(sessionID), Hash: hash}, nil
}

// IngestURL is where the encoder publishes; the stream name is the session id.
func (i *Issuer) IngestURL(sessionID uuid.UUID) string {
	return i.rtmpBase + "/" + sessionID.String()
}

// Verify reports whether plain matches the stored hash.
func Verify(plain, hash string) bool {
	return plain != "" && utils.CheckSecret(plain, hash)
}
