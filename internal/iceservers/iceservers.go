// Package iceservers loads the ICE server list handed to clients for their
// peer-to-peer voice/video setup. The file is read once at startup.
package iceservers

import (
	"encoding/json"
	"fmt"
	"os"
)

// Server mirrors the RTCIceServer dictionary clients feed to WebRTC.
type Server struct {
	URLs       []string `json:"urls"`
	Username   string   `json:"username,omitempty"`
	Credential string   `json:"credential,omitempty"`
}

// Load reads a JSON array of ICE servers from path.
func Load(path string) ([]Server, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ice config: %w", err)
	}
	var servers []Server
	if err := json.Unmarshal(raw, &servers); err != nil {
		return nil, fmt.Errorf("parse ice config: %w", err)
	}
	return servers, nil
}
