package api

import (
	"net/http"

	"github.com/nerrad567/lumen-core/internal/output"
	"github.com/nerrad567/lumen-core/internal/show"
)

// universeResponse is one universe of the last transmitted frame.
type universeResponse struct {
	Key    string             `json:"key"`
	Number int                `json:"number"`
	ArtNet show.ArtNetAddress `json:"artnet"`
	// Active is false when every slot is zero.
	Active bool  `json:"active"`
	Data   []int `json:"data"`
}

// handleDMX returns the last transmitted frame. ?key= limits it to one
// universe.
func (s *Server) handleDMX(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	frames := s.svc.Frames()
	out := make([]universeResponse, 0, len(frames))
	for _, u := range frames {
		if key != "" && u.Key != key {
			continue
		}
		data := make([]int, len(u.Data))
		for i, b := range u.Data {
			data[i] = int(b)
		}
		out = append(out, universeResponse{
			Key:    u.Key,
			Number: u.Number,
			ArtNet: u.ArtNet,
			Active: !u.IsZero(),
			Data:   data,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"universes": out,
		"count":     len(out),
	})
}

// handleInterfaces lists the local IPv4 interfaces output can bind to.
func (s *Server) handleInterfaces(w http.ResponseWriter, _ *http.Request) {
	ifaces, err := output.Interfaces()
	if err != nil {
		writeInternalError(w, "listing network interfaces: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"interfaces": ifaces,
		"count":      len(ifaces),
	})
}
