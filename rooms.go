/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
	"github.com/skip2/go-qrcode"
)

func createRoomHandler(cfg *Config, registry *Registry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		room, err := registry.CreateRoom()
		if err != nil {
			writeJSON(cfg, w, http.StatusInternalServerError, map[string]string{"error": "failed to create room"})
			return
		}

		log.Info().Str("room", room.Code).Str("from", realIP(r)).Msg("Room created")

		writeJSON(cfg, w, http.StatusOK, map[string]string{"code": room.Code})
	}
}

// joinCheckHandler only verifies the room exists; actual registration happens
// over the room's WebSocket.
func joinCheckHandler(cfg *Config, registry *Registry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var req struct {
			RoomCode string `json:"roomCode"`
			Name     string `json:"name"`
		}

		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(cfg, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}

		_, err := registry.View(req.RoomCode)
		if errors.Is(err, errRoomNotFound) {
			writeJSON(cfg, w, http.StatusNotFound, map[string]string{"error": "room not found"})
			return
		}

		writeJSON(cfg, w, http.StatusOK, map[string]any{
			"ok":       true,
			"roomCode": req.RoomCode,
			"name":     req.Name,
		})
	}
}

// qrHandler generates a PNG QR code pointing at the current room URL, for
// sharing the join link in person.
func qrHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	code := ps.ByName("code")
	if code == "" {
		http.Error(w, "missing room code", http.StatusBadRequest)
		return
	}

	// Derive scheme (respecting TLS and X-Forwarded-Proto if present).
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	// We are at /room/:code/qr; strip trailing "/qr" to get the room URL.
	path := strings.TrimSuffix(r.URL.Path, "/qr")

	url := scheme + "://" + r.Host + path

	const qrSize = 320 // mobile-friendly size
	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}
