/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
)

// Memory is one photo/description entry from a past exchange. ImageData
// carries the image inline (data URL or base64), matching what the client
// reads out of its file picker.
type Memory struct {
	ID          string    `json:"id"`
	RoomCode    string    `json:"roomCode,omitempty" validate:"omitempty,alphanum,max=12"`
	From        string    `json:"from" validate:"required,max=64"`
	To          string    `json:"to" validate:"required,max=64"`
	ImageData   string    `json:"imageData,omitempty"`
	Description string    `json:"description,omitempty" validate:"max=4096"`
	CreatedAt   time.Time `json:"createdAt"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func listMemoriesHandler(cfg *Config, store *Store) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		memories, err := store.ListMemories()
		if err != nil {
			log.Error().Err(err).Msg("Failed to list memories")
			writeJSON(cfg, w, http.StatusInternalServerError, map[string]string{"error": "failed to list memories"})
			return
		}

		writeJSON(cfg, w, http.StatusOK, memories)
	}
}

func createMemoryHandler(cfg *Config, store *Store) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		r.Body = http.MaxBytesReader(w, r.Body, cfg.maxBodySize)

		var m Memory
		if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeJSON(cfg, w, http.StatusRequestEntityTooLarge, map[string]string{"error": "request body too large"})
				return
			}
			writeJSON(cfg, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}

		if err := validate.Struct(&m); err != nil {
			writeJSON(cfg, w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}

		m.ID = uuid.NewString()
		m.CreatedAt = time.Now().UTC()

		if err := store.SaveMemory(m); err != nil {
			log.Error().Err(err).Msg("Failed to save memory")
			writeJSON(cfg, w, http.StatusInternalServerError, map[string]string{"error": "failed to save memory"})
			return
		}

		log.Info().
			Str("from", m.From).
			Str("to", m.To).
			Str("size", humanReadableSize(int64(len(m.ImageData)))).
			Msg("Memory saved")

		writeJSON(cfg, w, http.StatusOK, map[string]any{"ok": true, "id": m.ID})
	}
}
