/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/require"
)

func newMemoriesRouter(t *testing.T) (*httprouter.Router, *Store) {
	t.Helper()

	cfg := &Config{port: 8080, maxBodySize: 1 << 20}
	store := newTestStore(t)

	mux := httprouter.New()
	mux.GET("/api/memories", listMemoriesHandler(cfg, store))
	mux.POST("/api/memories", createMemoryHandler(cfg, store))

	return mux, store
}

func Test_Create_And_List_Memories(t *testing.T) {
	req := require.New(t)

	mux, _ := newMemoriesRouter(t)

	body := `{"from":"Alice","to":"Bob","description":"That hat.","imageData":"data:image/png;base64,aGF0"}`
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/memories", strings.NewReader(body))
	mux.ServeHTTP(w, r)

	req.Equal(http.StatusOK, w.Code)

	var created struct {
		Ok bool   `json:"ok"`
		ID string `json:"id"`
	}
	req.NoError(json.Unmarshal(w.Body.Bytes(), &created))
	req.True(created.Ok)
	req.NotEmpty(created.ID)

	w = httptest.NewRecorder()
	r = httptest.NewRequest(http.MethodGet, "/api/memories", nil)
	mux.ServeHTTP(w, r)

	req.Equal(http.StatusOK, w.Code)

	var memories []Memory
	req.NoError(json.Unmarshal(w.Body.Bytes(), &memories))
	req.Len(memories, 1)
	req.Equal("Alice", memories[0].From)
	req.Equal("Bob", memories[0].To)
	req.Equal("That hat.", memories[0].Description)
	req.False(memories[0].CreatedAt.IsZero())
}

func Test_Create_Memory_Requires_From_And_To(t *testing.T) {
	req := require.New(t)

	mux, store := newMemoriesRouter(t)

	for _, body := range []string{
		`{"to":"Bob"}`,
		`{"from":"Alice"}`,
		`not json`,
	} {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/api/memories", strings.NewReader(body))
		mux.ServeHTTP(w, r)

		req.Equal(http.StatusBadRequest, w.Code, "body %q must be rejected", body)
	}

	memories, err := store.ListMemories()
	req.NoError(err)
	req.Empty(memories)
}

func Test_Create_Memory_Caps_Body_Size(t *testing.T) {
	req := require.New(t)

	cfg := &Config{port: 8080, maxBodySize: 64}
	store := newTestStore(t)

	mux := httprouter.New()
	mux.POST("/api/memories", createMemoryHandler(cfg, store))

	body := `{"from":"Alice","to":"Bob","imageData":"` + strings.Repeat("x", 256) + `"}`
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/memories", strings.NewReader(body))
	mux.ServeHTTP(w, r)

	req.Equal(http.StatusRequestEntityTooLarge, w.Code)
}
