package rooms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roomhive/roomhive/internal/authz"
	"github.com/roomhive/roomhive/internal/platform/httpx"
)

type mockRepository struct {
	rooms  map[int64]*Room
	nextID int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{rooms: make(map[int64]*Room), nextID: 1}
}

func (m *mockRepository) List(ctx context.Context) ([]Room, error) {
	out := []Room{}
	for _, room := range m.rooms {
		out = append(out, *room)
	}
	return out, nil
}

func (m *mockRepository) Get(ctx context.Context, id int64) (Room, error) {
	room, ok := m.rooms[id]
	if !ok {
		return Room{}, httpx.ErrNotFound
	}
	return *room, nil
}

func (m *mockRepository) Create(ctx context.Context, room Room) (Room, error) {
	for _, existing := range m.rooms {
		if existing.Name == room.Name {
			return Room{}, httpx.ErrDuplicate
		}
	}
	room.ID = m.nextID
	m.nextID++
	m.rooms[room.ID] = &room
	return room, nil
}

func (m *mockRepository) Update(ctx context.Context, room Room) (Room, error) {
	if _, ok := m.rooms[room.ID]; !ok {
		return Room{}, httpx.ErrNotFound
	}
	m.rooms[room.ID] = &room
	return room, nil
}

func (m *mockRepository) Delete(ctx context.Context, id int64) error {
	if _, ok := m.rooms[id]; !ok {
		return httpx.ErrNotFound
	}
	delete(m.rooms, id)
	return nil
}

func newTestServer(t *testing.T, repo *mockRepository) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(bytes.NewBuffer(nil), nil))
	h := NewHandler(logger, NewService(repo), authz.Guard{Logger: logger})
	srv := httptest.NewServer(h.Routes())
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url, role string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	if role != "" {
		req.Header.Set(authz.HeaderRole, role)
		req.Header.Set(authz.HeaderUserID, "1")
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func seedRoom(t *testing.T, repo *mockRepository, name string) Room {
	t.Helper()
	room, err := repo.Create(context.Background(), Room{Name: name, Capacity: 8, Location: "HQ-2", Available: true})
	require.NoError(t, err)
	return room
}

func TestListRoomsByRole(t *testing.T) {
	repo := newMockRepository()
	seedRoom(t, repo, "Aurora")
	srv := newTestServer(t, repo)

	tests := []struct {
		role string
		want int
	}{
		{"admin", http.StatusOK},
		{"regular_user", http.StatusOK},
		{"facility_manager", http.StatusOK},
		{"auditor", http.StatusOK},
		{"service_account", http.StatusOK},
		{"moderator", http.StatusForbidden},
	}
	for _, tc := range tests {
		t.Run(tc.role, func(t *testing.T) {
			resp := doJSON(t, http.MethodGet, srv.URL+"/", tc.role, nil)
			assert.Equal(t, tc.want, resp.StatusCode)
		})
	}
}

func TestCreateRoomByRole(t *testing.T) {
	srv := newTestServer(t, newMockRepository())

	create := func(role, name string) int {
		body := map[string]any{"name": name, "capacity": 10, "location": "HQ-1"}
		return doJSON(t, http.MethodPost, srv.URL+"/", role, body).StatusCode
	}

	assert.Equal(t, http.StatusCreated, create("admin", "Aurora"))
	assert.Equal(t, http.StatusCreated, create("facility_manager", "Borealis"))
	assert.Equal(t, http.StatusForbidden, create("regular_user", "Cassini"))
	assert.Equal(t, http.StatusForbidden, create("auditor", "Dione"))
}

func TestCreateRoomDuplicateName(t *testing.T) {
	repo := newMockRepository()
	seedRoom(t, repo, "Aurora")
	srv := newTestServer(t, repo)

	body := map[string]any{"name": "Aurora", "capacity": 10, "location": "HQ-1"}
	resp := doJSON(t, http.MethodPost, srv.URL+"/", "admin", body)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestCreateRoomValidation(t *testing.T) {
	srv := newTestServer(t, newMockRepository())
	body := map[string]any{"name": "Aurora", "capacity": 0, "location": "HQ-1"}
	resp := doJSON(t, http.MethodPost, srv.URL+"/", "admin", body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUpdateRoom(t *testing.T) {
	repo := newMockRepository()
	room := seedRoom(t, repo, "Aurora")
	srv := newTestServer(t, repo)
	url := fmt.Sprintf("%s/%d", srv.URL, room.ID)

	resp := doJSON(t, http.MethodPut, url, "facility_manager", map[string]any{"available": false})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got roomResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.False(t, got.Available)

	resp = doJSON(t, http.MethodPut, url, "regular_user", map[string]any{"available": true})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestDeleteRoom(t *testing.T) {
	repo := newMockRepository()
	room := seedRoom(t, repo, "Aurora")
	srv := newTestServer(t, repo)
	url := fmt.Sprintf("%s/%d", srv.URL, room.ID)

	resp := doJSON(t, http.MethodDelete, url, "moderator", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = doJSON(t, http.MethodDelete, url, "facility_manager", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, url, "admin", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
