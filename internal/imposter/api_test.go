package imposter

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/imposter-games/imposter/internal/identity"
)

func doJSON(t *testing.T, router http.Handler, method, path, caller string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body == nil {
		body = struct{}{}
	}
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(identity.HeaderName, caller)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	return rec
}

func TestAPICreateAndJoin(t *testing.T) {
	t.Parallel()

	m := testManager(t)
	router := m.Router()

	rec := doJSON(t, router, http.MethodPost, "/api/lobbies", "h", createRequest{DisplayName: "Host"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body)
	}

	var created createResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}
	if created.InviteCode == "" || created.Epoch == "" {
		t.Fatalf("create response = %+v, want code and epoch", created)
	}

	rec = doJSON(t, router, http.MethodPost, "/api/lobbies/"+created.InviteCode+"/join", "p2", createRequest{DisplayName: "P2"})
	if rec.Code != http.StatusOK {
		t.Fatalf("join status = %d, body %s", rec.Code, rec.Body)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/lobbies/"+created.InviteCode, "p2", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("view status = %d, body %s", rec.Code, rec.Body)
	}
}

func TestAPIErrorMapping(t *testing.T) {
	t.Parallel()

	m := testManager(t)
	router := m.Router()
	code := createWaiting(t, m, "h", "p2")

	cases := []struct {
		name   string
		method string
		path   string
		caller string
		body   interface{}
		want   int
	}{
		{"vacant code", http.MethodGet, "/api/lobbies/ZZZZZZ", "p2", nil, http.StatusNotFound},
		{"join vacant", http.MethodPost, "/api/lobbies/ZZZZZZ/join", "p3", createRequest{DisplayName: "P3"}, http.StatusNotFound},
		{"non-host theme", http.MethodPost, "/api/lobbies/" + code + "/theme", "p2", themeRequest{ThemeID: "animals"}, http.StatusForbidden},
		{"unknown theme", http.MethodPost, "/api/lobbies/" + code + "/theme", "h", themeRequest{ThemeID: "bogus"}, http.StatusNotFound},
		{"non-host start", http.MethodPost, "/api/lobbies/" + code + "/start", "p2", StartOptions{Word: "zebra", Hint: "x"}, http.StatusForbidden},
		{"chat before start", http.MethodPost, "/api/lobbies/" + code + "/chat", "p2", chatRequest{Word: "stripes"}, http.StatusNotFound},
		{"guess before start", http.MethodPost, "/api/lobbies/" + code + "/guess", "p2", textRequest{Text: "zebra"}, http.StatusNotFound},
		{"postchat before start", http.MethodPost, "/api/lobbies/" + code + "/postchat", "p2", textRequest{Text: "gg"}, http.StatusNotFound},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, router, tc.method, tc.path, tc.caller, tc.body)
			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d, body %s", rec.Code, tc.want, rec.Body)
			}
		})
	}
}

func TestAPIInviteCodeCaseInsensitive(t *testing.T) {
	t.Parallel()

	m := testManager(t)
	router := m.Router()
	code := createWaiting(t, m, "h")

	// codes are upper-case canonical; path input may be typed lower-case
	rec := doJSON(t, router, http.MethodGet, "/api/lobbies/"+strings.ToLower(code), "h", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, lower-case path must resolve", rec.Code)
	}
}

func TestAPIThemesList(t *testing.T) {
	t.Parallel()

	m := testManager(t)

	rec := doJSON(t, m.Router(), http.MethodGet, "/api/themes", "h", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp themesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Themes) == 0 {
		t.Fatal("theme catalogue must not be empty")
	}
	for _, theme := range resp.Themes {
		if theme.ID == "" || theme.Label == "" {
			t.Errorf("theme = %+v, id and label required", theme)
		}
	}
}

func TestAPIQR(t *testing.T) {
	t.Parallel()

	m := testManager(t)
	code := createWaiting(t, m, "h")

	rec := doJSON(t, m.Router(), http.MethodGet, "/api/lobbies/"+code+"/qr", "h", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("content type = %s, want image/png", ct)
	}
	if rec.Body.Len() == 0 {
		t.Error("empty png body")
	}
}
