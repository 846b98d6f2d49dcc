package imposter

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/imposter-games/imposter/internal/identity"
	"github.com/imposter-games/imposter/internal/imposter/match"
	"github.com/imposter-games/imposter/internal/imposter/resource"
	"github.com/imposter-games/imposter/internal/logging"
	"github.com/julienschmidt/httprouter"
	qrcode "github.com/skip2/go-qrcode"
)

// Router wires the lobby API. All mutations take the caller identity from
// the request and pass it into the core explicitly.
func (m *manager) Router() *httprouter.Router {
	router := httprouter.New()

	router.POST("/api/lobbies", m.handleCreate)
	router.POST("/api/lobbies/:code/join", m.handleJoin)
	router.POST("/api/lobbies/:code/leave", m.handleLeave)
	router.POST("/api/lobbies/:code/close", m.handleClose)
	router.POST("/api/lobbies/:code/theme", m.handleTheme)
	router.POST("/api/lobbies/:code/prefs", m.handlePrefs)
	router.POST("/api/lobbies/:code/start", m.handleStart)
	router.POST("/api/lobbies/:code/advance", m.handleAdvance)
	router.POST("/api/lobbies/:code/chat", m.handleChat)
	router.POST("/api/lobbies/:code/vote", m.handleVote)
	router.POST("/api/lobbies/:code/guess", m.handleGuess)
	router.POST("/api/lobbies/:code/guess/typing", m.handleGuessTyping)
	router.POST("/api/lobbies/:code/postchat", m.handlePostChat)
	router.POST("/api/lobbies/:code/reset", m.handleReset)

	router.GET("/api/lobbies/:code", m.handleView)
	router.GET("/api/lobbies/:code/ws", m.handleWatch)
	router.GET("/api/lobbies/:code/qr", m.handleQR)
	router.GET("/api/themes", m.handleThemes)

	return router
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error string `json:"error"`
}

// writeError maps guard errors onto status codes. Validation and state
// guards are client mistakes, authorization is forbidden, a vacant code is
// not found; anything unrecognized is a server error.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, match.ErrNoGame),
		errors.Is(err, resource.ErrThemeNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	case errors.Is(err, match.ErrOnlyHostAllowed), errors.Is(err, match.ErrNotTheImposter):
		writeJSON(w, http.StatusForbidden, errorBody{Error: err.Error()})
	case errors.Is(err, ErrCodeInUse), errors.Is(err, ErrSessionNotJoinable),
		errors.Is(err, match.ErrGameAlreadyStarted), errors.Is(err, match.ErrChatNotActive),
		errors.Is(err, match.ErrNotYourTurn), errors.Is(err, match.ErrVotingClosed),
		errors.Is(err, match.ErrAlreadyVoted), errors.Is(err, match.ErrGuessNotActive),
		errors.Is(err, match.ErrGuessAlreadySubmitted), errors.Is(err, match.ErrPostChatClosed):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error()})
	case errors.Is(err, ErrInvalidCode), errors.Is(err, ErrNotJoined),
		errors.Is(err, match.ErrNotEnoughPlayers), errors.Is(err, match.ErrInvalidWord),
		errors.Is(err, match.ErrForbiddenWord), errors.Is(err, match.ErrNotAPlayer),
		errors.Is(err, match.ErrInvalidVoteTarget), errors.Is(err, match.ErrInvalidGuess),
		errors.Is(err, match.ErrInvalidMessage), errors.Is(err, resource.ErrNoWords):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

func decode(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func code(p httprouter.Params) string {
	return strings.ToUpper(strings.TrimSpace(p.ByName("code")))
}

type createRequest struct {
	InviteCode  string `json:"inviteCode,omitempty"`
	DisplayName string `json:"displayName"`
	AvatarType  string `json:"avatarType,omitempty"`
	Skin        string `json:"skin,omitempty"`
}

type createResponse struct {
	InviteCode string `json:"inviteCode"`
	Epoch      string `json:"epoch"`
}

func (m *manager) handleCreate(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req createRequest
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "malformed request body"})
		return
	}

	host := PlayerProfile{
		Identity:    identity.GetOrCreate(w, r),
		DisplayName: req.DisplayName,
		AvatarType:  req.AvatarType,
		Skin:        req.Skin,
	}

	if req.InviteCode != "" {
		inviteCode := strings.ToUpper(strings.TrimSpace(req.InviteCode))
		epoch, err := m.CreateSessionWithCode(r.Context(), inviteCode, host)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, createResponse{InviteCode: inviteCode, Epoch: epoch})
		return
	}

	inviteCode, epoch, err := m.CreateSession(r.Context(), host)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, createResponse{InviteCode: inviteCode, Epoch: epoch})
}

func (m *manager) handleJoin(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var req createRequest
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "malformed request body"})
		return
	}

	err := m.Join(r.Context(), code(p), PlayerProfile{
		Identity:    identity.GetOrCreate(w, r),
		DisplayName: req.DisplayName,
		AvatarType:  req.AvatarType,
		Skin:        req.Skin,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct{}{})
}

func (m *manager) handleLeave(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	if err := m.Leave(r.Context(), code(p), identity.GetOrCreate(w, r)); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct{}{})
}

func (m *manager) handleClose(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	if err := m.CloseSession(r.Context(), code(p), identity.GetOrCreate(w, r)); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct{}{})
}

type themeRequest struct {
	ThemeID      string `json:"themeId"`
	Difficulty   string `json:"difficulty,omitempty"`
	TurnTimerSec int    `json:"turnTimerSec,omitempty"`
}

func (m *manager) handleTheme(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var req themeRequest
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "malformed request body"})
		return
	}

	err := m.SetTheme(r.Context(), code(p), identity.GetOrCreate(w, r), req.ThemeID, req.Difficulty, req.TurnTimerSec)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct{}{})
}

type prefsRequest struct {
	AvatarType string `json:"avatarType"`
	Skin       string `json:"skin"`
}

func (m *manager) handlePrefs(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var req prefsRequest
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "malformed request body"})
		return
	}

	err := m.UpdatePlayerPrefs(r.Context(), code(p), identity.GetOrCreate(w, r), req.AvatarType, req.Skin)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct{}{})
}

func (m *manager) handleStart(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var opts StartOptions
	if err := decode(r, &opts); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "malformed request body"})
		return
	}

	if err := m.StartGame(r.Context(), code(p), identity.GetOrCreate(w, r), opts); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct{}{})
}

func (m *manager) handleAdvance(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	if err := m.AdvanceToChatPhase(r.Context(), code(p), identity.GetOrCreate(w, r)); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct{}{})
}

type chatRequest struct {
	Word string `json:"word"`
}

func (m *manager) handleChat(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var req chatRequest
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "malformed request body"})
		return
	}

	if err := m.SubmitChatWord(r.Context(), code(p), identity.GetOrCreate(w, r), req.Word); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct{}{})
}

type voteRequest struct {
	Target string `json:"target"`
}

func (m *manager) handleVote(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var req voteRequest
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "malformed request body"})
		return
	}

	if err := m.SubmitVote(r.Context(), code(p), identity.GetOrCreate(w, r), req.Target); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct{}{})
}

type textRequest struct {
	Text string `json:"text"`
}

func (m *manager) handleGuess(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var req textRequest
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "malformed request body"})
		return
	}

	if err := m.SubmitImposterGuess(r.Context(), code(p), identity.GetOrCreate(w, r), req.Text); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct{}{})
}

func (m *manager) handleGuessTyping(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var req textRequest
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "malformed request body"})
		return
	}

	if err := m.SetImposterGuessTyping(r.Context(), code(p), identity.GetOrCreate(w, r), req.Text); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct{}{})
}

func (m *manager) handlePostChat(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var req textRequest
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "malformed request body"})
		return
	}

	if err := m.SubmitPostGameChat(r.Context(), code(p), identity.GetOrCreate(w, r), req.Text); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct{}{})
}

func (m *manager) handleReset(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	if err := m.ResetGame(r.Context(), code(p), identity.GetOrCreate(w, r)); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct{}{})
}

func (m *manager) handleView(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	snap, err := m.Fetch(code(p))
	if err != nil {
		writeError(w, err)
		return
	}
	if snap.Session == nil {
		writeError(w, ErrSessionNotFound)
		return
	}

	view := m.deriveView(identity.GetOrCreate(w, r), code(p), snap)
	writeJSON(w, http.StatusOK, view)
}

type themesResponse struct {
	Themes []themeInfo `json:"themes"`
}

type themeInfo struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Badge string `json:"badge"`
}

func (m *manager) handleThemes(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	resp := themesResponse{Themes: make([]themeInfo, 0, len(resource.Themes))}
	for _, theme := range resource.Themes {
		resp.Themes = append(resp.Themes, themeInfo{ID: theme.ID, Label: theme.Label, Badge: theme.Badge})
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleQR serves a scannable join link for the invite code.
func (m *manager) handleQR(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	logger := logging.FromContext(r.Context()).Named("imposter.api")

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	url := scheme + "://" + r.Host + "/join/" + code(p)

	const qrSize = 320
	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		logger.Errorf("qr encode: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "qr generation failed"})
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}
