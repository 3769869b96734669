package http

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"quizmap-service/internal/app"
	"quizmap-service/internal/domain"
)

// API holds the REST handlers.
type API struct {
	service *app.Service
}

// pathParam returns the decoded URL parameter; subject keys and names may contain spaces.
func pathParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return false
	}
	return true
}

type registerRequest struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

type registerResponse struct {
	Identity domain.Identity      `json:"identity"`
	Profile  domain.PlayerProfile `json:"profile"`
}

func (a *API) registerPlayer(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decode(w, r, &req) {
		return
	}
	identity, profile, err := a.service.RegisterPlayer(r.Context(), req.Name, req.Avatar)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, registerResponse{Identity: identity, Profile: profile})
}

func (a *API) identify(w http.ResponseWriter, r *http.Request) {
	identity, err := a.service.Identify(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, identity)
}

type profileResponse struct {
	domain.PlayerProfile
	Level     int `json:"level"`
	WeakCount int `json:"weakCount"`
}

func (a *API) profile(w http.ResponseWriter, r *http.Request) {
	p, err := a.service.Profile(r.Context(), pathParam(r, "name"))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profileResponse{PlayerProfile: p, Level: p.Level(), WeakCount: p.WeakCount()})
}

func (a *API) subjectMap(w http.ResponseWriter, r *http.Request) {
	nodes, err := a.service.SubjectMap(r.Context(), pathParam(r, "name"))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nodes)
}

type badgeRequest struct {
	Badge string `json:"badge"`
}

type badgeResponse struct {
	Profile domain.PlayerProfile `json:"profile"`
	Awarded bool                 `json:"awarded"`
}

func (a *API) awardBadge(w http.ResponseWriter, r *http.Request) {
	var req badgeRequest
	if !decode(w, r, &req) {
		return
	}
	profile, awarded, err := a.service.AwardStoryBadge(r.Context(), pathParam(r, "name"), req.Badge)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, badgeResponse{Profile: profile, Awarded: awarded})
}

type achievementsResponse struct {
	Earned   []domain.Achievement `json:"earned"`
	Upcoming []domain.Achievement `json:"upcoming"`
}

func (a *API) achievements(w http.ResponseWriter, r *http.Request) {
	var badges []string
	if name := r.URL.Query().Get("player"); name != "" {
		p, err := a.service.Profile(r.Context(), name)
		if err != nil {
			writeErr(w, r, err)
			return
		}
		badges = p.Badges
	}
	earned, upcoming := domain.SplitAchievements(badges)
	writeJSON(w, http.StatusOK, achievementsResponse{Earned: earned, Upcoming: upcoming})
}

func (a *API) catalog(w http.ResponseWriter, r *http.Request) {
	c, err := a.service.Catalog(r.Context())
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (a *API) leaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := a.service.Leaderboard(r.Context())
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (a *API) resetLeaderboard(w http.ResponseWriter, r *http.Request) {
	if err := a.service.ResetLeaderboard(r.Context(), r.Header.Get(PlayerHeader)); err != nil {
		writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type addSubjectRequest struct {
	Key      string             `json:"key"`
	Position domain.MapPosition `json:"position"`
}

func (a *API) addSubject(w http.ResponseWriter, r *http.Request) {
	var req addSubjectRequest
	if !decode(w, r, &req) {
		return
	}
	c, err := a.service.AddSubject(r.Context(), r.Header.Get(PlayerHeader), req.Key, req.Position)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (a *API) updateSubject(w http.ResponseWriter, r *http.Request) {
	var req app.SubjectUpdate
	if !decode(w, r, &req) {
		return
	}
	c, err := a.service.UpdateSubject(r.Context(), r.Header.Get(PlayerHeader), pathParam(r, "key"), req)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (a *API) deleteSubject(w http.ResponseWriter, r *http.Request) {
	c, err := a.service.DeleteSubject(r.Context(), r.Header.Get(PlayerHeader), pathParam(r, "key"))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

type questionsBody struct {
	Questions []domain.Question `json:"questions"`
}

func (a *API) appendQuestions(w http.ResponseWriter, r *http.Request) {
	var req questionsBody
	if !decode(w, r, &req) {
		return
	}
	c, err := a.service.AppendQuestions(r.Context(), r.Header.Get(PlayerHeader), pathParam(r, "key"), req.Questions)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

type generateRequest struct {
	Topic string `json:"topic"`
}

func (a *API) generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if !decode(w, r, &req) {
		return
	}
	drafts, err := a.service.GenerateQuestions(r.Context(), r.Header.Get(PlayerHeader), req.Topic)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, questionsBody{Questions: drafts})
}

func (a *API) dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := a.service.Dashboard(r.Context(), r.Header.Get(PlayerHeader))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (a *API) exportDashboard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="dashboard.xlsx"`)
	if err := a.service.ExportDashboard(r.Context(), r.Header.Get(PlayerHeader), w); err != nil {
		w.Header().Del("Content-Disposition")
		writeErr(w, r, err)
	}
}

func (a *API) resetAll(w http.ResponseWriter, r *http.Request) {
	if err := a.service.ResetAll(r.Context(), r.Header.Get(PlayerHeader)); err != nil {
		writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
