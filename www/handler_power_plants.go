package www

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/wattshare/wattshare-go/domain"
	"github.com/wattshare/wattshare-go/plants"
)

func intOrDefault(u *url.URL, key string, defaultValue int) int {
	if v := u.Query().Get(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func (s *Server) handleCreatePlant(w http.ResponseWriter, r *http.Request) {
	p, ok := requireUser(w, r)
	if !ok {
		return
	}

	var params plants.CreateParams
	if err := readJSON(r, &params); err != nil {
		writeError(w, s.logger, err)
		return
	}

	plant, err := s.plants.Create(r.Context(), p.UserID, params)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, plant)
}

func (s *Server) handleListPlants(w http.ResponseWriter, r *http.Request) {
	p, ok := requireUser(w, r)
	if !ok {
		return
	}

	list, err := s.plants.FindByUser(r.Context(), p.UserID)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetPlant(w http.ResponseWriter, r *http.Request) {
	p, ok := requireUser(w, r)
	if !ok {
		return
	}

	plant, err := s.plants.FindForUser(r.Context(), p.UserID, r.PathValue("id"))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, plant)
}

func (s *Server) handleUpdatePlant(w http.ResponseWriter, r *http.Request) {
	p, ok := requireUser(w, r)
	if !ok {
		return
	}

	var params plants.UpdateParams
	if err := readJSON(r, &params); err != nil {
		writeError(w, s.logger, err)
		return
	}

	plant, err := s.plants.Update(r.Context(), p.UserID, r.PathValue("id"), params)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, plant)
}

func (s *Server) handleDeletePlant(w http.ResponseWriter, r *http.Request) {
	p, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := s.plants.Delete(r.Context(), p.UserID, r.PathValue("id")); err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleCalibrate(w http.ResponseWriter, r *http.Request) {
	p, ok := requireUser(w, r)
	if !ok {
		return
	}

	var body struct {
		Power float64 `json:"power"`
	}
	if err := readJSON(r, &body); err != nil {
		writeError(w, s.logger, err)
		return
	}

	plant, err := s.plants.Calibrate(r.Context(), p.UserID, r.PathValue("id"), body.Power)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, plant)
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}

	tz := intOrDefault(r.URL, "tz", 0)
	points, err := s.plants.Predict(r.Context(), r.PathValue("id"), tz)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, points)
}

func (s *Server) handlePredictByDays(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}

	tz := intOrDefault(r.URL, "tz", 0)
	days, err := s.plants.PredictByDays(r.Context(), r.PathValue("id"), tz)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, days)
}

func (s *Server) handleProduction(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}

	production, err := s.plants.Production(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, production)
}

func parsePeriods(u *url.URL) []plants.Period {
	raw := u.Query()["period"]
	if len(raw) == 0 {
		return []plants.Period{plants.PeriodToday, plants.PeriodWeek, plants.PeriodMonth, plants.PeriodYear}
	}
	periods := make([]plants.Period, 0, len(raw))
	for _, p := range raw {
		periods = append(periods, plants.Period(strings.ToLower(p)))
	}
	return periods
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}

	stats, err := s.plants.ProductionStatistics(r.Context(), r.PathValue("id"), parsePeriods(r.URL))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}

	ids := strings.Split(r.URL.Query().Get("ids"), ",")
	if len(ids) == 1 && ids[0] == "" {
		writeError(w, s.logger, domain.Validation("at least one power plant id is required"))
		return
	}

	var from, to time.Time
	if v := r.URL.Query().Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, s.logger, domain.Validation("from must be an RFC 3339 timestamp"))
			return
		}
		from = t
	}
	if v := r.URL.Query().Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, s.logger, domain.Validation("to must be an RFC 3339 timestamp"))
			return
		}
		to = t
	}

	rows, err := s.plants.History(r.Context(), ids, from, to)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleCurrentProduction(w http.ResponseWriter, r *http.Request) {
	p, ok := requireUser(w, r)
	if !ok {
		return
	}

	tz := intOrDefault(r.URL, "tz", 0)
	result, err := s.plants.CurrentProductionForUser(r.Context(), p.UserID, tz)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
