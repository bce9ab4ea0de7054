package www

import (
	"net/http"
)

type communityBody struct {
	Name string `json:"name"`
}

type membersBody struct {
	MemberID    string   `json:"memberId"`
	PowerPlants []string `json:"powerPlants"`
}

func (s *Server) handleCreateCommunity(w http.ResponseWriter, r *http.Request) {
	p, ok := requireUser(w, r)
	if !ok {
		return
	}

	var body communityBody
	if err := readJSON(r, &body); err != nil {
		writeError(w, s.logger, err)
		return
	}

	comm, err := s.communities.Create(r.Context(), p.UserID, body.Name)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, comm)
}

func (s *Server) handleListCommunities(w http.ResponseWriter, r *http.Request) {
	p, ok := requireUser(w, r)
	if !ok {
		return
	}

	list, err := s.communities.FindByUser(r.Context(), p.UserID)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetCommunity(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}

	comm, err := s.communities.FindByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, comm)
}

func (s *Server) handleCommunityByName(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}

	comm, err := s.communities.FindByName(r.Context(), r.PathValue("name"))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, comm)
}

func (s *Server) handleUpdateCommunity(w http.ResponseWriter, r *http.Request) {
	p, ok := requireUser(w, r)
	if !ok {
		return
	}

	var body communityBody
	if err := readJSON(r, &body); err != nil {
		writeError(w, s.logger, err)
		return
	}

	comm, err := s.communities.Update(r.Context(), p.UserID, r.PathValue("id"), body.Name)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, comm)
}

func (s *Server) handleDeleteCommunity(w http.ResponseWriter, r *http.Request) {
	p, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := s.communities.Delete(r.Context(), p.UserID, r.PathValue("id")); err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleJoinRequest(w http.ResponseWriter, r *http.Request) {
	p, ok := requireUser(w, r)
	if !ok {
		return
	}

	var body struct {
		PowerPlants []string `json:"powerPlants"`
		Message     string   `json:"message"`
	}
	if err := readJSON(r, &body); err != nil {
		writeError(w, s.logger, err)
		return
	}

	n, err := s.communities.RequestToJoin(r.Context(), p.UserID, r.PathValue("id"), body.PowerPlants, body.Message)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

func (s *Server) handleAddMembers(w http.ResponseWriter, r *http.Request) {
	p, ok := requireUser(w, r)
	if !ok {
		return
	}

	var body membersBody
	if err := readJSON(r, &body); err != nil {
		writeError(w, s.logger, err)
		return
	}

	err := s.communities.AddPowerPlants(r.Context(), p.UserID, r.PathValue("id"), body.MemberID, body.PowerPlants)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleRemoveMembers(w http.ResponseWriter, r *http.Request) {
	p, ok := requireUser(w, r)
	if !ok {
		return
	}

	var body membersBody
	if err := readJSON(r, &body); err != nil {
		writeError(w, s.logger, err)
		return
	}

	err := s.communities.RemovePowerPlants(r.Context(), p.UserID, r.PathValue("id"), body.MemberID, body.PowerPlants)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleLeave(w http.ResponseWriter, r *http.Request) {
	p, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := s.communities.Leave(r.Context(), p.UserID, r.PathValue("id")); err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleCommunityPredict(w http.ResponseWriter, r *http.Request) {
	p, ok := requireUser(w, r)
	if !ok {
		return
	}

	tz := intOrDefault(r.URL, "tz", 0)
	points, err := s.communities.Predict(r.Context(), p.UserID, r.PathValue("id"), tz)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, points)
}

func (s *Server) handleCommunityPredictByDays(w http.ResponseWriter, r *http.Request) {
	p, ok := requireUser(w, r)
	if !ok {
		return
	}

	tz := intOrDefault(r.URL, "tz", 0)
	days, err := s.communities.PredictByDays(r.Context(), p.UserID, r.PathValue("id"), tz)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, days)
}

func (s *Server) handleCommunityProduction(w http.ResponseWriter, r *http.Request) {
	p, ok := requireUser(w, r)
	if !ok {
		return
	}

	production, err := s.communities.PowerProduction(r.Context(), p.UserID, r.PathValue("id"))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, production)
}

func (s *Server) handleCommunityCurrentProduction(w http.ResponseWriter, r *http.Request) {
	p, ok := requireUser(w, r)
	if !ok {
		return
	}

	tz := intOrDefault(r.URL, "tz", 0)
	production, err := s.communities.CurrentProduction(r.Context(), p.UserID, r.PathValue("id"), tz)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, production)
}

func (s *Server) handlePowerShare(w http.ResponseWriter, r *http.Request) {
	p, ok := requireUser(w, r)
	if !ok {
		return
	}

	shares, err := s.communities.MembersPowerShare(r.Context(), p.UserID, r.PathValue("id"))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, shares)
}

func (s *Server) handleCommunityStatistics(w http.ResponseWriter, r *http.Request) {
	p, ok := requireUser(w, r)
	if !ok {
		return
	}

	stats, err := s.communities.ProductionStatistics(r.Context(), p.UserID, r.PathValue("id"), parsePeriods(r.URL))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
