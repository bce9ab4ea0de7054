// Package www exposes the platform as a JSON API plus a websocket feed of
// live telemetry.
package www

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/wattshare/wattshare-go/community"
	"github.com/wattshare/wattshare-go/config"
	"github.com/wattshare/wattshare-go/database"
	"github.com/wattshare/wattshare-go/notify"
	"github.com/wattshare/wattshare-go/plants"
	"github.com/wattshare/wattshare-go/telemetry"
	"github.com/wattshare/wattshare-go/users"
)

type Server struct {
	logger      *slog.Logger
	config      config.AppConfigApi
	db          *database.Database
	users       *users.Service
	plants      *plants.Service
	communities *community.Service
	notify      *notify.Service
	live        *telemetry.Store
	hub         *Hub
	mux         *http.ServeMux
}

func StartServer(
	db *database.Database,
	userSvc *users.Service,
	plantSvc *plants.Service,
	communitySvc *community.Service,
	notifySvc *notify.Service,
	live *telemetry.Store,
	cnfg config.AppConfigApi,
) *Server {
	logger := slog.Default().With("module", "www")

	s := &Server{
		logger:      logger,
		config:      cnfg,
		db:          db,
		users:       userSvc,
		plants:      plantSvc,
		communities: communitySvc,
		notify:      notifySvc,
		live:        live,
		hub:         NewHub(logger),
		mux:         http.NewServeMux(),
	}

	go s.hub.Run()

	logReqMW := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s.logger.Debug("http request",
				slog.String("method", r.Method),
				slog.String("url", r.URL.String()),
				slog.String("remoteAddr", r.RemoteAddr))
			next.ServeHTTP(w, r)
		})
	}
	api := func(pattern string, h http.HandlerFunc) {
		s.mux.Handle(pattern, logReqMW(s.authMW(h)))
	}

	api("POST /users", s.handleRegister)
	api("GET /users/me", s.handleMe)
	api("GET /users/me/notifications", s.handleNotifications)
	api("POST /users/{id}/roles/reconcile", s.handleReconcileRoles)
	api("GET /admin/log", s.handleLogEntries)
	api("POST /notifications/{id}", s.handleProcessNotification)

	api("POST /power-plants", s.handleCreatePlant)
	api("GET /power-plants", s.handleListPlants)
	api("GET /power-plants/current-production", s.handleCurrentProduction)
	api("GET /power-plants/history", s.handleHistory)
	api("GET /power-plants/{id}", s.handleGetPlant)
	api("PUT /power-plants/{id}", s.handleUpdatePlant)
	api("DELETE /power-plants/{id}", s.handleDeletePlant)
	api("POST /power-plants/{id}/calibrate", s.handleCalibrate)
	api("GET /power-plants/{id}/predict", s.handlePredict)
	api("GET /power-plants/{id}/predict-by-days", s.handlePredictByDays)
	api("GET /power-plants/{id}/production", s.handleProduction)
	api("GET /power-plants/{id}/statistics", s.handleStatistics)

	api("POST /communities", s.handleCreateCommunity)
	api("GET /communities", s.handleListCommunities)
	api("GET /communities/by-name/{name}", s.handleCommunityByName)
	api("GET /communities/{id}", s.handleGetCommunity)
	api("PUT /communities/{id}", s.handleUpdateCommunity)
	api("DELETE /communities/{id}", s.handleDeleteCommunity)
	api("POST /communities/{id}/join-requests", s.handleJoinRequest)
	api("POST /communities/{id}/members", s.handleAddMembers)
	api("DELETE /communities/{id}/members", s.handleRemoveMembers)
	api("POST /communities/{id}/leave", s.handleLeave)
	api("GET /communities/{id}/predict", s.handleCommunityPredict)
	api("GET /communities/{id}/predict-by-days", s.handleCommunityPredictByDays)
	api("GET /communities/{id}/production", s.handleCommunityProduction)
	api("GET /communities/{id}/current-production", s.handleCommunityCurrentProduction)
	api("GET /communities/{id}/power-share", s.handlePowerShare)
	api("GET /communities/{id}/statistics", s.handleCommunityStatistics)

	s.mux.HandleFunc("GET /ws", func(w http.ResponseWriter, r *http.Request) {
		name := r.Header.Get("User-Agent")
		client, err := NewClient(s.hub, w, r, name)
		if err != nil {
			s.logger.Error("new websocket client failed", slog.Any("error", err))
			return
		}
		s.hub.Register <- client
		go client.WritePump()
	})

	return s
}

func (s *Server) Run(ctx context.Context) {
	s.logger.Info("starting server...", "port", s.config.Port)
	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.config.Address, s.config.Port),
		Handler: s.mux,
	}

	srvErrors := make(chan error, 1)

	go func() {
		srvErrors <- srv.ListenAndServe()
	}()

	ticker := time.NewTicker(time.Second * 2)
	defer ticker.Stop()

	for {
		select {
		case err := <-srvErrors:
			if err != nil {
				s.logger.Error("server error", slog.Any("error", err))
			}

		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				s.logger.Error("server shutdown failed", slog.Any("error", err))
			}
			return

		case <-ticker.C:
			if s.live == nil {
				continue
			}
			buf, err := json.Marshal(s.live.Snapshot())
			if err != nil {
				s.logger.Error("live feed encoding failed", slog.Any("error", err))
				continue
			}
			s.hub.Broadcast <- buf
		}
	}
}
