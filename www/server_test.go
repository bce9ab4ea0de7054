package www

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wattshare/wattshare-go/community"
	"github.com/wattshare/wattshare-go/config"
	"github.com/wattshare/wattshare-go/database"
	"github.com/wattshare/wattshare-go/domain"
	"github.com/wattshare/wattshare-go/forecast"
	"github.com/wattshare/wattshare-go/notify"
	"github.com/wattshare/wattshare-go/plants"
	"github.com/wattshare/wattshare-go/users"
)

const testSecret = "test-secret"

type stubProvider struct{}

func (stubProvider) Name() string { return "stub" }

func (stubProvider) CurrentSolarRadiation(context.Context, float64, float64) (forecast.Reading, error) {
	return forecast.Reading{}, nil
}

func (stubProvider) SolarRadiationForecast(context.Context, float64, float64) ([]forecast.Reading, error) {
	return nil, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	ctx := context.Background()

	db, err := database.New(ctx, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(db.Close)

	userSvc := users.NewService(db)
	plantSvc := plants.NewService(db, stubProvider{}, userSvc, nil)
	notifySvc := notify.NewService(db)
	communitySvc := community.NewService(db, plantSvc, userSvc, notifySvc)

	return StartServer(db, userSvc, plantSvc, communitySvc, notifySvc, nil, config.AppConfigApi{
		Port:      0,
		JwtSecret: testSecret,
	})
}

func signToken(t *testing.T, subject, email string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func doRequest(s *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	return rec
}

func TestMissingTokenIsRejected(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, http.MethodGet, "/power-plants", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestInvalidTokenIsRejected(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, http.MethodGet, "/power-plants", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUnregisteredIdentityIsForbidden(t *testing.T) {
	s := newTestServer(t)
	token := signToken(t, "auth0|new", "new@example.com")

	rec := doRequest(s, http.MethodGet, "/power-plants", token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRegisterThenCreatePlant(t *testing.T) {
	s := newTestServer(t)
	token := signToken(t, "auth0|owner", "owner@example.com")

	rec := doRequest(s, http.MethodPost, "/users", token, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	// Registering twice conflicts.
	rec = doRequest(s, http.MethodPost, "/users", token, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doRequest(s, http.MethodPost, "/power-plants", token, plants.CreateParams{
		DisplayName: "roof",
		Latitude:    52.52,
		Longitude:   13.41,
		MaxPower:    100,
		Size:        100,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var plant plants.PowerPlant
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &plant))
	assert.NotEmpty(t, plant.ID)
	require.Len(t, plant.Calibration, 1)

	rec = doRequest(s, http.MethodGet, "/power-plants/"+plant.ID, token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(s, http.MethodGet, "/power-plants/missing", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{domain.Validation("bad"), http.StatusBadRequest},
		{domain.NotFound("gone"), http.StatusNotFound},
		{domain.PreconditionFailed("not yet"), http.StatusPreconditionFailed},
		{domain.Unauthorized("no"), http.StatusForbidden},
		{domain.Conflict("dup"), http.StatusConflict},
		{domain.Upstream("remote", errors.New("boom")), http.StatusBadGateway},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.status, statusFor(tt.err), "error: %v", tt.err)
	}
}

func TestReconcileRolesRequiresAdmin(t *testing.T) {
	s := newTestServer(t)
	token := signToken(t, "auth0|plain", "plain@example.com")

	rec := doRequest(s, http.MethodPost, "/users", token, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var user users.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))

	rec = doRequest(s, http.MethodPost, "/users/"+user.ID+"/roles/reconcile", token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCalibrateValidationSurfacesAsBadRequest(t *testing.T) {
	s := newTestServer(t)
	token := signToken(t, "auth0|owner", "owner@example.com")

	rec := doRequest(s, http.MethodPost, "/users", token, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(s, http.MethodPost, "/power-plants", token, plants.CreateParams{
		DisplayName: "roof",
		Latitude:    52.52,
		Longitude:   13.41,
		MaxPower:    100,
		Size:        100,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var plant plants.PowerPlant
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &plant))

	rec = doRequest(s, http.MethodPost, "/power-plants/"+plant.ID+"/calibrate", token, map[string]any{"power": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogEntriesRequireAdmin(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	token := signToken(t, "auth0|operator", "operator@example.com")

	rec := doRequest(s, http.MethodPost, "/users", token, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var user users.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))

	rec = doRequest(s, http.MethodGet, "/admin/log", token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	require.NoError(t, s.users.AddRole(ctx, user.ID, users.RoleAdmin))
	require.NoError(t, s.db.SaveLogEntry(ctx, time.Now().UTC(), 0, "recorder finished", "{}"))

	rec = doRequest(s, http.MethodGet, "/admin/log", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []database.LogEntryRow
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.NotEmpty(t, entries)
	assert.Equal(t, "recorder finished", entries[0].Message)
}
