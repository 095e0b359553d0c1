package carnet

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	corecarnet "github.com/evhome/carnet-hass/core/carnet"
)

func newTestServer(t *testing.T) (*httptest.Server, *Client) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var creds map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		if creds["username"] != "user" || creds["password"] != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "tok-1"})
	})
	mux.HandleFunc("/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/vehicles", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`[{
			"vin": "WVWZZZ1KZAW000001",
			"device_id": "0123456789abcdef0123456789abcdef",
			"model": "Passat GTE",
			"model_year": "2021",
			"status": {
				"battery_level": 42,
				"charging": true,
				"latitude": 48.85,
				"longitude": 2.35
			}
		}]`))
	})
	mux.HandleFunc("/vehicles/WVWZZZ1KZAW000001/report-request", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})
	mux.HandleFunc("/devices/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	cli := New(Config{BaseURL: srv.URL, Username: "user", Password: "secret"})
	return srv, cli
}

func TestLoginStoresToken(t *testing.T) {
	_, cli := newTestServer(t)
	require.False(t, cli.LoggedIn())
	require.NoError(t, cli.Login(context.Background()))
	assert.True(t, cli.LoggedIn())
}

func TestLoginRejectedMapsUnauthorized(t *testing.T) {
	_, cli := newTestServer(t)
	cli.cfg.Password = "wrong"
	err := cli.Login(context.Background())
	assert.ErrorIs(t, err, corecarnet.ErrUnauthorized)
	assert.False(t, cli.LoggedIn())
}

func TestUpdateDecodesVehicles(t *testing.T) {
	_, cli := newTestServer(t)
	require.NoError(t, cli.Login(context.Background()))

	vehicles, err := cli.Update(context.Background())
	require.NoError(t, err)
	require.Len(t, vehicles, 1)

	v := vehicles[0]
	assert.Equal(t, "WVWZZZ1KZAW000001", v.VIN)
	assert.Equal(t, "Passat GTE", v.Model)
	require.NotNil(t, v.Status.BatteryLevel)
	assert.Equal(t, 42, *v.Status.BatteryLevel)
	assert.True(t, v.IsCharging())
	require.NotNil(t, v.Status.Position)
	assert.Equal(t, 48.85, v.Status.Position.Latitude)
	assert.Nil(t, v.Status.OdometerKM, "unreported fields stay nil")
}

func TestUpdateWithoutSessionFails(t *testing.T) {
	_, cli := newTestServer(t)
	_, err := cli.Update(context.Background())
	assert.ErrorIs(t, err, corecarnet.ErrUnauthorized)
}

func TestExpiredSessionClearsToken(t *testing.T) {
	_, cli := newTestServer(t)
	require.NoError(t, cli.Login(context.Background()))
	cli.mu.Lock()
	cli.token = "stale"
	cli.mu.Unlock()

	_, err := cli.Update(context.Background())
	assert.ErrorIs(t, err, corecarnet.ErrUnauthorized)
	assert.False(t, cli.LoggedIn(), "401 must drop the session")
}

func TestCommandsHitDeviceEndpoints(t *testing.T) {
	_, cli := newTestServer(t)
	require.NoError(t, cli.Login(context.Background()))
	ctx := context.Background()
	deviceID := "0123456789abcdef0123456789abcdef"

	require.NoError(t, cli.SetChargerMaxCurrent(ctx, deviceID, "16"))
	require.NoError(t, cli.SetTimerBasicSettings(ctx, deviceID, corecarnet.TimerBasicSettings{TargetLevel: 50}))
	require.NoError(t, cli.UpdateSchedule(ctx, deviceID, corecarnet.ScheduleUpdate{TimerID: 1}))
	require.NoError(t, cli.UpdateProfile(ctx, deviceID, corecarnet.ProfileUpdate{ProfileID: 2, Name: "Home"}))
}

func TestRequestReport(t *testing.T) {
	_, cli := newTestServer(t)
	require.NoError(t, cli.Login(context.Background()))
	require.NoError(t, cli.RequestReport(context.Background(), "WVWZZZ1KZAW000001"))

	err := cli.RequestReport(context.Background(), "UNKNOWN")
	assert.ErrorIs(t, err, corecarnet.ErrNotFound)
}

func TestLogoutDropsTokenEvenOnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/login" {
			_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "tok-1"})
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	cli := New(Config{BaseURL: srv.URL, Username: "user", Password: "secret"})
	require.NoError(t, cli.Login(context.Background()))

	err := cli.Logout(context.Background())
	assert.Error(t, err)
	assert.False(t, cli.LoggedIn(), "local session state is cleared regardless")
}
