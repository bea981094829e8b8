package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Mahi-B-Rahaman/IIUC-Blood-Network/internal/config"
	"github.com/Mahi-B-Rahaman/IIUC-Blood-Network/internal/domain"
	"github.com/Mahi-B-Rahaman/IIUC-Blood-Network/internal/logger"
)

func newTestAPI(t *testing.T, handler http.HandlerFunc) *API {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c, err := NewClient(config.APIConfig{BaseURL: server.URL, Timeout: 5 * time.Second})
	require.NoError(t, err)
	return NewAPI(c)
}

// TestClientCreation tests basic client creation.
func TestClientCreation(t *testing.T) {
	c, err := NewClient(config.APIConfig{BaseURL: "http://localhost:5000/"})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:5000", c.BaseURL())

	_, err = NewClient(config.APIConfig{})
	assert.Error(t, err)
}

// TestBasicRequest tests headers and URL joining.
func TestBasicRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/requests", r.URL.Path)
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "bloodnet-test", r.Header.Get("User-Agent"))
		assert.NotEmpty(t, r.Header.Get(RequestIDHeader))
		assert.Equal(t, "yes", r.Header.Get("X-Extra"))

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	c, err := NewClient(config.APIConfig{BaseURL: server.URL + "/api", UserAgent: "bloodnet-test"})
	require.NoError(t, err)
	c.SetHeader("X-Extra", "yes")

	resp, err := c.Get(context.Background(), "requests")
	require.NoError(t, err)
	assert.True(t, resp.IsSuccess())
	assert.Equal(t, `[]`, string(resp.Body))
	assert.NotEmpty(t, resp.RequestID)
}

// TestNetworkError tests that an unreachable backend yields a network error.
func TestNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	c, err := NewClient(config.APIConfig{BaseURL: url, Timeout: time.Second})
	require.NoError(t, err)

	_, err = c.Get(context.Background(), "/requests")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNetwork)
	assert.Equal(t, domain.NetworkErrorMessage, err.Error())
}

func TestResponse_ErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"error field", `{"error":"Invalid OTP"}`, "Invalid OTP"},
		{"message field", `{"message":"User not found"}`, "User not found"},
		{"error wins", `{"error":"a","message":"b"}`, "a"},
		{"not json", `<html>oops</html>`, ""},
		{"empty", ``, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Response{Body: []byte(tt.body)}
			assert.Equal(t, tt.want, r.ErrorMessage())
		})
	}
}

func TestAPI_Login_ReturnsAnyStatus(t *testing.T) {
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		var body LoginRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "01712345678", body.Phone)
		assert.Equal(t, "secret", body.Password)

		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"Wrong password"}`))
	})

	resp, err := api.Login(context.Background(), LoginRequest{Phone: "01712345678", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Wrong password", resp.Message)
}

func TestAPI_ListRequests(t *testing.T) {
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"_id":"r1","bloodGroup":"O+","phone":"01912345678"},{"_id":"r2","bloodGroup":"A-"}]`))
	})

	requests, err := api.ListRequests(context.Background())
	require.NoError(t, err)
	require.Len(t, requests, 2)
	assert.Equal(t, "r1", requests[0].ID)
	assert.Equal(t, domain.ANegative, requests[1].BloodGroup)
}

func TestAPI_ListRequests_NullBody(t *testing.T) {
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`null`))
	})

	requests, err := api.ListRequests(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, requests)
	assert.Empty(t, requests)
}

func TestAPI_ServerErrorMessages(t *testing.T) {
	t.Run("backend message surfaced verbatim", func(t *testing.T) {
		api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"Invalid or expired OTP"}`))
		})

		err := api.Register(context.Background(), RegisterRequest{Name: "n", OTP: "123456"})
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrServer)
		assert.Equal(t, "Invalid or expired OTP", err.Error())
	})

	t.Run("generic fallback without a body", func(t *testing.T) {
		api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})

		err := api.SendOTP(context.Background(), "+8801712345678")
		require.Error(t, err)
		assert.Equal(t, msgSendOTPFailed, err.Error())

		var de *domain.Error
		require.ErrorAs(t, err, &de)
		assert.Equal(t, http.StatusInternalServerError, de.Status)
	})
}

func TestAPI_CreateRequest(t *testing.T) {
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/requests", r.URL.Path)
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Rahim", body["patientName"])
		assert.NotContains(t, body, "id")

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"requestId":"B-482913"}`))
	})

	id, err := api.CreateRequest(context.Background(), domain.BloodRequest{PatientName: "Rahim"})
	require.NoError(t, err)
	assert.Equal(t, "B-482913", id)
}

func TestAPI_DonorEndpoints(t *testing.T) {
	var calls []string
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		switch {
		case r.Method == http.MethodGet:
			w.Write([]byte(`{"phone":"01712345678","bloodGroup":"B+"}`))
		case r.Method == http.MethodDelete:
		case r.Method == http.MethodPut:
			var body ProfileUpdate
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, domain.BPositive, body.BloodGroup)
			assert.Equal(t, "male", body.Gender)
		default:
			var body AcceptRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "r9", body.RequestID)
		}
	})

	ctx := context.Background()
	donor, err := api.GetDonor(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", donor.ID)
	assert.Equal(t, domain.BPositive, donor.BloodGroup)

	require.NoError(t, api.UpdateDonor(ctx, "u1", ProfileUpdate{BloodGroup: domain.BPositive, Gender: "male"}))
	require.NoError(t, api.AcceptRequest(ctx, "u1", "r9"))
	require.NoError(t, api.CancelRequest(ctx, "r9"))

	assert.Equal(t, []string{
		"GET /donors/u1",
		"PUT /donors/u1",
		"POST /donors/u1/accept",
		"DELETE /requests/r9",
	}, calls)
}

// TestCallLogging tests that backend calls log the request id and context fields.
func TestCallLogging(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	core, logs := observer.New(zapcore.DebugLevel)
	c, err := NewClient(config.APIConfig{BaseURL: server.URL}, WithLogger(zap.New(core)))
	require.NoError(t, err)

	ctx := logger.WithCommand(logger.WithUserID(context.Background(), "u1"), "feed")
	resp, err := c.Get(ctx, "/requests")
	require.NoError(t, err)

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "u1", fields["user_id"])
	assert.Equal(t, "feed", fields["command"])
	assert.Equal(t, resp.RequestID, fields["request_id"])
	assert.EqualValues(t, http.StatusOK, fields["status"])
}
