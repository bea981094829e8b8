// Package testutil provides an in-memory blood network backend for tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/Mahi-B-Rahaman/IIUC-Blood-Network/internal/client"
	"github.com/Mahi-B-Rahaman/IIUC-Blood-Network/internal/config"
	"github.com/Mahi-B-Rahaman/IIUC-Blood-Network/internal/domain"
)

// DefaultOTP is the code the fake backend "sends" for every registration.
const DefaultOTP = "123456"

// Call is one request received by the fake backend.
type Call struct {
	Method    string
	Path      string
	RequestID string
	Body      map[string]any
}

type failure struct {
	status int
	body   any
}

type account struct {
	profile  domain.DonorProfile
	password string
}

// FakeBackend serves the blood network REST surface from memory.
type FakeBackend struct {
	server *httptest.Server
	log    *zap.Logger

	mu       sync.Mutex
	accounts map[string]*account // by donor id
	requests []domain.BloodRequest
	otps     map[string]string
	accepted map[string][]string
	calls    []Call
	failures map[string]failure
	seq      int
}

// NewFakeBackend starts a fake backend that is closed when the test ends.
func NewFakeBackend(t *testing.T) *FakeBackend {
	t.Helper()
	gin.SetMode(gin.TestMode)

	fb := &FakeBackend{
		accounts: make(map[string]*account),
		otps:     make(map[string]string),
		accepted: make(map[string][]string),
		failures: make(map[string]failure),
		log:      zaptest.NewLogger(t).Named("fake-backend"),
	}

	r := gin.New()
	r.Use(gin.Recovery(), fb.record, fb.injectFailures)
	r.POST("/login", fb.login)
	r.POST("/send-otp", fb.sendOTP)
	r.POST("/register", fb.register)
	r.GET("/requests", fb.listRequests)
	r.POST("/requests", fb.createRequest)
	r.DELETE("/requests/:id", fb.cancelRequest)
	r.GET("/donors/:id", fb.getDonor)
	r.PUT("/donors/:id", fb.updateDonor)
	r.POST("/donors/:id/accept", fb.acceptRequest)

	fb.server = httptest.NewServer(r)
	t.Cleanup(fb.server.Close)
	return fb
}

// URL is the base URL clients should target.
func (fb *FakeBackend) URL() string {
	return fb.server.URL
}

// NewAPI returns a typed client pointed at the fake backend.
func (fb *FakeBackend) NewAPI(t *testing.T) *client.API {
	t.Helper()
	c, err := client.NewClient(config.APIConfig{BaseURL: fb.URL(), Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("creating client: %v", err)
	}
	return client.NewAPI(c)
}

// Close stops the server; later calls fail with connection errors.
func (fb *FakeBackend) Close() {
	fb.server.Close()
}

// AddDonor registers an account. The profile phone is stored as given.
func (fb *FakeBackend) AddDonor(profile domain.DonorProfile, password string) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.accounts[profile.ID] = &account{profile: profile, password: password}
}

// Donor returns the stored profile for id.
func (fb *FakeBackend) Donor(id string) (domain.DonorProfile, bool) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	a, ok := fb.accounts[id]
	if !ok {
		return domain.DonorProfile{}, false
	}
	return a.profile, true
}

// AddRequest stores an open request, assigning ids when missing.
func (fb *FakeBackend) AddRequest(r domain.BloodRequest) domain.BloodRequest {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.addRequestLocked(r)
}

func (fb *FakeBackend) addRequestLocked(r domain.BloodRequest) domain.BloodRequest {
	fb.seq++
	if r.ID == "" {
		r.ID = fmt.Sprintf("r%d", fb.seq)
	}
	if r.RequestID == "" {
		r.RequestID = fmt.Sprintf("B-%06d", 100000+fb.seq)
	}
	if r.Status == "" {
		r.Status = "pending"
	}
	fb.requests = append(fb.requests, r)
	return r
}

// Requests returns a copy of the stored requests.
func (fb *FakeBackend) Requests() []domain.BloodRequest {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	out := make([]domain.BloodRequest, len(fb.requests))
	copy(out, fb.requests)
	return out
}

// Accepted returns the request ids donorID accepted, in order.
func (fb *FakeBackend) Accepted(donorID string) []string {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return append([]string(nil), fb.accepted[donorID]...)
}

// OTP returns the last code issued for an international phone number.
func (fb *FakeBackend) OTP(phone string) string {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.otps[phone]
}

// Fail makes every call to method+route answer status with body until
// cleared. route is the gin pattern, e.g. "/requests/:id".
func (fb *FakeBackend) Fail(method, route string, status int, body any) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.failures[method+" "+route] = failure{status: status, body: body}
}

// ClearFailures removes all injected failures.
func (fb *FakeBackend) ClearFailures() {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.failures = make(map[string]failure)
}

// Calls returns every request received so far.
func (fb *FakeBackend) Calls() []Call {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return append([]Call(nil), fb.calls...)
}

// CallCount returns the number of requests received so far.
func (fb *FakeBackend) CallCount() int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return len(fb.calls)
}

// ResetCalls forgets recorded calls.
func (fb *FakeBackend) ResetCalls() {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.calls = nil
}

// LastCall returns the most recent call matching method and path.
func (fb *FakeBackend) LastCall(method, path string) (Call, bool) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	for i := len(fb.calls) - 1; i >= 0; i-- {
		if fb.calls[i].Method == method && fb.calls[i].Path == path {
			return fb.calls[i], true
		}
	}
	return Call{}, false
}

// record keeps every call for assertions and logs it once handled.
func (fb *FakeBackend) record(c *gin.Context) {
	start := time.Now()
	call := Call{
		Method:    c.Request.Method,
		Path:      c.Request.URL.Path,
		RequestID: c.GetHeader(client.RequestIDHeader),
	}
	if c.Request.Body != nil {
		data, err := io.ReadAll(c.Request.Body)
		if err == nil && len(data) > 0 {
			_ = json.Unmarshal(data, &call.Body)
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(data))
	}

	fb.mu.Lock()
	fb.calls = append(fb.calls, call)
	fb.mu.Unlock()
	c.Next()

	fb.log.Debug("handled",
		zap.String("method", call.Method),
		zap.String("path", call.Path),
		zap.String("request_id", call.RequestID),
		zap.Int("status", c.Writer.Status()),
		zap.Duration("latency", time.Since(start)),
	)
}

func (fb *FakeBackend) injectFailures(c *gin.Context) {
	fb.mu.Lock()
	f, ok := fb.failures[c.Request.Method+" "+c.FullPath()]
	fb.mu.Unlock()
	if !ok {
		c.Next()
		return
	}
	if f.body == nil {
		c.AbortWithStatus(f.status)
		return
	}
	c.AbortWithStatusJSON(f.status, f.body)
}

func (fb *FakeBackend) login(c *gin.Context) {
	var req struct {
		Phone    string `json:"phone"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	fb.mu.Lock()
	defer fb.mu.Unlock()
	for _, a := range fb.accounts {
		if a.profile.Phone != req.Phone {
			continue
		}
		if a.password != req.Password {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Wrong password"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Login success!", "id": a.profile.ID})
		return
	}
	c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
}

func (fb *FakeBackend) sendOTP(c *gin.Context) {
	var req struct {
		Phone string `json:"phone"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || !strings.HasPrefix(req.Phone, "+88") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid phone number"})
		return
	}

	fb.mu.Lock()
	fb.otps[req.Phone] = DefaultOTP
	fb.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"message": "OTP sent"})
}

func (fb *FakeBackend) register(c *gin.Context) {
	var req struct {
		Name       string `json:"name"`
		Password   string `json:"password"`
		Phone      string `json:"phone"`
		BloodGroup string `json:"bloodGroup"`
		Gender     string `json:"gender"`
		OTP        string `json:"otp"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	fb.mu.Lock()
	defer fb.mu.Unlock()
	if code, ok := fb.otps[req.Phone]; !ok || code != req.OTP {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired OTP"})
		return
	}
	delete(fb.otps, req.Phone)

	fb.seq++
	id := fmt.Sprintf("u%d", fb.seq)
	fb.accounts[id] = &account{
		profile: domain.DonorProfile{
			ID:         id,
			Name:       req.Name,
			Phone:      strings.TrimPrefix(req.Phone, "+88"),
			BloodGroup: domain.BloodGroup(req.BloodGroup),
			Gender:     req.Gender,
		},
		password: req.Password,
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Registered", "id": id})
}

func (fb *FakeBackend) listRequests(c *gin.Context) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	out := make([]gin.H, 0, len(fb.requests))
	for _, r := range fb.requests {
		out = append(out, gin.H{
			"_id":          r.ID,
			"requestId":    r.RequestID,
			"patientName":  r.PatientName,
			"phone":        r.Phone,
			"bloodGroup":   r.BloodGroup,
			"location":     r.Location,
			"donationDate": r.DonationDate,
			"donationTime": r.DonationTime,
			"reason":       r.Reason,
			"status":       r.Status,
		})
	}
	c.JSON(http.StatusOK, out)
}

func (fb *FakeBackend) createRequest(c *gin.Context) {
	var req domain.BloodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	fb.mu.Lock()
	created := fb.addRequestLocked(req)
	fb.mu.Unlock()
	c.JSON(http.StatusCreated, gin.H{"requestId": created.RequestID})
}

func (fb *FakeBackend) cancelRequest(c *gin.Context) {
	id := c.Param("id")

	fb.mu.Lock()
	defer fb.mu.Unlock()
	for i, r := range fb.requests {
		if r.ID == id || r.RequestID == id {
			fb.requests = append(fb.requests[:i], fb.requests[i+1:]...)
			c.JSON(http.StatusOK, gin.H{"message": "Request cancelled"})
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "Request not found"})
}

func (fb *FakeBackend) getDonor(c *gin.Context) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	a, ok := fb.accounts[c.Param("id")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Donor not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"_id":        a.profile.ID,
		"name":       a.profile.Name,
		"phone":      a.profile.Phone,
		"bloodGroup": a.profile.BloodGroup,
		"gender":     a.profile.Gender,
	})
}

func (fb *FakeBackend) updateDonor(c *gin.Context) {
	var req struct {
		BloodGroup string `json:"bloodGroup"`
		Gender     string `json:"gender"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	fb.mu.Lock()
	defer fb.mu.Unlock()
	a, ok := fb.accounts[c.Param("id")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Donor not found"})
		return
	}
	a.profile.BloodGroup = domain.BloodGroup(req.BloodGroup)
	a.profile.Gender = req.Gender
	c.JSON(http.StatusOK, gin.H{"message": "Profile updated"})
}

func (fb *FakeBackend) acceptRequest(c *gin.Context) {
	var req struct {
		RequestID string `json:"requestId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	donorID := c.Param("id")
	fb.mu.Lock()
	defer fb.mu.Unlock()
	if _, ok := fb.accounts[donorID]; !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Donor not found"})
		return
	}
	for i, r := range fb.requests {
		if r.ID == req.RequestID || r.RequestID == req.RequestID {
			fb.requests[i].Status = "accepted"
			fb.accepted[donorID] = append(fb.accepted[donorID], req.RequestID)
			c.JSON(http.StatusOK, gin.H{"message": "Added to queue"})
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "Request not found"})
}
