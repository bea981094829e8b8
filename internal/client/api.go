package client

import (
	"context"

	"github.com/Mahi-B-Rahaman/IIUC-Blood-Network/internal/domain"
)

// Fallback messages used when a failed response carries no error text.
const (
	msgSendOTPFailed  = "Failed to send OTP."
	msgRegisterFailed = "Registration failed."
	msgLoadRequests   = "Failed to load requests"
	msgLoadDonor      = "Failed to load data"
	msgCreateFailed   = "Failed to submit request. Please try again."
	msgCancelFailed   = "Failed to cancel request. Please try again."
	msgUpdateFailed   = "Failed to update profile."
	msgAcceptFailed   = "Failed to add to queue"
)

// LoginRequest is the POST /login body.
type LoginRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// LoginResponse is whatever POST /login answered, whatever the status.
// Outcome is the structured discriminator when the backend provides one;
// Message is the legacy text discriminator.
type LoginResponse struct {
	StatusCode int    `json:"-"`
	Outcome    string `json:"outcome,omitempty"`
	Message    string `json:"message,omitempty"`
	Error      string `json:"error,omitempty"`
	ID         string `json:"id,omitempty"`
}

// SendOTPRequest is the POST /send-otp body.
type SendOTPRequest struct {
	Phone string `json:"phone"`
}

// RegisterRequest is the POST /register body.
type RegisterRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email,omitempty"`
	Password   string `json:"password"`
	Phone      string `json:"phone"`
	BloodGroup string `json:"bloodGroup,omitempty"`
	Gender     string `json:"gender,omitempty"`
	OTP        string `json:"otp"`
}

// ProfileUpdate is the PUT /donors/:id body.
type ProfileUpdate struct {
	BloodGroup domain.BloodGroup `json:"bloodGroup"`
	Gender     string            `json:"gender"`
}

// AcceptRequest is the POST /donors/:id/accept body.
type AcceptRequest struct {
	RequestID string `json:"requestId"`
}

// CreateRequestResponse is the 201 body of POST /requests.
type CreateRequestResponse struct {
	RequestID string `json:"requestId"`
}

// API is the typed surface of the blood network backend.
type API struct {
	client *Client
}

// NewAPI wraps a transport client.
func NewAPI(c *Client) *API {
	return &API{client: c}
}

// Login posts credentials. Any HTTP status is returned in the response;
// only transport failures produce an error.
func (a *API) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	resp, err := a.client.Post(ctx, "/login", req)
	if err != nil {
		return nil, err
	}

	out := &LoginResponse{StatusCode: resp.StatusCode}
	// A non-JSON body is treated as an unrecognised login response.
	_ = resp.DecodeJSON(out)
	return out, nil
}

// SendOTP asks the backend to text a registration code to phone.
func (a *API) SendOTP(ctx context.Context, phone string) error {
	resp, err := a.client.Post(ctx, "/send-otp", SendOTPRequest{Phone: phone})
	if err != nil {
		return err
	}
	return expect(resp, msgSendOTPFailed)
}

// Register completes a registration with the received code.
func (a *API) Register(ctx context.Context, req RegisterRequest) error {
	resp, err := a.client.Post(ctx, "/register", req)
	if err != nil {
		return err
	}
	return expect(resp, msgRegisterFailed)
}

// ListRequests returns every open blood request.
func (a *API) ListRequests(ctx context.Context) ([]domain.BloodRequest, error) {
	resp, err := a.client.Get(ctx, "/requests")
	if err != nil {
		return nil, err
	}
	if err := expect(resp, msgLoadRequests); err != nil {
		return nil, err
	}

	var requests []domain.BloodRequest
	if err := resp.DecodeJSON(&requests); err != nil {
		return nil, domain.NewServerError(resp.StatusCode, "", msgLoadRequests)
	}
	if requests == nil {
		requests = []domain.BloodRequest{}
	}
	return requests, nil
}

// CreateRequest posts a new emergency request and returns its reference id.
func (a *API) CreateRequest(ctx context.Context, req domain.BloodRequest) (string, error) {
	resp, err := a.client.Post(ctx, "/requests", req)
	if err != nil {
		return "", err
	}
	if err := expect(resp, msgCreateFailed); err != nil {
		return "", err
	}

	var out CreateRequestResponse
	if err := resp.DecodeJSON(&out); err != nil {
		return "", domain.NewServerError(resp.StatusCode, "", msgCreateFailed)
	}
	return out.RequestID, nil
}

// CancelRequest deletes the request with the given id.
func (a *API) CancelRequest(ctx context.Context, id string) error {
	resp, err := a.client.Delete(ctx, "/requests/"+id)
	if err != nil {
		return err
	}
	return expect(resp, msgCancelFailed)
}

// GetDonor fetches a donor profile.
func (a *API) GetDonor(ctx context.Context, id string) (*domain.DonorProfile, error) {
	resp, err := a.client.Get(ctx, "/donors/"+id)
	if err != nil {
		return nil, err
	}
	if err := expect(resp, msgLoadDonor); err != nil {
		return nil, err
	}

	var donor domain.DonorProfile
	if err := resp.DecodeJSON(&donor); err != nil {
		return nil, domain.NewServerError(resp.StatusCode, "", msgLoadDonor)
	}
	if donor.ID == "" {
		donor.ID = id
	}
	return &donor, nil
}

// UpdateDonor sets a donor's blood group and gender.
func (a *API) UpdateDonor(ctx context.Context, id string, update ProfileUpdate) error {
	resp, err := a.client.Put(ctx, "/donors/"+id, update)
	if err != nil {
		return err
	}
	return expect(resp, msgUpdateFailed)
}

// AcceptRequest records that donorID accepted requestID.
func (a *API) AcceptRequest(ctx context.Context, donorID, requestID string) error {
	resp, err := a.client.Post(ctx, "/donors/"+donorID+"/accept", AcceptRequest{RequestID: requestID})
	if err != nil {
		return err
	}
	return expect(resp, msgAcceptFailed)
}

// expect turns a non-2xx response into a server error carrying the
// backend's message verbatim when present.
func expect(resp *Response, fallback string) error {
	if resp.IsSuccess() {
		return nil
	}
	return domain.NewServerError(resp.StatusCode, resp.ErrorMessage(), fallback)
}
