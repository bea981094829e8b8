// Package domain holds the records exchanged with the blood network backend
// and the error taxonomy shared by the client packages.
package domain

import (
	"encoding/json"
	"strings"
)

// BloodGroup is one of the eight ABO/Rh groups.
type BloodGroup string

const (
	APositive  BloodGroup = "A+"
	ANegative  BloodGroup = "A-"
	BPositive  BloodGroup = "B+"
	BNegative  BloodGroup = "B-"
	ABPositive BloodGroup = "AB+"
	ABNegative BloodGroup = "AB-"
	OPositive  BloodGroup = "O+"
	ONegative  BloodGroup = "O-"
)

// BloodGroups lists every accepted group in display order.
var BloodGroups = []BloodGroup{
	APositive, ANegative, BPositive, BNegative,
	ABPositive, ABNegative, OPositive, ONegative,
}

// Valid reports whether g is one of BloodGroups.
func (g BloodGroup) Valid() bool {
	for _, bg := range BloodGroups {
		if g == bg {
			return true
		}
	}
	return false
}

// Gender values accepted by the donor profile.
const (
	GenderMale   = "male"
	GenderFemale = "female"
	GenderOther  = "other"
)

// Genders lists the accepted gender values.
var Genders = []string{GenderMale, GenderFemale, GenderOther}

// ValidGender reports whether g is one of Genders.
func ValidGender(g string) bool {
	for _, v := range Genders {
		if g == v {
			return true
		}
	}
	return false
}

// Session is the client's login identity.
// IsLoggedIn is always equal to UserID != "".
type Session struct {
	UserID     string `json:"userId,omitempty"`
	IsLoggedIn bool   `json:"isLoggedIn"`
}

// DonorProfile is fetched from GET /donors/:id.
type DonorProfile struct {
	ID         string     `json:"id"`
	Name       string     `json:"name,omitempty"`
	Phone      string     `json:"phone"`
	BloodGroup BloodGroup `json:"bloodGroup,omitempty"`
	Gender     string     `json:"gender,omitempty"`
}

// Complete reports whether both blood group and gender are known.
func (p DonorProfile) Complete() bool {
	return p.BloodGroup != "" && p.Gender != ""
}

// UnmarshalJSON accepts both "id" and the backend's "_id".
func (p *DonorProfile) UnmarshalJSON(data []byte) error {
	type alias DonorProfile
	aux := struct {
		*alias
		MongoID string `json:"_id"`
	}{alias: (*alias)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if p.ID == "" {
		p.ID = aux.MongoID
	}
	return nil
}

// BloodRequest is an emergency posting owned by the backend.
type BloodRequest struct {
	ID           string     `json:"id,omitempty"`
	RequestID    string     `json:"requestId,omitempty"`
	PatientName  string     `json:"patientName"`
	Phone        string     `json:"phone"`
	BloodGroup   BloodGroup `json:"bloodGroup"`
	Location     string     `json:"location"`
	DonationDate string     `json:"donationDate"`
	DonationTime string     `json:"donationTime"`
	Reason       string     `json:"reason"`
	Status       string     `json:"status,omitempty"`
}

// UnmarshalJSON accepts both "id" and the backend's "_id".
func (r *BloodRequest) UnmarshalJSON(data []byte) error {
	type alias BloodRequest
	aux := struct {
		*alias
		MongoID string `json:"_id"`
	}{alias: (*alias)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if r.ID == "" {
		r.ID = aux.MongoID
	}
	return nil
}

// Key is the identifier used in /requests/:id and accept calls.
func (r BloodRequest) Key() string {
	if r.ID != "" {
		return r.ID
	}
	return r.RequestID
}

// Reference is the identifier shown to users ("B-XXXXXX" when the backend
// generated one).
func (r BloodRequest) Reference() string {
	if r.RequestID != "" {
		return r.RequestID
	}
	return r.ID
}

// Progress maps a status text to a completion percentage for display:
// "done" is 100, anything mentioning "accept" is 75, everything else 25.
func Progress(status string) int {
	s := strings.ToLower(strings.TrimSpace(status))
	switch {
	case s == "done":
		return 100
	case strings.Contains(s, "accept"):
		return 75
	default:
		return 25
	}
}
