package testutil

import (
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/Mahi-B-Rahaman/IIUC-Blood-Network/internal/domain"
)

var reasons = []string{"Surgery", "Accident", "Thalassemia", "Dengue", "Childbirth", "Anemia"}

// Faker wraps gofakeit with generators for blood network records.
type Faker struct {
	*gofakeit.Faker
}

// NewFaker creates a faker. A zero seed is random.
func NewFaker(seed uint64) *Faker {
	return &Faker{Faker: gofakeit.New(seed)}
}

// Phone returns a valid national mobile number.
func (f *Faker) Phone() string {
	return fmt.Sprintf("01%d%08d", f.Number(3, 9), f.Number(0, 99999999))
}

// BloodGroup returns one of the eight groups.
func (f *Faker) BloodGroup() domain.BloodGroup {
	return domain.BloodGroups[f.Number(0, len(domain.BloodGroups)-1)]
}

// Request returns a complete request with the given group and phone.
// Empty arguments are filled with random values.
func (f *Faker) Request(group domain.BloodGroup, phone string) domain.BloodRequest {
	if group == "" {
		group = f.BloodGroup()
	}
	if phone == "" {
		phone = f.Phone()
	}
	return domain.BloodRequest{
		PatientName:  f.Name(),
		Phone:        phone,
		BloodGroup:   group,
		Location:     f.City() + " Medical College Hospital",
		DonationDate: time.Now().AddDate(0, 0, f.Number(1, 14)).Format(time.DateOnly),
		DonationTime: fmt.Sprintf("%02d:%02d", f.Number(0, 23), f.Number(0, 59)),
		Reason:       f.RandomString(reasons),
	}
}

// Donor returns a complete donor profile with the given id.
func (f *Faker) Donor(id string, group domain.BloodGroup) domain.DonorProfile {
	if group == "" {
		group = f.BloodGroup()
	}
	return domain.DonorProfile{
		ID:         id,
		Name:       f.Name(),
		Phone:      f.Phone(),
		BloodGroup: group,
		Gender:     f.RandomString(domain.Genders),
	}
}
