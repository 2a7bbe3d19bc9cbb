package models

import "time"

// VerifiedContact records a phone number that has completed OTP
// verification at least once. One row per (countryCode, mobile);
// VerifiedAt is bumped on every successful re-verification.
type VerifiedContact struct {
	ID          string    `json:"id" dynamodbav:"id"`
	CountryCode string    `json:"countryCode" dynamodbav:"country_code"`
	Mobile      string    `json:"mobile" dynamodbav:"mobile"`
	VerifiedAt  time.Time `json:"verifiedAt" dynamodbav:"verified_at"`
}

func (c *VerifiedContact) GetPK() string {
	return ContactPK(c.CountryCode, c.Mobile)
}

func (c *VerifiedContact) GetSK() string {
	return "METADATA"
}

func ContactPK(countryCode, mobile string) string {
	return "CONTACT!" + countryCode + mobile
}
