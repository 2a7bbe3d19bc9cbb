package models

import "time"

// OtpAttempt is a single issued passcode challenge for a phone number.
// A successfully verified record is retained (verified=true) as an audit
// trail; unverified records are garbage collected once expired.
type OtpAttempt struct {
	ID          string    `json:"id" dynamodbav:"id"`
	CountryCode string    `json:"countryCode" dynamodbav:"country_code"`
	Mobile      string    `json:"mobile" dynamodbav:"mobile"`
	Code        string    `json:"-" dynamodbav:"code"`
	Attempts    int       `json:"attempts" dynamodbav:"attempts"`
	Verified    bool      `json:"verified" dynamodbav:"verified"`
	CreatedAt   time.Time `json:"createdAt" dynamodbav:"created_at"`
	ExpiresAt   time.Time `json:"expiresAt" dynamodbav:"expires_at"`
}

func (a *OtpAttempt) GetPK() string {
	return OtpPK(a.CountryCode, a.Mobile)
}

func (a *OtpAttempt) GetSK() string {
	return "ATTEMPT!" + a.ID
}

func (a *OtpAttempt) IsExpired(now time.Time) bool {
	return now.After(a.ExpiresAt)
}

func OtpPK(countryCode, mobile string) string {
	return "OTP!" + countryCode + mobile
}
