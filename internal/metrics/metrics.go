package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OTPRequestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "otp_requests_total",
		Help: "Total number of OTP challenges issued.",
	})
	OTPVerificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "otp_verifications_total",
		Help: "Total number of OTP verification attempts by outcome.",
	}, []string{"status"}) // status: "success", "not_found", "expired", "exhausted", "mismatch", "invalid"
	SMSSendFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sms_send_failures_total",
		Help: "Total number of failed SMS dispatch attempts.",
	})
	ContactSubmissionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "contact_submissions_total",
		Help: "Total number of contact-form submissions stored.",
	})
)
