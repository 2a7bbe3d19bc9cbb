package service_test

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/aura-securities/website-api/internal/config"
	"github.com/aura-securities/website-api/internal/domain"
	"github.com/aura-securities/website-api/internal/models"
	"github.com/aura-securities/website-api/internal/repository"
	"github.com/aura-securities/website-api/internal/service"
)

type fakeOTPRepo struct {
	mu        sync.Mutex
	attempts  []models.OtpAttempt
	mutations int

	createErr error
}

var _ repository.OTPRepository = (*fakeOTPRepo)(nil)

func (f *fakeOTPRepo) Create(ctx context.Context, attempt *models.OtpAttempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.mutations++
	f.attempts = append(f.attempts, *attempt)
	return nil
}

func (f *fakeOTPRepo) LatestUnverified(ctx context.Context, countryCode, mobile string) (*models.OtpAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *models.OtpAttempt
	for i := range f.attempts {
		a := f.attempts[i]
		if a.CountryCode != countryCode || a.Mobile != mobile || a.Verified {
			continue
		}
		if latest == nil || a.CreatedAt.After(latest.CreatedAt) {
			copied := a
			latest = &copied
		}
	}
	return latest, nil
}

func (f *fakeOTPRepo) DeleteByPhone(ctx context.Context, countryCode, mobile string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mutations++
	kept := f.attempts[:0]
	for _, a := range f.attempts {
		if a.CountryCode != countryCode || a.Mobile != mobile {
			kept = append(kept, a)
		}
	}
	f.attempts = kept
	return nil
}

func (f *fakeOTPRepo) Delete(ctx context.Context, attempt *models.OtpAttempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mutations++
	kept := f.attempts[:0]
	for _, a := range f.attempts {
		if a.ID != attempt.ID {
			kept = append(kept, a)
		}
	}
	f.attempts = kept
	return nil
}

func (f *fakeOTPRepo) IncrementAttempts(ctx context.Context, attempt *models.OtpAttempt) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mutations++
	for i := range f.attempts {
		if f.attempts[i].ID == attempt.ID {
			f.attempts[i].Attempts++
			return f.attempts[i].Attempts, nil
		}
	}
	return 0, errors.New("attempt not found")
}

func (f *fakeOTPRepo) MarkVerified(ctx context.Context, attempt *models.OtpAttempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mutations++
	for i := range f.attempts {
		if f.attempts[i].ID == attempt.ID {
			f.attempts[i].Verified = true
			return nil
		}
	}
	return errors.New("attempt not found")
}

func (f *fakeOTPRepo) PurgeExpired(ctx context.Context, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.attempts[:0]
	for _, a := range f.attempts {
		if a.Verified || !now.After(a.ExpiresAt) {
			kept = append(kept, a)
		} else {
			f.mutations++
		}
	}
	f.attempts = kept
	return nil
}

func (f *fakeOTPRepo) activeCode(countryCode, mobile string) (string, bool) {
	a, _ := f.LatestUnverified(context.Background(), countryCode, mobile)
	if a == nil {
		return "", false
	}
	return a.Code, true
}

func (f *fakeOTPRepo) backdate(countryCode, mobile string, expiresAt time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.attempts {
		if f.attempts[i].CountryCode == countryCode && f.attempts[i].Mobile == mobile {
			f.attempts[i].ExpiresAt = expiresAt
		}
	}
}

func (f *fakeOTPRepo) mutationCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mutations
}

type fakeContactRepo struct {
	mu        sync.Mutex
	contacts  []models.VerifiedContact
	mutations int
}

var _ repository.ContactRepository = (*fakeContactRepo)(nil)

func (f *fakeContactRepo) Upsert(ctx context.Context, countryCode, mobile string, verifiedAt time.Time) (*models.VerifiedContact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mutations++
	for i := range f.contacts {
		if f.contacts[i].CountryCode == countryCode && f.contacts[i].Mobile == mobile {
			f.contacts[i].VerifiedAt = verifiedAt
			copied := f.contacts[i]
			return &copied, nil
		}
	}
	contact := models.VerifiedContact{
		ID:          uuid.NewString(),
		CountryCode: countryCode,
		Mobile:      mobile,
		VerifiedAt:  verifiedAt,
	}
	f.contacts = append(f.contacts, contact)
	return &contact, nil
}

func (f *fakeContactRepo) List(ctx context.Context) ([]models.VerifiedContact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.VerifiedContact, len(f.contacts))
	copy(out, f.contacts)
	return out, nil
}

type fakeSender struct {
	mu    sync.Mutex
	sent  []string
	codes []string
	err   error
}

func (f *fakeSender) SendCode(ctx context.Context, phone, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, phone)
	f.codes = append(f.codes, code)
	return nil
}

func newTestService(otpRepo *fakeOTPRepo, contactRepo *fakeContactRepo, sender *fakeSender) *service.OTPService {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	cfg := &config.OTPConfig{Expiry: 5 * time.Minute, MaxAttempts: 3}
	return service.NewOTPService(otpRepo, contactRepo, sender, nil, cfg, logger)
}

func TestRequestOTP_PersistsAndSends(t *testing.T) {
	t.Parallel()

	otpRepo := &fakeOTPRepo{}
	sender := &fakeSender{}
	svc := newTestService(otpRepo, &fakeContactRepo{}, sender)

	delivered, err := svc.RequestOTP(context.Background(), "+91", "9876543210")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !delivered {
		t.Fatal("expected delivered=true")
	}

	code, ok := otpRepo.activeCode("+91", "9876543210")
	if !ok {
		t.Fatal("expected a stored OTP attempt")
	}
	if !regexp.MustCompile(`^[1-9]\d{3}$`).MatchString(code) {
		t.Fatalf("expected 4-digit code without leading zero, got %q", code)
	}

	if len(sender.sent) != 1 || sender.sent[0] != "+919876543210" {
		t.Fatalf("expected SMS to +919876543210, got %+v", sender.sent)
	}
	if sender.codes[0] != code {
		t.Fatalf("sent code %q does not match stored code %q", sender.codes[0], code)
	}
}

func TestRequestOTP_RejectsMalformedMobileWithoutStorageAccess(t *testing.T) {
	t.Parallel()

	for _, mobile := range []string{"12345", "98765432101", "98765abc10", ""} {
		otpRepo := &fakeOTPRepo{}
		svc := newTestService(otpRepo, &fakeContactRepo{}, &fakeSender{})

		_, err := svc.RequestOTP(context.Background(), "+91", mobile)
		if !errors.Is(err, domain.ErrInvalidMobile) {
			t.Fatalf("mobile %q: expected ErrInvalidMobile, got %v", mobile, err)
		}
		if otpRepo.mutationCount() != 0 {
			t.Fatalf("mobile %q: expected no store mutations, got %d", mobile, otpRepo.mutationCount())
		}
	}
}

func TestRequestOTP_SwallowsSMSFailure(t *testing.T) {
	t.Parallel()

	otpRepo := &fakeOTPRepo{}
	sender := &fakeSender{err: errors.New("twilio down")}
	svc := newTestService(otpRepo, &fakeContactRepo{}, sender)

	delivered, err := svc.RequestOTP(context.Background(), "+91", "9876543210")
	if err != nil {
		t.Fatalf("SMS failure must not surface as error, got %v", err)
	}
	if delivered {
		t.Fatal("expected delivered=false")
	}

	// The challenge must stay checkable.
	code, ok := otpRepo.activeCode("+91", "9876543210")
	if !ok {
		t.Fatal("expected a stored OTP attempt despite SMS failure")
	}
	contactRepo := &fakeContactRepo{}
	svc2 := newTestService(otpRepo, contactRepo, sender)
	if _, err := svc2.VerifyOTP(context.Background(), "+91", "9876543210", code); err != nil {
		t.Fatalf("expected code to verify after SMS failure, got %v", err)
	}
}

func TestRequestOTP_SurfacesStorageFailure(t *testing.T) {
	t.Parallel()

	otpRepo := &fakeOTPRepo{createErr: errors.New("dynamo down")}
	svc := newTestService(otpRepo, &fakeContactRepo{}, &fakeSender{})

	if _, err := svc.RequestOTP(context.Background(), "+91", "9876543210"); err == nil {
		t.Fatal("expected persistence failure to surface")
	}
}

func TestRequestOTP_InvalidatesPriorChallenge(t *testing.T) {
	t.Parallel()

	otpRepo := &fakeOTPRepo{}
	contactRepo := &fakeContactRepo{}
	svc := newTestService(otpRepo, contactRepo, &fakeSender{})

	if _, err := svc.RequestOTP(context.Background(), "+91", "9876543210"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	firstCode, _ := otpRepo.activeCode("+91", "9876543210")

	if _, err := svc.RequestOTP(context.Background(), "+91", "9876543210"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	secondCode, _ := otpRepo.activeCode("+91", "9876543210")

	if _, err := svc.VerifyOTP(context.Background(), "+91", "9876543210", firstCode); firstCode != secondCode && !errorIsNotFoundOrMismatch(err) {
		t.Fatalf("expected first code to be invalidated, got %v", err)
	}

	if _, err := svc.VerifyOTP(context.Background(), "+91", "9876543210", secondCode); err != nil {
		t.Fatalf("expected second code to verify, got %v", err)
	}
}

// The two codes are random; when they happen to collide the first code
// verifies through the second record, which is still correct behavior.
func errorIsNotFoundOrMismatch(err error) bool {
	var wrongCode *domain.WrongCodeError
	return errors.Is(err, domain.ErrOTPNotFound) || errors.As(err, &wrongCode)
}

func TestVerifyOTP_RejectsMalformedCodeWithoutStorageAccess(t *testing.T) {
	t.Parallel()

	for _, code := range []string{"12a4", "123", "12345", ""} {
		otpRepo := &fakeOTPRepo{}
		svc := newTestService(otpRepo, &fakeContactRepo{}, &fakeSender{})

		_, err := svc.VerifyOTP(context.Background(), "+91", "9876543210", code)
		if !errors.Is(err, domain.ErrInvalidOTP) {
			t.Fatalf("code %q: expected ErrInvalidOTP, got %v", code, err)
		}
		if otpRepo.mutationCount() != 0 {
			t.Fatalf("code %q: expected no store mutations, got %d", code, otpRepo.mutationCount())
		}
	}
}

func TestVerifyOTP_NotFoundWhenNoChallenge(t *testing.T) {
	t.Parallel()

	svc := newTestService(&fakeOTPRepo{}, &fakeContactRepo{}, &fakeSender{})

	_, err := svc.VerifyOTP(context.Background(), "+91", "9876543210", "1234")
	if !errors.Is(err, domain.ErrOTPNotFound) {
		t.Fatalf("expected ErrOTPNotFound, got %v", err)
	}
}

func TestVerifyOTP_SuccessPromotesContactAndKeepsAuditRecord(t *testing.T) {
	t.Parallel()

	otpRepo := &fakeOTPRepo{}
	contactRepo := &fakeContactRepo{}
	svc := newTestService(otpRepo, contactRepo, &fakeSender{})

	if _, err := svc.RequestOTP(context.Background(), "+91", "9876543210"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	code, _ := otpRepo.activeCode("+91", "9876543210")

	contactID, err := svc.VerifyOTP(context.Background(), "+91", "9876543210", code)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if contactID == "" {
		t.Fatal("expected a contact ID")
	}

	if len(contactRepo.contacts) != 1 {
		t.Fatalf("expected exactly one verified contact, got %d", len(contactRepo.contacts))
	}
	if contactRepo.contacts[0].ID != contactID {
		t.Fatal("returned contact ID does not match stored contact")
	}

	// Verified attempt is retained as audit trail, no longer active.
	otpRepo.mu.Lock()
	defer otpRepo.mu.Unlock()
	if len(otpRepo.attempts) != 1 || !otpRepo.attempts[0].Verified {
		t.Fatalf("expected one verified audit record, got %+v", otpRepo.attempts)
	}
}

func TestVerifyOTP_WrongCodeCountsDown(t *testing.T) {
	t.Parallel()

	otpRepo := &fakeOTPRepo{}
	svc := newTestService(otpRepo, &fakeContactRepo{}, &fakeSender{})

	if _, err := svc.RequestOTP(context.Background(), "+91", "9876543210"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	code, _ := otpRepo.activeCode("+91", "9876543210")

	wrong := "1234"
	if wrong == code {
		wrong = "4321"
	}

	for i, wantRemaining := range []int{2, 1, 0} {
		_, err := svc.VerifyOTP(context.Background(), "+91", "9876543210", wrong)
		var wrongCode *domain.WrongCodeError
		if !errors.As(err, &wrongCode) {
			t.Fatalf("attempt %d: expected WrongCodeError, got %v", i+1, err)
		}
		if wrongCode.Remaining != wantRemaining {
			t.Fatalf("attempt %d: expected %d remaining, got %d", i+1, wantRemaining, wrongCode.Remaining)
		}
	}

	// Limit reached: even the correct code is rejected and the record deleted.
	_, err := svc.VerifyOTP(context.Background(), "+91", "9876543210", code)
	if !errors.Is(err, domain.ErrTooManyAttempts) {
		t.Fatalf("expected ErrTooManyAttempts, got %v", err)
	}

	_, err = svc.VerifyOTP(context.Background(), "+91", "9876543210", code)
	if !errors.Is(err, domain.ErrOTPNotFound) {
		t.Fatalf("expected ErrOTPNotFound after deletion, got %v", err)
	}
}

func TestVerifyOTP_ExpiredChallengeIsDeleted(t *testing.T) {
	t.Parallel()

	otpRepo := &fakeOTPRepo{}
	svc := newTestService(otpRepo, &fakeContactRepo{}, &fakeSender{})

	if _, err := svc.RequestOTP(context.Background(), "+91", "9876543210"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	code, _ := otpRepo.activeCode("+91", "9876543210")
	otpRepo.backdate("+91", "9876543210", time.Now().UTC().Add(-time.Minute))

	_, err := svc.VerifyOTP(context.Background(), "+91", "9876543210", code)
	if !errors.Is(err, domain.ErrOTPExpired) {
		t.Fatalf("expected ErrOTPExpired, got %v", err)
	}

	// Record was removed, so a repeat call reports not-found, not expired.
	_, err = svc.VerifyOTP(context.Background(), "+91", "9876543210", code)
	if !errors.Is(err, domain.ErrOTPNotFound) {
		t.Fatalf("expected ErrOTPNotFound, got %v", err)
	}
}

func TestVerifyOTP_ReverificationUpdatesExistingContact(t *testing.T) {
	t.Parallel()

	otpRepo := &fakeOTPRepo{}
	contactRepo := &fakeContactRepo{}
	svc := newTestService(otpRepo, contactRepo, &fakeSender{})

	var firstID string
	var firstVerifiedAt time.Time

	for cycle := 0; cycle < 3; cycle++ {
		if cycle > 0 {
			time.Sleep(10 * time.Millisecond) // make verifiedAt bumps observable
		}
		if _, err := svc.RequestOTP(context.Background(), "+91", "9876543210"); err != nil {
			t.Fatalf("cycle %d: unexpected error: %v", cycle, err)
		}
		code, _ := otpRepo.activeCode("+91", "9876543210")

		contactID, err := svc.VerifyOTP(context.Background(), "+91", "9876543210", code)
		if err != nil {
			t.Fatalf("cycle %d: unexpected error: %v", cycle, err)
		}

		if cycle == 0 {
			firstID = contactID
			firstVerifiedAt = contactRepo.contacts[0].VerifiedAt
		} else if contactID != firstID {
			t.Fatalf("cycle %d: expected stable contact ID %s, got %s", cycle, firstID, contactID)
		}
	}

	if len(contactRepo.contacts) != 1 {
		t.Fatalf("expected exactly one contact row after repeat verification, got %d", len(contactRepo.contacts))
	}
	if !contactRepo.contacts[0].VerifiedAt.After(firstVerifiedAt) {
		t.Fatal("expected verifiedAt to be bumped on re-verification")
	}
}

func TestRequestOTP_PurgesExpiredChallengesGlobally(t *testing.T) {
	t.Parallel()

	otpRepo := &fakeOTPRepo{}
	svc := newTestService(otpRepo, &fakeContactRepo{}, &fakeSender{})

	if _, err := svc.RequestOTP(context.Background(), "+91", "1111111111"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	otpRepo.backdate("+91", "1111111111", time.Now().UTC().Add(-time.Minute))

	// Issuing for a different number garbage-collects the expired record.
	if _, err := svc.RequestOTP(context.Background(), "+91", "2222222222"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if a, _ := otpRepo.LatestUnverified(context.Background(), "+91", "1111111111"); a != nil {
		t.Fatalf("expected expired challenge to be purged, got %+v", a)
	}
}
