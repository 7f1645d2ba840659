package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/kriscao123/freshfood-backend/models"
	"github.com/kriscao123/freshfood-backend/repository"
	"github.com/kriscao123/freshfood-backend/sender"
)

var (
	ErrInvalidIdentifier = errors.New("identifier must be an email address or phone number")
	ErrAccountExists     = errors.New("account already exists")
	ErrAccountNotFound   = errors.New("account does not exist")
	ErrInvalidOTP        = errors.New("verification code is wrong")
	ErrOTPExpired        = errors.New("verification code has expired")
	ErrInvalidLogin      = errors.New("wrong login credentials")
)

const otpMaxAttempts = 5

var (
	emailRe = regexp.MustCompile(`^\S+@\S+\.\S+$`)
	phoneRe = regexp.MustCompile(`^[+\d][\d\s\-().]{6,}$`)
)

// AuthService implements OTP-based signup/login: a 6-digit code delivered
// over email or SMS, verified once, exchanged for a signed token.
type AuthService struct {
	otps   repository.OTPRepository
	users  repository.UserRepository
	tokens *TokenService
	emails sender.EmailSender
	sms    sender.SMSSender

	otpExpiry   time.Duration
	countryCode string
}

func NewAuthService(
	otps repository.OTPRepository,
	users repository.UserRepository,
	tokens *TokenService,
	emails sender.EmailSender,
	sms sender.SMSSender,
	otpExpiry time.Duration,
) *AuthService {
	return &AuthService{
		otps:        otps,
		users:       users,
		tokens:      tokens,
		emails:      emails,
		sms:         sms,
		otpExpiry:   otpExpiry,
		countryCode: "+84",
	}
}

// GenerateRandomCode returns a numeric code of the given length from
// crypto/rand.
func GenerateRandomCode(length int) string {
	code := ""
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			code += "0"
			continue
		}
		code += n.String()
	}
	return code
}

// RequestOTP validates the identifier, checks account existence against the
// purpose (register wants none, login wants one) and delivers a fresh code.
// OTP delivery is the deliverable here, so a failed send is an error.
func (s *AuthService) RequestOTP(ctx context.Context, identifier, purpose string) (string, error) {
	email, phone, channel, err := s.classifyIdentifier(identifier)
	if err != nil {
		return "", err
	}

	user, err := s.findUser(ctx, email, phone)
	if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		return "", err
	}
	exists := err == nil && user != nil

	if purpose == "register" && exists {
		return "", ErrAccountExists
	}
	if purpose == "login" && !exists {
		return "", ErrAccountNotFound
	}

	code := GenerateRandomCode(6)
	otp := &models.AuthOTP{
		Email:       email,
		PhoneNumber: phone,
		Channel:     channel,
		Code:        code,
		ExpiresAt:   time.Now().Add(s.otpExpiry),
	}
	if err := s.otps.Insert(ctx, otp); err != nil {
		return "", err
	}

	if channel == models.OTPChannelEmail {
		body := fmt.Sprintf("<p>Mã OTP của bạn: <b>%s</b> (hết hạn sau 5 phút)</p>", code)
		if _, err := s.emails.SendEmail(ctx, email, "Mã xác thực OTP - FreshFood", body); err != nil {
			return "", fmt.Errorf("failed to deliver otp email: %w", err)
		}
	} else {
		msg := fmt.Sprintf("FreshFood OTP: %s (expires in 5 minutes)", code)
		if _, err := s.sms.SendSMS(ctx, phone, msg); err != nil {
			return "", fmt.Errorf("failed to deliver otp sms: %w", err)
		}
	}

	return channel, nil
}

// VerifyOTP checks the code against the latest active record for the
// identifier and, on success, marks it used and issues the short-lived
// verification token.
func (s *AuthService) VerifyOTP(ctx context.Context, identifier, code string) (string, error) {
	email, phone, _, err := s.classifyIdentifier(identifier)
	if err != nil {
		return "", err
	}

	otp, err := s.otps.FindLatestActive(ctx, email, phone)
	if err != nil {
		if errors.Is(err, repository.ErrOTPNotFound) {
			return "", ErrInvalidOTP
		}
		return "", err
	}

	if time.Now().After(otp.ExpiresAt) {
		return "", ErrOTPExpired
	}
	if otp.Attempts >= otpMaxAttempts {
		return "", ErrInvalidOTP
	}

	if otp.Code != code {
		if err := s.otps.IncrementAttempts(ctx, otp.ID); err != nil {
			zap.L().Warn("Failed to count otp attempt", zap.Error(err))
		}
		return "", ErrInvalidOTP
	}

	if err := s.otps.MarkUsed(ctx, otp.ID); err != nil {
		return "", err
	}

	return s.tokens.GenerateOTPToken(email, phone)
}

// Register creates the user bound to a verified OTP token.
func (s *AuthService) Register(ctx context.Context, otpToken, fullName, password string) (*models.User, error) {
	claims, err := s.tokens.ParseToken(otpToken)
	if err != nil {
		return nil, err
	}
	email, _ := claims["email"].(string)
	phone, _ := claims["phone_number"].(string)
	if email == "" && phone == "" {
		return nil, ErrInvalidToken
	}

	if _, err := s.findUser(ctx, email, phone); err == nil {
		return nil, ErrAccountExists
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	username := email
	if username == "" {
		username = phone
	}

	user := &models.User{
		Username:     username,
		FullName:     fullName,
		Email:        email,
		PhoneNumber:  phone,
		PasswordHash: string(hash),
		Role:         "customer",
	}
	if err := s.users.Insert(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login checks the password and issues the session token.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (string, *models.User, error) {
	email, phone, _, err := s.classifyIdentifier(identifier)
	if err != nil {
		return "", nil, err
	}

	user, err := s.findUser(ctx, email, phone)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", nil, ErrInvalidLogin
		}
		return "", nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", nil, ErrInvalidLogin
	}

	token, err := s.tokens.GenerateSessionToken(user.ID.Hex(), user.Role)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

func (s *AuthService) classifyIdentifier(identifier string) (email, phone, channel string, err error) {
	identifier = strings.TrimSpace(identifier)
	switch {
	case emailRe.MatchString(identifier):
		return strings.ToLower(identifier), "", models.OTPChannelEmail, nil
	case phoneRe.MatchString(identifier):
		return "", s.normalizePhone(identifier), models.OTPChannelSMS, nil
	default:
		return "", "", "", ErrInvalidIdentifier
	}
}

// normalizePhone strips formatting and rewrites a local 0-prefixed number
// to its international form.
func (s *AuthService) normalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r == '+' || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	p := b.String()
	if strings.HasPrefix(p, "0") {
		return s.countryCode + p[1:]
	}
	return p
}

func (s *AuthService) findUser(ctx context.Context, email, phone string) (*models.User, error) {
	if email != "" {
		return s.users.FindByEmail(ctx, email)
	}
	return s.users.FindByPhone(ctx, phone)
}
