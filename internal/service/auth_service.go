package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/apexamhq/apexam-backend/internal/config"
	"github.com/apexamhq/apexam-backend/internal/model"
	"github.com/apexamhq/apexam-backend/internal/repository"
)

// Common auth errors.
var ErrInvalidCredentials = errors.New("invalid credentials")

// TokenType distinguishes participant vs teacher tokens.
type TokenType string

const (
	TokenTypeParticipant TokenType = "participant"
	TokenTypeTeacher     TokenType = "teacher"
)

// Claims extends JWT standard claims with app-specific fields.
type Claims struct {
	jwt.RegisteredClaims
	TokenType     TokenType `json:"token_type"`
	ParticipantID string    `json:"participant_id,omitempty"`
	TeacherID     int       `json:"teacher_id,omitempty"`
	Name          string    `json:"name,omitempty"`
}

// AuthService handles authentication and JWT issuance.
type AuthService struct {
	cfg             *config.Config
	participantRepo *repository.ParticipantRepository
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg *config.Config, participantRepo *repository.ParticipantRepository) *AuthService {
	return &AuthService{cfg: cfg, participantRepo: participantRepo}
}

// HashPasscode hashes a teacher passcode with the configured bcrypt
// cost.
func (s *AuthService) HashPasscode(passcode string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(passcode), s.cfg.BcryptCost)
	return string(hash), err
}

// LoginParticipant signs in a student by email. Roster management lives
// outside this service, so email alone identifies the participant.
func (s *AuthService) LoginParticipant(ctx context.Context, email string) (*model.Participant, string, error) {
	p, err := s.participantRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("get participant: %w", err)
	}

	token, err := s.generateToken(Claims{
		RegisteredClaims: registeredClaims(p.ID.String(), s.cfg.JWTExpiry),
		TokenType:        TokenTypeParticipant,
		ParticipantID:    p.ID.String(),
		Name:             p.Name,
	})
	if err != nil {
		return nil, "", err
	}
	return p, token, nil
}

// LoginTeacher signs in a teacher with email and passcode.
func (s *AuthService) LoginTeacher(ctx context.Context, email, passcode string) (*model.Teacher, string, error) {
	t, err := s.participantRepo.GetTeacherByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("get teacher: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(t.PasscodeHash), []byte(passcode)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.generateToken(Claims{
		RegisteredClaims: registeredClaims(fmt.Sprintf("teacher:%d", t.ID), s.cfg.JWTExpiry),
		TokenType:        TokenTypeTeacher,
		TeacherID:        t.ID,
		Name:             t.Name,
	})
	if err != nil {
		return nil, "", err
	}
	return t, token, nil
}

// ValidateToken parses and validates a JWT, returning the claims.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}

	return claims, nil
}

func (s *AuthService) generateToken(claims Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func registeredClaims(subject string, expiry time.Duration) jwt.RegisteredClaims {
	now := time.Now()
	return jwt.RegisteredClaims{
		ID:        uuid.New().String(),
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
	}
}
