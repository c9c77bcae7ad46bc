package model

import (
	"time"

	"github.com/google/uuid"
)

// Participant is a student taking exams. Identity is deliberately thin;
// roster management lives outside this service.
type Participant struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Teacher is a staff account with access to the live monitor and
// grading review.
type Teacher struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasscodeHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// ParticipantLoginRequest is the payload for a student signing in.
type ParticipantLoginRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// TeacherLoginRequest is the payload for a teacher signing in.
type TeacherLoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Passcode string `json:"passcode" binding:"required,min=6"`
}
