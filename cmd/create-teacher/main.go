package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"

	"github.com/apexamhq/apexam-backend/internal/config"
	"github.com/apexamhq/apexam-backend/internal/database"
	"github.com/apexamhq/apexam-backend/internal/logger"
	"github.com/apexamhq/apexam-backend/internal/model"
	"github.com/apexamhq/apexam-backend/internal/repository"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	participantRepo := repository.NewParticipantRepository(pool)

	// ─── CLI Input ─────────────────────────────────────────────────────
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("=== Create New Teacher ===")

	// Name
	fmt.Print("Enter Name: ")
	name, _ := reader.ReadString('\n')
	name = strings.TrimSpace(name)
	if name == "" {
		fmt.Println("Error: Name is required")
		return
	}

	// Email
	fmt.Print("Enter Email: ")
	email, _ := reader.ReadString('\n')
	email = strings.TrimSpace(email)
	if email == "" {
		fmt.Println("Error: Email is required")
		return
	}

	// Passcode
	fmt.Print("Enter Passcode: ")
	bytePasscode, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		fmt.Println("\nError reading passcode")
		return
	}
	passcode := string(bytePasscode)
	fmt.Println() // Newline after passcode input
	if len(passcode) < 6 {
		fmt.Println("Error: Passcode must be at least 6 characters")
		return
	}

	// ─── Logic ─────────────────────────────────────────────────────────
	hash, err := bcrypt.GenerateFromPassword([]byte(passcode), cfg.BcryptCost)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to hash passcode")
	}

	teacher := &model.Teacher{
		Name:         name,
		Email:        email,
		PasscodeHash: string(hash),
	}

	if err := participantRepo.CreateTeacher(ctx, teacher); err != nil {
		log.Fatal().Err(err).Msg("Failed to create teacher")
	}

	fmt.Printf("\nSuccess! Teacher '%s' (%s) created with ID: %d\n", teacher.Name, teacher.Email, teacher.ID)
}
