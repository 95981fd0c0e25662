package main

import (
	"context"
	"fmt"
	"time"

	"github.com/examind/proctor/internal/config"
	"github.com/examind/proctor/internal/database"
	"github.com/examind/proctor/internal/logger"
	"github.com/examind/proctor/internal/model"
	"github.com/examind/proctor/internal/repository"
	"github.com/examind/proctor/internal/service"
)

// Seeds a handful of demo students and one active test so the client
// can be exercised against a fresh database.
func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	studentRepo := repository.NewStudentRepository(pool)
	testRepo := repository.NewTestRepository(pool)
	studentService := service.NewStudentService(studentRepo)

	fmt.Println("=== Seeding Demo Data ===")

	students := []model.Student{
		{Name: "Asha Verma", Email: "asha@example.com", RollNo: "CS-101", College: "Northfield Institute"},
		{Name: "Rohan Mehta", Email: "rohan@example.com", RollNo: "CS-102", College: "Northfield Institute"},
		{Name: "Priya Nair", Email: "priya@example.com", RollNo: "EC-201", College: "Lakeside College"},
	}

	created := 0
	for i := range students {
		students[i].PasswordHash = "changeme123"
		if err := studentService.Create(ctx, &students[i]); err != nil {
			fmt.Printf("Skipping %s: %v\n", students[i].Email, err)
			continue
		}
		created++
	}
	fmt.Printf("Created %d students\n", created)

	test := &model.Test{
		Title:           "Computer Networks Basics",
		Category:        "Networking",
		Instructions:    "Answer all questions. Leaving fullscreen or switching windows counts as a violation.",
		DurationMinutes: 30,
		PassingScore:    60,
		IsActive:        true,
		Questions: []model.Question{
			{
				ID:             "q-osi",
				Prompt:         "Which OSI layer handles routing?",
				Options:        []string{"Data link", "Network", "Transport", "Session"},
				Points:         2,
				Arity:          model.AritySingle,
				CorrectOptions: []string{"Network"},
			},
			{
				ID:             "q-tcp",
				Prompt:         "Which of these are transport-layer protocols?",
				Options:        []string{"TCP", "UDP", "IP", "ARP"},
				Points:         3,
				Arity:          model.ArityMulti,
				CorrectOptions: []string{"TCP", "UDP"},
			},
			{
				ID:             "q-port",
				Prompt:         "What is the default HTTPS port?",
				Options:        []string{"80", "8080", "443", "22"},
				Points:         1,
				Arity:          model.AritySingle,
				CorrectOptions: []string{"443"},
			},
		},
	}

	if err := testRepo.Create(ctx, test); err != nil {
		log.Fatal().Err(err).Msg("Failed to create demo test")
	}

	fmt.Printf("Created test %s (%s)\n", test.Title, test.ID)
	fmt.Println("Seed completed")
}
