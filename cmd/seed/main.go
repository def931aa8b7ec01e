package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/sahilchouksey/coursehub-api/app"
	"github.com/sahilchouksey/coursehub-api/config"
	"github.com/sahilchouksey/coursehub-api/utils"
)

func main() {
	demo := flag.Bool("demo", false, "also create a demo instructor with sample courses")
	flag.Parse()

	// Load environment variables
	if err := config.LoadENV(); err != nil {
		log.Fatalf("Failed to load .env: %v", err)
	}
	env, err := config.Get()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if env.STORE_DRIVER != "postgres" {
		log.Println("Warning: STORE_DRIVER is not postgres, seeded data is lost on exit")
	}

	// Seeding never needs the scheduler
	env.CRON_ENABLED = false
	container, err := app.NewContainer(env, utils.NewLogger(env.GO_ENV, os.Stderr), app.Collaborators{})
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer container.Close()

	separator := strings.Repeat("=", 60)
	fmt.Println(separator)
	fmt.Println("CourseHub - Database Seeding")
	fmt.Println(separator)

	result, err := app.Seed(context.Background(), container, app.SeedOptions{
		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		Demo:          *demo,
	})
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	if result.Admin != "" {
		fmt.Printf("Admin user: %s\n", result.Admin)
	} else {
		fmt.Println("ADMIN_EMAIL not set, admin user creation skipped.")
	}
	for _, u := range result.Users {
		fmt.Printf("Created user: %s\n", u)
	}
	for _, c := range result.Courses {
		fmt.Printf("Created course: %s\n", c)
	}
	fmt.Println(separator)
}
