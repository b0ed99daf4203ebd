package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/daryls-hrplus/intellihrm-scheduler/pkg/auth"
)

func main() {
	// Load .env from project root
	_ = godotenv.Load("../.env")

	if len(os.Args) < 2 {
		fmt.Println("Usage: keygen <companyID>")
		os.Exit(1)
	}

	companyID := os.Args[1]
	if os.Getenv("API_MASTER_SECRET") == "" {
		fmt.Println("Error: API_MASTER_SECRET not found in .env")
		os.Exit(1)
	}

	apiKey := auth.GenerateHMACKey(companyID)
	fmt.Printf("Generated Key for %s:\n%s\n", companyID, apiKey)
}
