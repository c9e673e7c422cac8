package main

import (
	"fmt"
	"os"

	"golang.org/x/crypto/bcrypt"

	"github.com/linesmerrill/traffic-portal-api/models"
)

// Quick utility to generate a bcrypt hash for a portal account
// Usage: go run scripts/fix_user_password.go <email> <password> [role]
func main() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: go run scripts/fix_user_password.go <email> <password> [role]")
		fmt.Println("Example: go run scripts/fix_user_password.go clerk@municipality.gov.ph s3cret employee")
		os.Exit(1)
	}

	email, password := os.Args[1], os.Args[2]
	role := models.RoleResident
	if len(os.Args) > 3 {
		r, ok := models.ParseRole(os.Args[3])
		if !ok {
			fmt.Printf("Unknown role %q, expected resident, tanod, employee or admin\n", os.Args[3])
			os.Exit(1)
		}
		role = r
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		fmt.Printf("Error generating hash: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Bcrypt Hash: %s\n", string(hashedPassword))
	fmt.Printf("\nTo update in MongoDB, run:\n")
	fmt.Printf("db.users.updateOne(\n")
	fmt.Printf("  {\"email\": %q},\n", email)
	fmt.Printf("  {$set: {\"passwordHash\": %q, \"role\": %q, \"active\": true}},\n", string(hashedPassword), role)
	fmt.Printf("  {upsert: true}\n")
	fmt.Printf(")\n")
	fmt.Printf("\nTo update in MySQL, run:\n")
	fmt.Printf("UPDATE users SET password_hash = '%s', role = '%s', active = 1 WHERE email = '%s';\n",
		string(hashedPassword), role, email)
}
