package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// hashpassword prints the bcrypt hash for admin.passwordHash in config.yaml.
// The password is read from the first line of stdin.
func main() {
	cost := flag.Int("cost", bcrypt.DefaultCost, "bcrypt cost factor")
	flag.Parse()

	fmt.Fprint(os.Stderr, "password: ")
	password, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && password == "" {
		log.Printf("failed to read password: %v", err)
		os.Exit(1)
	}
	password = strings.TrimRight(password, "\r\n")

	hash, err := hashPassword(password, *cost)
	if err != nil {
		log.Printf("failed to hash password: %v", err)
		os.Exit(1)
	}
	fmt.Println(hash)
}

func hashPassword(password string, cost int) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password must not be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt: %w", err)
	}
	return string(hash), nil
}
