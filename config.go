package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Config holds server settings loaded from the environment
type Config struct {
	Addr      string
	DBPath    string
	JWTSecret string
	PublicURL string // base URL used in invite links / QR codes
}

// LoadConfig reads .env (if present) and the environment
func LoadConfig() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found. Using environment variables.")
	}

	cfg := Config{
		Addr:      getenv("ADDR", ":8080"),
		DBPath:    getenv("DB_PATH", "pong.db"),
		JWTSecret: os.Getenv("JWT_SECRET"),
		PublicURL: getenv("PUBLIC_URL", "http://localhost:8080"),
	}
	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
