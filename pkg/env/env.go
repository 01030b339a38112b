package env

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

// LoadEnv pulls a .env file into the process environment when one exists;
// otherwise the system environment is used as-is.
func LoadEnv() {
	err := godotenv.Load()

	if err != nil {
		log.Println("⚠️  No .env file found, using system envs")
	}
}

// GetEnv returns the value of key, or fallback when key is unset. An empty
// value counts as set.
func GetEnv(key string, fallback string) string {
	if value, exist := os.LookupEnv(key); exist {
		return value
	}
	return fallback
}
