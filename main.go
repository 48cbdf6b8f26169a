package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"discrescue/pkg/catalog"
	"discrescue/pkg/sms"
	"discrescue/pkg/vision"

	"github.com/gin-gonic/gin"
)

var jwtSecret []byte // loaded from env JWT_SECRET (fallback to dev default)

func main() {
	// Auto-load ./.env if present (no external dependency) before reading vars
	loadDotEnv()
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "dev-insecure-secret-change" // development fallback
	}
	jwtSecret = []byte(secret)

	// Support a lightweight migrate command: `./discrescue migrate`
	// It runs AutoMigrate and seeding then exits. Useful for CI or manual DB setup.
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		initDB()
		fmt.Println("migration and seeding completed")
		return
	}

	initDB()

	r := gin.Default()

	setupRoutes(r, newApp())

	port := os.Getenv("PORT")
	if port == "" {
		port = "8081"
	}
	r.Run(":" + port)
}

// newApp wires the production collaborators: gorm-backed stores, the
// configured vision engine, the catalog client and the Twilio surfaces.
func newApp() *app {
	authToken := os.Getenv("TWILIO_AUTH_TOKEN")
	return &app{
		subs:     &gormSubscriberStore{db: db},
		discs:    &gormDiscStore{db: db},
		pipeline: vision.NewPipeline(visionEngine(), catalog.New(getenv("CATALOG_BASE_URL", "https://discit.api.discrescuenetwork.com"))),
		sender: sms.NewTwilioSender(
			os.Getenv("TWILIO_ACCOUNT_SID"),
			authToken,
			os.Getenv("TWILIO_FROM_NUMBER"),
		),
		validator:      sms.NewValidator(authToken),
		callbackURL:    os.Getenv("CALLBACK_URL"),
		contactCardURL: os.Getenv("CONTACT_CARD_URL"),
	}
}

// visionEngine picks the OCR backend: hosted Google Vision when a key is
// configured (or VISION_PROVIDER=google), local Tesseract otherwise.
func visionEngine() vision.Engine {
	provider := strings.ToLower(os.Getenv("VISION_PROVIDER"))
	key := os.Getenv("GOOGLE_VISION_API_KEY")
	switch {
	case provider == "tesseract":
		return vision.NewTesseractEngine()
	case key != "":
		return vision.NewGoogleEngine(key, "")
	default:
		log.Printf("GOOGLE_VISION_API_KEY not set; using local tesseract engine")
		return vision.NewTesseractEngine()
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// loadDotEnv loads key=value pairs from a local .env file into the environment
// without overwriting variables that are already set. Lines starting with # are ignored.
func loadDotEnv() {
	path := ".env"
	if _, err := os.Stat(path); err != nil {
		return // no .env file
	}
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		// split on first '='
		if eq := strings.IndexByte(line, '='); eq > 0 {
			key := strings.TrimSpace(line[:eq])
			val := strings.TrimSpace(line[eq+1:])
			if _, exists := os.LookupEnv(key); !exists {
				_ = os.Setenv(key, val)
			}
		}
	}
}
