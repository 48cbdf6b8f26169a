package main

import (
	"log"
	"os"
	"strings"
	"time"

	"discrescue/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var db *gorm.DB

func initDB() {
	var err error
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN is not set. This project requires a Postgres DSN in DB_DSN.")
	}
	db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect postgres database:", err)
	}
	// Control schema migrations with env DB_AUTO_MIGRATE (default true). Any permission errors will be logged and ignored.
	shouldMigrate := true
	if v := os.Getenv("DB_AUTO_MIGRATE"); v != "" {
		lv := strings.ToLower(v)
		if lv == "false" || lv == "0" || lv == "no" {
			shouldMigrate = false
		}
	}
	// Roles migrate first so the users FK can be applied safely.
	if shouldMigrate {
		if err := db.AutoMigrate(&models.Role{}); err != nil {
			log.Printf("migration warning (roles): %v", err)
		}
	}
	// Migrate the rest individually so a failure on one doesn't block others.
	if shouldMigrate {
		if err := db.AutoMigrate(&models.User{}); err != nil {
			log.Printf("migration warning (users): %v", err)
		}
		if err := db.AutoMigrate(&models.Subscriber{}); err != nil {
			log.Printf("migration warning (subscribers): %v", err)
		}
		if err := db.AutoMigrate(&models.FoundDisc{}); err != nil {
			log.Printf("migration warning (found_discs): %v", err)
		}
	}
	seedDB()
}

func seedDB() {
	// Ensure master roles exist
	roles := []models.Role{{Name: "administrator", Description: "full access"}, {Name: "staff", Description: "counter staff"}}
	for _, r := range roles {
		var cnt int64
		db.Model(&models.Role{}).Where("name = ?", r.Name).Count(&cnt)
		if cnt == 0 {
			db.Create(&r)
		}
	}

	// Bootstrap administrator from env when configured and absent.
	username := os.Getenv("ADMIN_USERNAME")
	password := os.Getenv("ADMIN_PASSWORD")
	if username == "" || password == "" {
		return
	}
	var count int64
	db.Model(&models.User{}).Where("username = ?", username).Count(&count)
	if count > 0 {
		return
	}
	var role models.Role
	if err := db.Where("name = ?", "administrator").First(&role).Error; err != nil {
		log.Printf("failed to find administrator role: %v", err)
		return
	}
	rid := role.ID
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("failed to hash admin password: %v", err)
		return
	}
	admin := models.User{Username: username, HashedPassword: hashedPassword, RoleID: &rid}
	if err := db.Create(&admin).Error; err != nil {
		log.Printf("failed to seed admin user: %v", err)
		return
	}
	log.Printf("Seeded admin user: username=%s", username)
}

// SubscriberStore is the consent-state surface the webhook handler needs.
// Backed by gorm in production; handler tests substitute an in-memory fake.
type SubscriberStore interface {
	ByPhone(phone string) (*models.Subscriber, error)
	OptOut(phone string) error
	// OptIn reports changed=true when the number was not opted in before.
	OptIn(phone string) (sub *models.Subscriber, changed bool, err error)
	List(limit int) ([]models.Subscriber, error)
}

// DiscStore is the found-disc inventory surface.
type DiscStore interface {
	UnclaimedCount() (int64, error)
	Create(d *models.FoundDisc) error
	List(limit int) ([]models.FoundDisc, error)
	Claim(id uint) error
}

type gormSubscriberStore struct{ db *gorm.DB }

func (s *gormSubscriberStore) ByPhone(phone string) (*models.Subscriber, error) {
	var sub models.Subscriber
	if err := s.db.Where("phone = ?", phone).First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (s *gormSubscriberStore) OptOut(phone string) error {
	var sub models.Subscriber
	if err := s.db.Where(models.Subscriber{Phone: phone}).FirstOrCreate(&sub).Error; err != nil {
		return err
	}
	now := time.Now()
	sub.OptedIn = false
	sub.OptedOut = true
	sub.OptOutAt = &now
	return s.db.Save(&sub).Error
}

func (s *gormSubscriberStore) OptIn(phone string) (*models.Subscriber, bool, error) {
	var sub models.Subscriber
	if err := s.db.Where(models.Subscriber{Phone: phone}).FirstOrCreate(&sub).Error; err != nil {
		return nil, false, err
	}
	changed := !sub.OptedIn
	now := time.Now()
	sub.OptedIn = true
	sub.OptedOut = false
	sub.OptInAt = &now
	if err := s.db.Save(&sub).Error; err != nil {
		return nil, false, err
	}
	return &sub, changed, nil
}

func (s *gormSubscriberStore) List(limit int) ([]models.Subscriber, error) {
	var subs []models.Subscriber
	err := s.db.Order("id desc").Limit(limit).Find(&subs).Error
	return subs, err
}

type gormDiscStore struct{ db *gorm.DB }

func (s *gormDiscStore) UnclaimedCount() (int64, error) {
	var cnt int64
	err := s.db.Model(&models.FoundDisc{}).Where("claimed = ?", false).Count(&cnt).Error
	return cnt, err
}

func (s *gormDiscStore) Create(d *models.FoundDisc) error {
	return s.db.Create(d).Error
}

func (s *gormDiscStore) List(limit int) ([]models.FoundDisc, error) {
	var discs []models.FoundDisc
	err := s.db.Order("id desc").Limit(limit).Find(&discs).Error
	return discs, err
}

func (s *gormDiscStore) Claim(id uint) error {
	now := time.Now()
	res := s.db.Model(&models.FoundDisc{}).Where("id = ?", id).
		Updates(map[string]any{"claimed": true, "claimed_at": &now})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
