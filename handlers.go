package main

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"discrescue/models"
	"discrescue/pkg/sms"
	"discrescue/pkg/vision"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"
)

// app bundles the injected collaborators so handlers never reach for
// package-level SDK clients and tests can swap in fakes.
type app struct {
	subs     SubscriberStore
	discs    DiscStore
	pipeline *vision.Pipeline

	sender    sms.Sender
	validator sms.WebhookValidator
	// exact URL Twilio signs requests against
	callbackURL    string
	contactCardURL string
}

// STOP-class and START-class keywords per the messaging provider's
// compliance list, compared lowercased and trimmed.
var (
	optOutKeywords = map[string]bool{
		"stop": true, "stopall": true, "unsubscribe": true,
		"cancel": true, "end": true, "quit": true,
	}
	optInKeywords = map[string]bool{
		"yes": true, "start": true, "unstop": true,
	}
)

func setupRoutes(r *gin.Engine, a *app) {
	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.POST("/sms", a.smsWebhookHandler)
	r.POST("/analyze", a.analyzeHandler)
	r.POST("/register", registerHandler)
	r.POST("/login", loginHandler)
	authGroup := r.Group("")
	authGroup.Use(jwtAuthMiddleware())
	authGroup.GET("/subscribers", a.listSubscribersHandler)
	authGroup.GET("/discs", a.listDiscsHandler)
	authGroup.POST("/discs", a.createDiscHandler)
	authGroup.POST("/discs/:id/claim", a.claimDiscHandler)
}

func jwtAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || len(authHeader) < 8 || authHeader[:7] != "Bearer " {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid Authorization header"})
			c.Abort()
			return
		}
		tokenString := authHeader[7:]
		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrInvalidKeyType
			}
			return jwtSecret, nil
		})
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid claims"})
			c.Abort()
			return
		}
		username, _ := claims["username"].(string)
		role, _ := claims["role"].(string)
		c.Set("username", username)
		if role != "" {
			c.Set("role", role)
		}
		c.Next()
	}
}

// smsWebhookHandler is the inbound Twilio webhook. The signature is checked
// before anything else; a bad signature is rejected with an empty body and
// no side effects.
func (a *app) smsWebhookHandler(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}
	params := map[string]string{}
	for k, v := range c.Request.PostForm {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}
	sig := c.GetHeader("X-Twilio-Signature")
	if !a.validator.Validate(a.callbackURL, params, sig) {
		log.Printf("sms webhook: rejected bad signature from %s", c.ClientIP())
		c.Status(http.StatusForbidden)
		return
	}

	from := params["From"]
	body := strings.ToLower(strings.TrimSpace(params["Body"]))

	switch {
	case optOutKeywords[body]:
		if err := a.subs.OptOut(from); err != nil {
			log.Printf("sms webhook: opt-out %s failed: %v", from, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
			return
		}
		// Twilio sends its own confirmation for STOP-class messages and
		// errors if we reply too, so answer with a status only.
		c.Status(http.StatusTeapot)

	case optInKeywords[body]:
		_, changed, err := a.subs.OptIn(from)
		if err != nil {
			log.Printf("sms webhook: opt-in %s failed: %v", from, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
			return
		}
		if changed {
			if err := a.sender.Send(from, "Thanks for joining Disc Rescue! Save our contact card so you know it's us.", a.contactCardURL); err != nil {
				log.Printf("sms webhook: contact card to %s failed: %v", from, err)
			}
		}
		a.replyTwiML(c, fmt.Sprintf("You're in! %s Text us anytime for an update.", a.unclaimedLine()))

	default:
		sub, err := a.subs.ByPhone(from)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("sms webhook: lookup %s failed: %v", from, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
			return
		}
		if sub != nil && sub.OptedIn {
			a.replyTwiML(c, a.unclaimedLine())
		} else {
			a.replyTwiML(c, "Reply YES to get updates about lost discs waiting at the lost-and-found.")
		}
	}
}

func (a *app) unclaimedLine() string {
	n, err := a.discs.UnclaimedCount()
	if err != nil {
		log.Printf("sms webhook: unclaimed count failed: %v", err)
		return "We couldn't check the shelf just now, try again in a bit."
	}
	if n == 1 {
		return "There is 1 unclaimed disc waiting at the lost-and-found."
	}
	return fmt.Sprintf("There are %d unclaimed discs waiting at the lost-and-found.", n)
}

func (a *app) replyTwiML(c *gin.Context, text string) {
	xmlBody, err := sms.Reply(text)
	if err != nil {
		log.Printf("sms webhook: twiml build failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		return
	}
	c.Header("Content-Type", "text/xml")
	c.String(http.StatusOK, xmlBody)
}

// analyzeHandler accepts an image as JSON base64 ({"image": ...}) or as a
// multipart file field named "image" and runs the vision pipeline. The
// response is either {"data": ...} or {"errors": [...]}; pipeline failures
// never surface as a bare 500.
func (a *app) analyzeHandler(c *gin.Context) {
	img, err := readImage(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": []string{err.Error()}})
		return
	}
	result, err := a.pipeline.Analyze(c.Request.Context(), img)
	if err != nil {
		log.Printf("analyze failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"errors": []string{err.Error()}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": result})
}

func readImage(c *gin.Context) ([]byte, error) {
	if fh, err := c.FormFile("image"); err == nil {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("open upload: %w", err)
		}
		defer f.Close()
		return io.ReadAll(f)
	}
	var req struct {
		Image string `json:"image" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, fmt.Errorf("image required (json base64 or multipart field)")
	}
	payload := req.Image
	// tolerate data-URL prefixes from browser captures
	if strings.HasPrefix(payload, "data:") {
		if idx := strings.IndexByte(payload, ','); idx >= 0 {
			payload = payload[idx+1:]
		}
	}
	img, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 image")
	}
	if len(img) == 0 {
		return nil, fmt.Errorf("empty image")
	}
	return img, nil
}

func (a *app) listSubscribersHandler(c *gin.Context) {
	subs, err := a.subs.List(200)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, subs)
}

func (a *app) listDiscsHandler(c *gin.Context) {
	discs, err := a.discs.List(200)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, discs)
}

func (a *app) createDiscHandler(c *gin.Context) {
	var req struct {
		Brand       string `json:"brand"`
		Mold        string `json:"mold"`
		ColorFamily string `json:"color_family"`
		Phone       string `json:"phone"`
		Course      string `json:"course"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	d := models.FoundDisc{
		Brand:       req.Brand,
		Mold:        req.Mold,
		ColorFamily: req.ColorFamily,
		Phone:       req.Phone,
		Course:      req.Course,
	}
	if err := a.discs.Create(&d); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": d.ID})
}

func (a *app) claimDiscHandler(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	if err := a.discs.Claim(uint(id)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "disc not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"claimed": true})
}

func registerHandler(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := RegisterUser(req.Username, req.Password); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user registered successfully"})
}

func loginHandler(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := Authenticate(req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	// Resolve role name from RoleID (only role_id is stored).
	roleName := ""
	if user.RoleID != nil {
		var r models.Role
		if err := db.First(&r, *user.RoleID).Error; err == nil {
			roleName = r.Name
		}
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": user.Username,
		"role":     roleName,
		"exp":      time.Now().Add(time.Hour * 24).Unix(),
	})
	tokenString, err := token.SignedString(jwtSecret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "login successful", "token": tokenString})
}
