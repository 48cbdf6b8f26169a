package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"discrescue/models"
	"discrescue/pkg/catalog"
	"discrescue/pkg/vision"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type fakeSubs struct {
	byPhone map[string]*models.Subscriber
	optOuts []string
	optIns  []string
}

func (f *fakeSubs) ByPhone(phone string) (*models.Subscriber, error) {
	if s, ok := f.byPhone[phone]; ok {
		return s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeSubs) OptOut(phone string) error {
	f.optOuts = append(f.optOuts, phone)
	return nil
}

func (f *fakeSubs) OptIn(phone string) (*models.Subscriber, bool, error) {
	f.optIns = append(f.optIns, phone)
	changed := true
	if s, ok := f.byPhone[phone]; ok && s.OptedIn {
		changed = false
	}
	return &models.Subscriber{Phone: phone, OptedIn: true}, changed, nil
}

func (f *fakeSubs) List(limit int) ([]models.Subscriber, error) { return nil, nil }

type fakeDiscs struct{ unclaimed int64 }

func (f *fakeDiscs) UnclaimedCount() (int64, error) { return f.unclaimed, nil }

func (f *fakeDiscs) Create(d *models.FoundDisc) error { return nil }

func (f *fakeDiscs) List(limit int) ([]models.FoundDisc, error) { return nil, nil }

func (f *fakeDiscs) Claim(id uint) error { return nil }

type sentMessage struct {
	to, body string
	media    []string
}

type fakeSender struct{ sent []sentMessage }

func (f *fakeSender) Send(to, body string, mediaURLs ...string) error {
	f.sent = append(f.sent, sentMessage{to: to, body: body, media: mediaURLs})
	return nil
}

type fakeValidator struct{ ok bool }

func (f fakeValidator) Validate(u string, params map[string]string, sig string) bool { return f.ok }

type stubEngine struct {
	ex  *vision.Extraction
	err error
}

func (s stubEngine) Name() string { return "stub" }
func (s stubEngine) Annotate(ctx context.Context, image []byte) (*vision.Extraction, error) {
	return s.ex, s.err
}

type stubRefs struct{ lists catalog.Lists }

func (s stubRefs) Fetch(ctx context.Context) catalog.Lists { return s.lists }

func newTestApp() (*app, *fakeSubs, *fakeDiscs, *fakeSender) {
	subs := &fakeSubs{byPhone: map[string]*models.Subscriber{}}
	discs := &fakeDiscs{unclaimed: 3}
	sender := &fakeSender{}
	a := &app{
		subs:  subs,
		discs: discs,
		pipeline: vision.NewPipeline(stubEngine{ex: &vision.Extraction{
			Confidence: 0.9,
			Words:      []vision.RecognizedWord{{Text: "Innova", Confidence: 0.95}},
			Colors:     []vision.DominantColor{{R: 255, Score: 0.6}},
		}}, stubRefs{catalog.Lists{Brands: []string{"innova"}}}),
		sender:         sender,
		validator:      fakeValidator{ok: true},
		callbackURL:    "https://example.com/sms",
		contactCardURL: "https://example.com/contact.vcf",
	}
	return a, subs, discs, sender
}

func newTestRouter(a *app) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	setupRoutes(r, a)
	return r
}

func postSMS(r http.Handler, from, body string) *httptest.ResponseRecorder {
	form := url.Values{}
	form.Set("From", from)
	form.Set("Body", body)
	req, _ := http.NewRequest(http.MethodPost, "/sms", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Twilio-Signature", "sig")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	a, subs, _, sender := newTestApp()
	a.validator = fakeValidator{ok: false}
	rec := postSMS(newTestRouter(a), "+15551234567", "STOP")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("expected empty body, got %q", rec.Body.String())
	}
	if len(subs.optOuts) != 0 || len(sender.sent) != 0 {
		t.Error("rejected request must have no side effects")
	}
}

func TestWebhookStopOptsOut(t *testing.T) {
	a, subs, _, sender := newTestApp()
	rec := postSMS(newTestRouter(a), "+15551234567", "STOP")
	if rec.Code != http.StatusTeapot {
		t.Fatalf("status = %d, want 418", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("STOP reply must have no body, got %q", rec.Body.String())
	}
	if len(subs.optOuts) != 1 || subs.optOuts[0] != "+15551234567" {
		t.Errorf("opt-out not persisted: %v", subs.optOuts)
	}
	if len(sender.sent) != 0 {
		t.Errorf("no message may be sent on STOP: %+v", sender.sent)
	}
}

func TestWebhookYesOptsInAndSendsCard(t *testing.T) {
	a, subs, _, sender := newTestApp()
	rec := postSMS(newTestRouter(a), "+15551234567", " yes ")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/xml") {
		t.Errorf("content type = %q", ct)
	}
	if len(subs.optIns) != 1 {
		t.Fatalf("opt-in not persisted: %v", subs.optIns)
	}
	if len(sender.sent) != 1 || len(sender.sent[0].media) != 1 {
		t.Fatalf("expected one contact-card message: %+v", sender.sent)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "<Message>") || !strings.Contains(body, "3 unclaimed discs") {
		t.Errorf("reply should carry the claim-inventory count: %s", body)
	}
}

func TestWebhookYesAlreadyOptedInSkipsCard(t *testing.T) {
	a, subs, _, sender := newTestApp()
	subs.byPhone["+15551234567"] = &models.Subscriber{Phone: "+15551234567", OptedIn: true}
	rec := postSMS(newTestRouter(a), "+15551234567", "YES")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(sender.sent) != 0 {
		t.Errorf("contact card must only go out on first opt-in: %+v", sender.sent)
	}
}

func TestWebhookStatusForOptedIn(t *testing.T) {
	a, subs, discs, _ := newTestApp()
	discs.unclaimed = 1
	subs.byPhone["+15551234567"] = &models.Subscriber{Phone: "+15551234567", OptedIn: true}
	rec := postSMS(newTestRouter(a), "+15551234567", "any discs?")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "1 unclaimed disc") {
		t.Errorf("expected inventory line, got %s", rec.Body.String())
	}
}

func TestWebhookStatusForUnknownPromptsOptIn(t *testing.T) {
	a, _, _, _ := newTestApp()
	rec := postSMS(newTestRouter(a), "+19995550000", "hello")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Reply YES") {
		t.Errorf("expected opt-in prompt, got %s", rec.Body.String())
	}
}

func TestAnalyzeEndpoint(t *testing.T) {
	a, _, _, _ := newTestApp()
	r := newTestRouter(a)

	img := base64.StdEncoding.EncodeToString([]byte("fake image bytes"))
	payload, _ := json.Marshal(map[string]string{"image": img})
	req, _ := http.NewRequest(http.MethodPost, "/analyze", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Data vision.Analysis `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Data.Text.Words) != 1 || resp.Data.Text.Words[0].Category != "Brand" {
		t.Errorf("words = %+v", resp.Data.Text.Words)
	}
	if len(resp.Data.Colors) != 1 || resp.Data.Colors[0].Primary != "Red" {
		t.Errorf("colors = %+v", resp.Data.Colors)
	}
}

func TestAnalyzeEngineFailure(t *testing.T) {
	a, _, _, _ := newTestApp()
	a.pipeline = vision.NewPipeline(stubEngine{err: errors.New("vision unavailable")}, stubRefs{})
	r := newTestRouter(a)

	payload, _ := json.Marshal(map[string]string{"image": base64.StdEncoding.EncodeToString([]byte("x"))})
	req, _ := http.NewRequest(http.MethodPost, "/analyze", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Errors []string `json:"errors"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || len(resp.Errors) != 1 {
		t.Fatalf("expected structured errors array, got %s", rec.Body.String())
	}
}

func TestAnalyzeRejectsBadPayload(t *testing.T) {
	a, _, _, _ := newTestApp()
	r := newTestRouter(a)
	req, _ := http.NewRequest(http.MethodPost, "/analyze", strings.NewReader(`{"image":"not-base64!!"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
}
