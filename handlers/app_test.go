package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"loro-platform/config"
	"loro-platform/middleware"
	"loro-platform/models"
	"loro-platform/realtime"
	"loro-platform/services"
)

const testOrg = "org-1"

type harness struct {
	app      *fiber.App
	db       *gorm.DB
	verifier *middleware.TokenVerifier
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		NowFunc:                                  func() time.Time { return time.Now().UTC() },
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.All()...))

	cfg := &config.Config{
		AllowedOrigins:       "http://localhost:3000",
		RateLimitRPS:         1000,
		RateLimitBurst:       1000,
		IdentityServiceToken: "svc-secret",
	}
	hub := realtime.NewHub(8)
	notifications := services.NewNotificationService(db, hub)
	rewards := services.NewRewardsService(db, hub)
	verifier := middleware.NewTokenVerifier("test-secret", "loro-test")

	app := NewApp(Deps{
		Config:        cfg,
		DB:            db,
		Verifier:      verifier,
		Features:      config.DefaultFeatureMap(),
		Hub:           hub,
		Licenses:      services.NewLicenseService(db, 16, time.Minute),
		Rewards:       rewards,
		Assets:        services.NewAssetService(db),
		Leave:         services.NewLeaveService(db, notifications, rewards, hub),
		News:          services.NewNewsService(db, hub),
		Payslips:      services.NewPayslipService(db, nil, time.Minute),
		Resellers:     services.NewResellerService(db),
		Shop:          services.NewShopService(db, hub, notifications, rewards),
		Users:         services.NewUserService(db, rewards),
		Notifications: notifications,
	})
	return &harness{app: app, db: db, verifier: verifier}
}

func (h *harness) license(t *testing.T, plan models.LicensePlan) {
	t.Helper()
	require.NoError(t, h.db.Create(&models.License{
		OrganisationID: testOrg,
		LicenseKey:     "LORO-TEST-" + string(plan),
		Plan:           plan,
		Status:         models.LicenseActive,
		ValidUntil:     time.Now().UTC().Add(30 * 24 * time.Hour),
		MaxUsers:       10,
	}).Error)
}

func (h *harness) user(t *testing.T, role models.Role, username string) *models.User {
	t.Helper()
	u := &models.User{
		Tenant:     models.Tenant{OrganisationID: testOrg},
		ExternalID: "ext-" + username,
		Username:   username,
		Email:      username + "@example.com",
		Role:       role,
		Status:     models.UserActive,
	}
	require.NoError(t, h.db.Create(u).Error)
	return u
}

func (h *harness) token(t *testing.T, u *models.User) string {
	t.Helper()
	tok, err := h.verifier.Sign(middleware.Claims{
		UserID:         u.ID,
		Role:           string(u.Role),
		OrganisationID: u.OrganisationID,
	}, time.Hour)
	require.NoError(t, err)
	return tok
}

type utilsMeta struct {
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

type envelope struct {
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Meta    *utilsMeta        `json:"meta"`
	Errors  map[string]string `json:"errors"`
}

func (h *harness) do(t *testing.T, method, path, token string, body interface{}) (int, envelope) {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := h.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 && resp.Header.Get("Content-Type") == fiber.MIMEApplicationJSON {
		require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp.StatusCode, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}
