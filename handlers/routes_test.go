package handlers

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loro-platform/models"
)

func TestProtectedRoutesRequireToken(t *testing.T) {
	h := newHarness(t)

	status, env := h.do(t, http.MethodGet, "/rewards/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "authentication required", env.Message)
	assert.Equal(t, "null", string(env.Data))

	status, _ = h.do(t, http.MethodGet, "/rewards/me", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestLicenseAndFeatureGates(t *testing.T) {
	h := newHarness(t)
	u := h.user(t, models.RoleManager, "sipho")
	tok := h.token(t, u)

	status, _ := h.do(t, http.MethodGet, "/news", tok, nil)
	assert.Equal(t, http.StatusForbidden, status, "no license yet")

	h.license(t, models.PlanStarter)
	status, _ = h.do(t, http.MethodGet, "/news", tok, nil)
	assert.Equal(t, http.StatusOK, status)

	status, env := h.do(t, http.MethodGet, "/shop/products", tok, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Contains(t, env.Message, "shop")
}

func TestLicensingMeWorksWithoutValidLicense(t *testing.T) {
	h := newHarness(t)
	u := h.user(t, models.RoleOwner, "owner")
	tok := h.token(t, u)

	status, _ := h.do(t, http.MethodGet, "/licensing/me", tok, nil)
	assert.Equal(t, http.StatusNotFound, status)

	h.license(t, models.PlanProfessional)
	status, env := h.do(t, http.MethodGet, "/licensing/me", tok, nil)
	require.Equal(t, http.StatusOK, status)
	body := decode[struct {
		Valid    bool     `json:"valid"`
		Features []string `json:"features"`
	}](t, env.Data)
	assert.True(t, body.Valid)
	assert.Equal(t, []string{"assets", "leave", "news", "payslips", "rewards"}, body.Features)

	status, _ = h.do(t, http.MethodPost, "/licensing", tok, map[string]interface{}{
		"organisationId": testOrg, "plan": "enterprise", "validUntil": time.Now().Add(time.Hour),
	})
	assert.Equal(t, http.StatusForbidden, status, "only developers manage licenses")
}

func TestValidationErrorsCarryFields(t *testing.T) {
	h := newHarness(t)
	h.license(t, models.PlanBusiness)
	tok := h.token(t, h.user(t, models.RoleAdmin, "admin"))

	status, env := h.do(t, http.MethodPost, "/assets", tok, map[string]interface{}{
		"brand":        "Dell",
		"purchaseDate": "2024-01-10T00:00:00Z",
		"hasInsurance": true,
	})
	require.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, env.Errors, "serialNumber")
	assert.Contains(t, env.Errors, "insuranceProvider")
}

func TestShopCheckoutAndWorkflow(t *testing.T) {
	h := newHarness(t)
	h.license(t, models.PlanBusiness)
	manager := h.token(t, h.user(t, models.RoleManager, "manager"))
	rep := h.token(t, h.user(t, models.RoleUser, "rep"))

	product := map[string]interface{}{"name": "Router", "category": "network", "price": "1200.00", "stockQuantity": 5}
	status, _ := h.do(t, http.MethodPost, "/shop/products", rep, product)
	assert.Equal(t, http.StatusForbidden, status)

	status, env := h.do(t, http.MethodPost, "/shop/products", manager, product)
	require.Equal(t, http.StatusCreated, status)
	p := decode[models.Product](t, env.Data)

	status, env = h.do(t, http.MethodPost, "/shop/quotations", rep, map[string]interface{}{
		"clientName":  "Acme",
		"clientEmail": "buyer@acme.test",
		"items":       []map[string]interface{}{{"productId": p.ID, "quantity": 2}},
	})
	require.Equal(t, http.StatusCreated, status)
	q := decode[models.Quotation](t, env.Data)
	assert.Equal(t, models.QuotationDraft, q.Status)
	assert.True(t, q.TotalAmount.Equal(decimal.NewFromInt(2400)), q.TotalAmount.String())

	status, _ = h.do(t, http.MethodPatch, fmt.Sprintf("/shop/quotations/%s/status", q.ID), rep, map[string]string{"status": "completed"})
	assert.Equal(t, http.StatusConflict, status)

	status, env = h.do(t, http.MethodPost, fmt.Sprintf("/shop/quotations/%s/send", q.ID), rep, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, models.QuotationPendingClient, decode[models.Quotation](t, env.Data).Status)

	status, _ = h.do(t, http.MethodPatch, fmt.Sprintf("/shop/quotations/%s/status", q.ID), rep, map[string]string{"status": "approved"})
	assert.Equal(t, http.StatusForbidden, status)

	status, env = h.do(t, http.MethodGet, "/shop/quotations", rep, nil)
	require.Equal(t, http.StatusOK, status)
	require.NotNil(t, env.Meta)
	assert.EqualValues(t, 1, env.Meta.Total)
}

func TestLeaveSelfApprovalForbidden(t *testing.T) {
	h := newHarness(t)
	h.license(t, models.PlanStarter)
	hr := h.token(t, h.user(t, models.RoleHR, "hr"))

	start := time.Now().UTC().AddDate(0, 0, 7).Truncate(24 * time.Hour)
	status, env := h.do(t, http.MethodPost, "/leave", hr, map[string]interface{}{
		"leaveType": "annual", "startDate": start, "endDate": start.AddDate(0, 0, 2),
	})
	require.Equal(t, http.StatusCreated, status)
	l := decode[models.Leave](t, env.Data)

	status, _ = h.do(t, http.MethodPatch, fmt.Sprintf("/leave/%s/approve", l.ID), hr, nil)
	assert.Equal(t, http.StatusForbidden, status)
}

func TestNotificationsReadFlow(t *testing.T) {
	h := newHarness(t)
	h.license(t, models.PlanStarter)
	u := h.user(t, models.RoleUser, "naledi")
	tok := h.token(t, u)
	require.NoError(t, h.db.Create(&models.Notification{
		Tenant: models.Tenant{OrganisationID: testOrg},
		UserID: u.ID, Type: models.NotificationGeneral, Title: "hi", Message: "hello", Status: models.NotificationUnread,
	}).Error)

	status, env := h.do(t, http.MethodGet, "/notifications/me?unread=true", tok, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, env.Meta.Total)

	status, _ = h.do(t, http.MethodPatch, "/notifications/read-all", tok, nil)
	require.Equal(t, http.StatusOK, status)

	_, env = h.do(t, http.MethodGet, "/notifications/me?unread=true", tok, nil)
	assert.EqualValues(t, 0, env.Meta.Total)
}

func TestIdentityHookNeedsServiceToken(t *testing.T) {
	h := newHarness(t)
	recs := []map[string]string{{"id": "idp-9", "username": "zanele", "organisationId": testOrg}}

	status, _ := h.do(t, http.MethodPost, "/internal/identity/users", "", recs)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, env := h.do(t, http.MethodPost, "/internal/identity/users", "svc-secret", recs)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"upserted":1}`, string(env.Data))

	var n int64
	h.db.Model(&models.User{}).Where("external_id = ?", "idp-9").Count(&n)
	assert.EqualValues(t, 1, n)
}

func TestLoginPingAwardsOncePerDay(t *testing.T) {
	h := newHarness(t)
	h.license(t, models.PlanStarter)
	tok := h.token(t, h.user(t, models.RoleUser, "kabelo"))

	_, env := h.do(t, http.MethodPost, "/users/me/login-ping", tok, nil)
	assert.JSONEq(t, `{"xpAwarded":true}`, string(env.Data))
	_, env = h.do(t, http.MethodPost, "/users/me/login-ping", tok, nil)
	assert.JSONEq(t, `{"xpAwarded":false}`, string(env.Data))
}

func TestWebSocketRequiresUpgrade(t *testing.T) {
	h := newHarness(t)
	h.license(t, models.PlanEnterprise)
	u := h.user(t, models.RoleUser, "ws")

	status, _ := h.do(t, http.MethodGet, "/ws", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = h.do(t, http.MethodGet, "/ws?token="+h.token(t, u), "", nil)
	assert.Equal(t, http.StatusUpgradeRequired, status)
}

func TestAwardRejectsUsersOutsideCallerOrganisation(t *testing.T) {
	h := newHarness(t)
	h.license(t, models.PlanBusiness)
	manager := h.token(t, h.user(t, models.RoleManager, "boss"))
	member := h.user(t, models.RoleUser, "member")

	outsider := &models.User{
		Tenant:     models.Tenant{OrganisationID: "org-2"},
		ExternalID: "ext-outsider", Username: "outsider", Email: "outsider@example.com",
		Role: models.RoleUser, Status: models.UserActive,
	}
	require.NoError(t, h.db.Create(outsider).Error)

	status, _ := h.do(t, http.MethodPost, "/rewards/award", manager, map[string]interface{}{"userId": outsider.ID, "amount": 250, "sourceType": "sale"})
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = h.do(t, http.MethodPost, "/rewards/award", manager, map[string]interface{}{"userId": "made-up-id", "amount": 250, "sourceType": "sale"})
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = h.do(t, http.MethodPost, "/rewards/award", manager, map[string]interface{}{"userId": member.ID, "amount": 250, "sourceType": "sale"})
	assert.Equal(t, http.StatusCreated, status)

	_, env := h.do(t, http.MethodGet, "/rewards/leaderboard", manager, nil)
	board := decode[[]map[string]interface{}](t, env.Data)
	require.Len(t, board, 1)
	assert.Equal(t, member.ID, board[0]["userId"])
}
