package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sn-foods/commerce-api/internal/config"
	"github.com/sn-foods/commerce-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testEmailConfig(enabled bool) *config.EmailConfig {
	return &config.EmailConfig{
		Enabled:         enabled,
		APIKey:          "SG.test-key",
		FromEmail:       "orders@snfoods.example",
		FromName:        "SN Foods",
		Timeout:         5,
		InviteSignInURL: "https://shop.snfoods.example/login",
	}
}

func testOrder() *domain.Order {
	return &domain.Order{
		OrderNumber: "ORD-2026-00042",
		Items: []domain.OrderItem{
			{ProductName: "Full Cream Milk 2L", Unit: "each", Quantity: 12, UnitPrice: 8.50, TotalPrice: 102.00},
		},
		Subtotal:    102.00,
		TaxAmount:   10.20,
		TotalAmount: 112.20,
	}
}

func TestSendOrderApprovalPayload(t *testing.T) {
	var captured sendRequest
	var authHeader, path string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		path = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	client := NewClient(testEmailConfig(true), zap.NewNop()).WithBaseURL(srv.URL)
	recipient := domain.Recipient{Email: "dana@example.com", Name: "Dana Wu"}

	err := client.SendOrderApproval(context.Background(), recipient, testOrder())
	require.NoError(t, err)

	assert.Equal(t, "/v3/mail/send", path)
	assert.Equal(t, "Bearer SG.test-key", authHeader)
	require.Len(t, captured.Personalizations, 1)
	require.Len(t, captured.Personalizations[0].To, 1)
	assert.Equal(t, "dana@example.com", captured.Personalizations[0].To[0].Email)
	assert.Equal(t, "orders@snfoods.example", captured.From.Email)
	assert.Equal(t, "Order ORD-2026-00042 approved", captured.Subject)
	require.Len(t, captured.Content, 1)
	assert.Equal(t, "text/html", captured.Content[0].Type)
	assert.Contains(t, captured.Content[0].Value, "Full Cream Milk 2L")
}

func TestSendOrderApprovalProviderRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errors":[{"message":"invalid api key"}]}`))
	}))
	defer srv.Close()

	client := NewClient(testEmailConfig(true), zap.NewNop()).WithBaseURL(srv.URL)

	err := client.SendOrderApproval(context.Background(), domain.Recipient{Email: "dana@example.com"}, testOrder())
	require.Error(t, err)

	var sendErr *SendError
	require.ErrorAs(t, err, &sendErr)
	assert.Equal(t, http.StatusUnauthorized, sendErr.StatusCode)
	assert.Contains(t, sendErr.Body, "invalid api key")
}

func TestSendOrderApprovalDisabledSkipsDispatch(t *testing.T) {
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
	}))
	defer srv.Close()

	client := NewClient(testEmailConfig(false), zap.NewNop()).WithBaseURL(srv.URL)

	err := client.SendOrderApproval(context.Background(), domain.Recipient{Email: "dana@example.com"}, testOrder())
	require.NoError(t, err)
	assert.Zero(t, requests)
}

func TestSendUserInvitePayload(t *testing.T) {
	var captured sendRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	client := NewClient(testEmailConfig(true), zap.NewNop()).WithBaseURL(srv.URL)
	invitation := &domain.UserInvitation{
		Email:    "newhire@snfoods.example",
		FullName: "Sam Newhire",
		Role:     domain.RoleSalesAdmin,
	}

	err := client.SendUserInvite(context.Background(), invitation)
	require.NoError(t, err)

	require.Len(t, captured.Personalizations, 1)
	require.Len(t, captured.Personalizations[0].To, 1)
	assert.Equal(t, "newhire@snfoods.example", captured.Personalizations[0].To[0].Email)
	assert.Equal(t, "You have been invited to SN Foods Online Ordering", captured.Subject)
	require.Len(t, captured.Content, 1)
	assert.Contains(t, captured.Content[0].Value, "sales_admin")
	assert.Contains(t, captured.Content[0].Value, "https://shop.snfoods.example/login")
}

func TestInviteEmailRendering(t *testing.T) {
	invitation := &domain.UserInvitation{
		Email:    "newhire@snfoods.example",
		FullName: "Sam <Newhire>",
		Role:     domain.RoleAdmin,
	}

	subject, body := InviteEmail(invitation, "https://shop.snfoods.example/login")

	assert.Equal(t, "You have been invited to SN Foods Online Ordering", subject)
	assert.Contains(t, body, "admin")
	assert.Contains(t, body, "newhire@snfoods.example")
	assert.Contains(t, body, "https://shop.snfoods.example/login")

	// User-supplied text is escaped
	assert.Contains(t, body, "Sam &lt;Newhire&gt;")
	assert.NotContains(t, body, "<Newhire>")
}

func TestApprovalEmailRendering(t *testing.T) {
	order := testOrder()
	order.Notes = "Deliver to the <back> dock"

	subject, body := ApprovalEmail(domain.Recipient{Email: "dana@example.com", Name: "Dana & Co"}, order)

	assert.Equal(t, "Order ORD-2026-00042 approved", subject)

	// Stored totals appear verbatim
	assert.Contains(t, body, "$102.00")
	assert.Contains(t, body, "$10.20")
	assert.Contains(t, body, "$112.20")
	assert.Contains(t, body, "GST (10%)")

	// User-supplied text is escaped
	assert.Contains(t, body, "Dana &amp; Co")
	assert.Contains(t, body, "Deliver to the &lt;back&gt; dock")
	assert.NotContains(t, body, "<back>")
}
