package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/domain"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

func detailsOf(t *testing.T, err error) map[string]any {
	t.Helper()
	de := apperrors.ToDomainError(err)
	require.NotNil(t, de)
	require.Equal(t, apperrors.CodeValidation, de.Code)
	return de.Details
}

func TestDecodeAndValidate_CreateTicket(t *testing.T) {
	var req CreateTicketRequest
	err := DecodeAndValidate([]byte(`{"title":"Cannot login","description":"help","categoryId":1,"priority":"urgent","status":"closed"}`), &req, "Invalid ticket data")
	require.NoError(t, err)
	assert.Equal(t, int64(1), *req.CategoryID)
	assert.Equal(t, "urgent", req.Priority)

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"missing title", `{"description":"d","categoryId":1}`, "title"},
		{"missing category", `{"title":"t","description":"d"}`, "categoryId"},
		{"zero category", `{"title":"t","description":"d","categoryId":0}`, "categoryId"},
		{"bad priority", `{"title":"t","description":"d","categoryId":1,"priority":"asap"}`, "priority"},
		{"unknown field", `{"title":"t","description":"d","categoryId":1,"tags":["x"]}`, "body"},
		{"wrong type", `{"title":"t","description":"d","categoryId":"one"}`, "body"},
		{"trailing data", `{"title":"t","description":"d","categoryId":1} {}`, "body"},
		{"empty body", ``, "body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req CreateTicketRequest
			details := detailsOf(t, DecodeAndValidate([]byte(tt.body), &req, "Invalid ticket data"))
			assert.Contains(t, details, tt.field)
		})
	}
}

func TestDecode_TicketPatchTracksPresence(t *testing.T) {
	var patch UpdateTicketRequest
	require.NoError(t, Decode([]byte(`{"status":"closed","assigneeId":null}`), &patch, "Invalid ticket data"))

	assert.True(t, patch.Status.Set)
	assert.Equal(t, domain.TicketStatusClosed, patch.Status.Value)
	assert.True(t, patch.AssigneeID.Set)
	assert.Nil(t, patch.AssigneeID.Value)
	assert.False(t, patch.Title.Set)
	assert.False(t, patch.OnlyStatus())
}

func TestValidate_CategoryAndSettings(t *testing.T) {
	details := detailsOf(t, Validate(CreateCategoryRequest{Name: "Billing", Color: "blue"}, "Invalid category data"))
	assert.Equal(t, "must be a hex color", details["color"])

	bad := "not a url"
	details = detailsOf(t, Validate(CreateBotSettingsRequest{ServerID: "1", DashboardURL: &bad}, "Invalid bot settings data"))
	assert.Contains(t, details, "dashboardUrl")

	assert.NoError(t, Validate(CreateServerRequest{ID: "123456789012345678", Name: "Guild"}, "Invalid server data"))
	details = detailsOf(t, Validate(CreateServerRequest{ID: "abc"}, "Invalid server data"))
	assert.Contains(t, details, "id")
	assert.Equal(t, "is required", details["name"])
}
