package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurpe/trip-settlements/internal/auth"
	"github.com/nurpe/trip-settlements/internal/db/dbtest"
	"github.com/nurpe/trip-settlements/internal/excel"
	"github.com/nurpe/trip-settlements/internal/events"
	"github.com/nurpe/trip-settlements/internal/http/middleware"
	"github.com/nurpe/trip-settlements/internal/model"
	"github.com/nurpe/trip-settlements/internal/pdf"
	"github.com/nurpe/trip-settlements/internal/repository"
	"github.com/nurpe/trip-settlements/internal/service"
)

const testSecret = "test-secret"

type counterFolios struct {
	n atomic.Int64
}

func (f *counterFolios) NextFolio() string {
	return fmt.Sprintf("HTTP-%d", f.n.Add(1))
}

type apiFixture struct {
	router   *gin.Engine
	unit     model.Unit
	operator model.Operator
	tokens   map[model.Role]string
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	database := dbtest.New(t)
	store := repository.NewStore(database)
	settlements := service.NewSettlementService(store, &counterFolios{}, events.NewNoopPublisher(), zerolog.Nop())
	expenses := service.NewExpenseService(store, settlements, zerolog.Nop())
	exports := service.NewExportService(store, excel.NewGenerator(), pdf.NewGenerator())

	handler := NewHandler(settlements, expenses, exports, zerolog.Nop())
	router := NewRouter(handler, middleware.Auth(auth.NewParser(testSecret)), "test", nil, zerolog.Nop())

	tokens := make(map[model.Role]string, len(model.Roles))
	for _, role := range model.Roles {
		tokens[role] = signToken(t, role)
	}

	return &apiFixture{
		router:   router,
		unit:     dbtest.SeedUnit(t, database, "TRACTOCAMION"),
		operator: dbtest.SeedOperator(t, database),
		tokens:   tokens,
	}
}

func signToken(t *testing.T, role model.Role) string {
	t.Helper()
	claims := auth.Claims{
		UserID: uuid.NewString(),
		Role:   string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func (f *apiFixture) do(t *testing.T, role model.Role, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var payload bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&payload).Encode(body))
	}
	req := httptest.NewRequest(method, path, &payload)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req.Header.Set("Authorization", "Bearer "+f.tokens[role])
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeSettlement(t *testing.T, rec *httptest.ResponseRecorder) model.Settlement {
	t.Helper()
	var settlement model.Settlement
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &settlement), rec.Body.String())
	return settlement
}

func (f *apiFixture) createSettlement(t *testing.T) model.Settlement {
	t.Helper()
	rec := f.do(t, model.RoleCapturist, http.MethodPost, "/settlements", gin.H{
		"client":          "Transportes del Norte",
		"unit_id":         f.unit.ID.String(),
		"operator_id":     f.operator.ID.String(),
		"start_date":      "2026-03-01",
		"end_date":        "2026-03-04",
		"arrival_date":    "2026-03-05",
		"distance_km":     1000,
		"tabulated_yield": 5,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeSettlement(t, rec)
}

func TestRouter_HealthAndAuth(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, "", http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, "", http.MethodGet, "/settlements/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, "", http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandler_SettlementLifecycle(t *testing.T) {
	f := newAPIFixture(t)
	created := f.createSettlement(t)
	assert.Equal(t, model.StatusDraft, created.Status)
	assert.NotEmpty(t, created.Folio)
	base := "/settlements/" + created.ID.String()

	rec := f.do(t, model.RoleCapturist, http.MethodPost, base+"/expenses/fuel", gin.H{"amount": 4500, "liters": 180, "concept": "diesel"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var written struct {
		Expense    model.Expense    `json:"expense"`
		Settlement model.Settlement `json:"settlement"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &written))
	assert.Equal(t, "25.00", written.Expense.PricePerLiter.StringFixed(2))
	assert.Equal(t, model.StatusInReview, written.Settlement.Status)
	assert.Equal(t, "4500.00", written.Settlement.TotalFuel.StringFixed(2))

	rec = f.do(t, model.RoleCapturist, http.MethodPost, base+"/expenses/freight", gin.H{"amount": 10000})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = f.do(t, model.RoleCapturist, http.MethodGet, base+"/expenses/fuel", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed struct {
		Data []model.Expense `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed.Data, 1)
	assert.Equal(t, model.CategoryFuel, listed.Data[0].Category)

	rec = f.do(t, model.RoleCapturist, http.MethodPatch, base+"/status", gin.H{"status": "approved"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, model.StatusApproved, decodeSettlement(t, rec).Status)

	rec = f.do(t, model.RoleCapturist, http.MethodPost, base+"/expenses/tolls", gin.H{"amount": 100})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, model.RoleDirector, http.MethodPatch, base+"/net-payable", gin.H{"net_payable": 1000})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	overridden := decodeSettlement(t, rec)
	assert.True(t, overridden.NetPayableOverridden)
	assert.Equal(t, "1000.00", overridden.NetPayable.StringFixed(2))
	assert.True(t, overridden.NetPayableSuggested.Valid)

	rec = f.do(t, model.RoleDirector, http.MethodGet, base+"/export.xlsx", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, service.ContentTypeXLSX, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".xlsx")

	rec = f.do(t, model.RoleDirector, http.MethodGet, base+"/export.pdf", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))

	rec = f.do(t, model.RoleAdmin, http.MethodPatch, base+"/status", gin.H{"status": "PAID"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	paid := decodeSettlement(t, rec)
	assert.Equal(t, model.StatusPaid, paid.Status)
	assert.NotNil(t, paid.PaidAt)
}

func TestHandler_Validation(t *testing.T) {
	f := newAPIFixture(t)
	created := f.createSettlement(t)
	base := "/settlements/" + created.ID.String()

	tests := []struct {
		name   string
		role   model.Role
		method string
		path   string
		body   any
		status int
	}{
		{"malformed id", model.RoleCapturist, http.MethodGet, "/settlements/not-a-uuid", nil, http.StatusBadRequest},
		{"unknown settlement", model.RoleCapturist, http.MethodGet, "/settlements/" + uuid.NewString(), nil, http.StatusNotFound},
		{"unknown category", model.RoleCapturist, http.MethodPost, base + "/expenses/lodging", gin.H{"amount": 10}, http.StatusBadRequest},
		{"missing amount", model.RoleCapturist, http.MethodPost, base + "/expenses/tolls", gin.H{}, http.StatusBadRequest},
		{"negative amount", model.RoleCapturist, http.MethodPost, base + "/expenses/tolls", gin.H{"amount": -5}, http.StatusBadRequest},
		{"liters outside fuel", model.RoleCapturist, http.MethodPost, base + "/expenses/tolls", gin.H{"amount": 5, "liters": 3}, http.StatusBadRequest},
		{"unknown status", model.RoleCapturist, http.MethodPatch, base + "/status", gin.H{"status": "ARCHIVED"}, http.StatusBadRequest},
		{"director cannot create", model.RoleDirector, http.MethodPost, "/settlements", gin.H{"client": "x"}, http.StatusForbidden},
		{"capturist cannot adjust", model.RoleCapturist, http.MethodPatch, base + "/adjust", gin.H{"tabulated_yield": 5, "commission_percentage": 10}, http.StatusForbidden},
		{"adjust needs approval", model.RoleDirector, http.MethodPatch, base + "/adjust", gin.H{"tabulated_yield": 5, "commission_percentage": 10}, http.StatusForbidden},
		{"adjust percentage range", model.RoleDirector, http.MethodPatch, base + "/adjust", gin.H{"tabulated_yield": 5, "commission_percentage": 120}, http.StatusBadRequest},
		{"adjust reason", model.RoleDirector, http.MethodPatch, base + "/adjust", gin.H{"tabulated_yield": 5, "commission_percentage": 10, "manual_adjustment": 50}, http.StatusBadRequest},
		{"negative net payable", model.RoleDirector, http.MethodPatch, base + "/net-payable", gin.H{"net_payable": -1}, http.StatusBadRequest},
		{"capturist cannot pay", model.RoleCapturist, http.MethodPatch, base + "/status", gin.H{"status": "PAID"}, http.StatusForbidden},
		{"unknown expense", model.RoleCapturist, http.MethodDelete, "/expenses/fuel/" + uuid.NewString(), nil, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, tt.role, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestHandler_ExpenseUpdateAndDelete(t *testing.T) {
	f := newAPIFixture(t)
	created := f.createSettlement(t)
	base := "/settlements/" + created.ID.String()

	rec := f.do(t, model.RoleCapturist, http.MethodPost, base+"/expenses/tolls", gin.H{"amount": 300, "concept": "caseta"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var written struct {
		Expense model.Expense `json:"expense"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &written))
	path := "/expenses/tolls/" + written.Expense.ID.String()

	rec = f.do(t, model.RoleCapturist, http.MethodPut, path, gin.H{"amount": 450, "concept": "caseta"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(t, model.RoleCapturist, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "450.00", decodeSettlement(t, rec).TotalTolls.StringFixed(2))

	rec = f.do(t, model.RoleCapturist, http.MethodDelete, path, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decodeSettlement(t, rec).TotalTolls.IsZero())

	rec = f.do(t, model.RoleCapturist, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, model.RoleCapturist, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_RecomputeIsSystemsOnly(t *testing.T) {
	f := newAPIFixture(t)
	created := f.createSettlement(t)
	base := "/settlements/" + created.ID.String()

	rec := f.do(t, model.RoleAdmin, http.MethodPatch, base+"/status", gin.H{"status": "CANCELLED"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cancelled := decodeSettlement(t, rec)

	for _, role := range []model.Role{model.RoleCapturist, model.RoleDirector, model.RoleAdmin} {
		rec = f.do(t, role, http.MethodPost, base+"/recompute", nil)
		assert.Equal(t, http.StatusForbidden, rec.Code, "role %s", role)
	}

	rec = f.do(t, model.RoleCapturist, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, cancelled.EditedByUserID, decodeSettlement(t, rec).EditedByUserID)

	rec = f.do(t, model.RoleSystems, http.MethodPost, base+"/recompute", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, model.StatusCancelled, decodeSettlement(t, rec).Status)
}
