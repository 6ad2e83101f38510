package policies

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"tourhub/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func asRole(id uuid.UUID, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", id.String())
		c.Set("user_role", role)
		c.Next()
	}
}

func newPolicyEngine(svc Service, auth gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	SetupPolicyRoutes(engine.Group("/api/v1"), NewController(svc), auth)
	return engine
}

func doJSON(engine *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestCreatePolicyEndpoint(t *testing.T) {
	svc := NewService(newMemoryRepository(), nil, "default", nil)
	engine := newPolicyEngine(svc, asRole(uuid.New(), "ADMIN"))

	rec := doJSON(engine, http.MethodPost, "/api/v1/admin/policies", map[string]interface{}{
		"name":       "standard",
		"is_default": true,
		"rules": []map[string]interface{}{
			{"hours_before_start": 24, "refund_percentage": "50", "processing_fee": "100"},
			{"hours_before_start": 72, "refund_percentage": "100", "processing_fee": "0"},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var body struct {
		Data CancellationPolicy `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data.Rules, 2)
	assert.Equal(t, 72, body.Data.Rules[0].HoursBeforeStart)

	rec = doJSON(engine, http.MethodGet, "/api/v1/policies/"+body.Data.ID.String(), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreatePolicyEndpointRejectsNonAdmin(t *testing.T) {
	svc := NewService(newMemoryRepository(), nil, "default", nil)
	engine := newPolicyEngine(svc, asRole(uuid.New(), "CUSTOMER"))

	rec := doJSON(engine, http.MethodPost, "/api/v1/admin/policies", map[string]interface{}{"name": "x"})

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCreatePolicyEndpointValidationErrors(t *testing.T) {
	svc := NewService(newMemoryRepository(), nil, "default", nil)
	engine := newPolicyEngine(svc, asRole(uuid.New(), "ADMIN"))

	rec := doJSON(engine, http.MethodPost, "/api/v1/admin/policies", map[string]interface{}{
		"name":  "no rules",
		"rules": []interface{}{},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(engine, http.MethodPost, "/api/v1/admin/policies", map[string]interface{}{
		"name": "too generous",
		"rules": []map[string]interface{}{
			{"hours_before_start": 0, "refund_percentage": "150", "processing_fee": "0"},
		},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body struct {
		Errors response.ErrorBody `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "VALIDATION", body.Errors.Kind)
}

func TestGetPolicyEndpointNotFound(t *testing.T) {
	svc := NewService(newMemoryRepository(), nil, "default", nil)
	engine := newPolicyEngine(svc, asRole(uuid.New(), "CUSTOMER"))

	rec := doJSON(engine, http.MethodGet, "/api/v1/policies/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(engine, http.MethodGet, "/api/v1/policies/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdatePolicyEndpointRejectsStaleVersion(t *testing.T) {
	svc := NewService(newMemoryRepository(), nil, "default", nil)
	engine := newPolicyEngine(svc, asRole(uuid.New(), "ADMIN"))
	req := standardRequest(false)
	policy, err := svc.CreatePolicy(context.Background(), admin, req)
	require.NoError(t, err)
	path := "/api/v1/admin/policies/" + policy.ID.String()

	req.Version = 1
	req.Name = "edited"
	rec := doJSON(engine, http.MethodPut, path, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(engine, http.MethodPut, path, req)
	assert.Equal(t, http.StatusConflict, rec.Code)
}
