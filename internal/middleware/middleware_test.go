package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/campus-ledger/internal/models"
	"github.com/noah-isme/campus-ledger/internal/service"
	appErrors "github.com/noah-isme/campus-ledger/pkg/errors"
	"github.com/noah-isme/campus-ledger/pkg/middleware/requestid"
)

type validatorStub struct {
	claims *models.JWTClaims
	token  string
}

func (v *validatorStub) ValidateToken(token string) (*models.JWTClaims, error) {
	v.token = token
	if v.claims == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return v.claims, nil
}

func serve(r *gin.Engine, method, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func withClaims(claims *models.JWTClaims) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims != nil {
			c.Set(ContextUserKey, claims)
		}
		c.Next()
	}
}

func TestJWT(t *testing.T) {
	gin.SetMode(gin.TestMode)
	stub := &validatorStub{claims: &models.JWTClaims{UserID: "u1", Role: models.RoleAdmin}}
	r := gin.New()
	r.GET("/", JWT(stub), func(c *gin.Context) {
		claims, _ := c.Get(ContextUserKey)
		c.String(http.StatusOK, claims.(*models.JWTClaims).UserID)
	})

	w := serve(r, http.MethodGet, "/", "bearer abc.def")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u1", w.Body.String())
	assert.Equal(t, "abc.def", stub.token)

	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/", "Basic dXNlcg==").Code)

	stub.claims = nil
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/", "Bearer expired").Code)
}

func TestRequireRoles(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		name   string
		claims *models.JWTClaims
		want   int
	}{
		{"admin", &models.JWTClaims{UserID: "a", Role: models.RoleAdmin}, http.StatusOK},
		{"faculty", &models.JWTClaims{UserID: "f", Role: models.RoleFaculty}, http.StatusOK},
		{"student", &models.JWTClaims{UserID: "s", Role: models.RoleStudent}, http.StatusForbidden},
		{"anonymous", nil, http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/", withClaims(tc.claims), RequireRoles(models.RoleAdmin, models.RoleFaculty), func(c *gin.Context) {
				c.Status(http.StatusOK)
			})
			assert.Equal(t, tc.want, serve(r, http.MethodGet, "/", "").Code)
		})
	}
}

func TestRequireRolesOrSelf(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/students/:id", withClaims(&models.JWTClaims{UserID: "S1", Role: models.RoleStudent}),
		RequireRolesOrSelf("id", models.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/students/S1", "").Code)
	assert.Equal(t, http.StatusForbidden, serve(r, http.MethodGet, "/students/S2", "").Code)
}

func TestAuditLogsSuccessfulMutations(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.InfoLevel)
	r := gin.New()
	r.Use(requestid.Middleware())
	r.DELETE("/fees/:id", withClaims(&models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}), Audit(zap.New(core), "fee.delete"),
		func(c *gin.Context) {
			if c.Param("id") == "locked" {
				c.Status(http.StatusConflict)
				return
			}
			c.Status(http.StatusOK)
		})

	serve(r, http.MethodDelete, "/fees/fee_1", "")
	serve(r, http.MethodDelete, "/fees/locked", "")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "audit", entry.LoggerName)
	fields := entry.ContextMap()
	assert.Equal(t, "fee.delete", fields["action"])
	assert.Equal(t, "fee_1", fields["resource_id"])
	assert.Equal(t, "admin-1", fields["actor_id"])
	assert.Equal(t, "admin", fields["actor_role"])
	assert.NotEmpty(t, fields["request_id"])
}

func TestMetricsLabelsByRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	r := gin.New()
	r.Use(Metrics(metrics))
	r.GET("/fees/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve(r, http.MethodGet, "/fees/fee_1", "")
	serve(r, http.MethodGet, "/nowhere", "")

	assert.Equal(t, uint64(2), metrics.Snapshot().RequestsTotal)

	w := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, w.Body.String(), `path="/fees/:id"`)
	assert.Contains(t, w.Body.String(), `path="unmatched"`)
}

func TestMetricsWithoutService(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Metrics(nil))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	assert.Equal(t, http.StatusNoContent, serve(r, http.MethodGet, "/", "").Code)
}
