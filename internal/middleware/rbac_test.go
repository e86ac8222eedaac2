package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/hostelhq/hostel-api/internal/models"
)

func rbacRouter(handler gin.HandlerFunc, allowed ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if role := c.GetHeader("X-Test-Role"); role != "" {
			c.Set(ContextUserKey, &models.JWTClaims{
				UserID: c.GetHeader("X-Test-User"),
				Role:   models.UserRole(role),
			})
		}
		c.Next()
	})
	router.GET("/resource/:id", RBAC(allowed...), handler)
	return router
}

func okHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func doRBAC(router *gin.Engine, role, userID string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(http.MethodGet, "/resource/user-1", nil)
	if role != "" {
		req.Header.Set("X-Test-Role", role)
		req.Header.Set("X-Test-User", userID)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRBACMissingClaims(t *testing.T) {
	router := rbacRouter(okHandler, string(models.RoleAdmin))
	resp := doRBAC(router, "", "")
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestRBACAllowedRole(t *testing.T) {
	router := rbacRouter(okHandler, string(models.RoleStaff), string(models.RoleAdmin))
	resp := doRBAC(router, string(models.RoleStaff), "user-2")
	require.Equal(t, http.StatusOK, resp.Code)
}

func TestRBACForbiddenRole(t *testing.T) {
	router := rbacRouter(okHandler, string(models.RoleAdmin))
	resp := doRBAC(router, string(models.RoleStudent), "user-2")
	require.Equal(t, http.StatusForbidden, resp.Code)
}

func TestRBACSelfMatchesPathParam(t *testing.T) {
	router := rbacRouter(okHandler, "SELF", string(models.RoleAdmin))
	resp := doRBAC(router, string(models.RoleStudent), "user-1")
	require.Equal(t, http.StatusOK, resp.Code)
}

func TestRBACSelfMismatch(t *testing.T) {
	router := rbacRouter(okHandler, "SELF", string(models.RoleAdmin))
	resp := doRBAC(router, string(models.RoleStudent), "user-2")
	require.Equal(t, http.StatusForbidden, resp.Code)
}

func TestRequireStaffAdmitsAllStaffRoles(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if role := c.GetHeader("X-Test-Role"); role != "" {
			c.Set(ContextUserKey, &models.JWTClaims{Role: models.UserRole(role)})
		}
		c.Next()
	})
	router.GET("/staff", RequireStaff(), okHandler)

	for _, role := range models.StaffRoles() {
		req, _ := http.NewRequest(http.MethodGet, "/staff", nil)
		req.Header.Set("X-Test-Role", string(role))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code, "role %s", role)
	}

	req, _ := http.NewRequest(http.MethodGet, "/staff", nil)
	req.Header.Set("X-Test-Role", string(models.RoleStudent))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusForbidden, w.Code)
}
