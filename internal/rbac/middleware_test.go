package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"voiceagent/internal/auth"

	"github.com/gin-gonic/gin"
)

func doWithRole(t *testing.T, role string, allowed ...string) int {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x",
		func(c *gin.Context) {
			if role != "" {
				c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), "u1", role))
			}
			c.Next()
		},
		RequireAnyRole(allowed...),
		func(c *gin.Context) { c.Status(http.StatusOK) },
	)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/x", nil)
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRequireAnyRoleAllowsListedRole(t *testing.T) {
	if code := doWithRole(t, RoleOperator, RoleOperator, RoleViewer); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
}

func TestRequireAnyRoleAdminBypasses(t *testing.T) {
	if code := doWithRole(t, RoleAdmin, RoleViewer); code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d", code)
	}
}

func TestRequireAnyRoleForbidsOthers(t *testing.T) {
	if code := doWithRole(t, RoleViewer, RoleOperator); code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", code)
	}
}

func TestRequireAnyRoleRejectsMissingRole(t *testing.T) {
	if code := doWithRole(t, "", RoleOperator); code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}
}
