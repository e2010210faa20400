package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/preparatorio-aauma-api/internal/models"
	appErrors "github.com/noah-isme/preparatorio-aauma-api/pkg/errors"
)

type resolverStub struct {
	sessions map[string]*models.Session
	err      error
}

func (r resolverStub) Session(ctx context.Context, token string) (*models.Session, error) {
	if r.err != nil {
		return nil, r.err
	}
	session, ok := r.sessions[token]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return session, nil
}

type viewSpy struct {
	actors    []models.Actor
	resources []string
}

func (v *viewSpy) RecordView(ctx context.Context, actor models.Actor, viewType, resourceType, resourceID string) {
	v.actors = append(v.actors, actor)
	v.resources = append(v.resources, resourceType+":"+resourceID)
}

type observerSpy struct {
	paths []string
}

func (o *observerSpy) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	o.paths = append(o.paths, path)
}

func newRouter(resolver resolverStub, perms ...models.Permission) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	group := router.Group("/", Auth(resolver))
	if len(perms) > 0 {
		group.Use(RequirePermission(perms...))
	}
	group.GET("/secure", func(c *gin.Context) {
		c.String(http.StatusOK, SessionFrom(c).UserID)
	})
	return router
}

func serve(router *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestAuthRequiresBearerToken(t *testing.T) {
	resolver := resolverStub{sessions: map[string]*models.Session{"ok": {UserID: "u-1"}}}
	router := newRouter(resolver)

	assert.Equal(t, http.StatusUnauthorized, serve(router, http.MethodGet, "/secure", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(router, http.MethodGet, "/secure", "bad").Code)

	rec := serve(router, http.MethodGet, "/secure", "ok")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u-1", rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "Basic ok")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthPropagatesRoleLoadFailure(t *testing.T) {
	router := newRouter(resolverStub{err: appErrors.Wrap(errors.New("db"), appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roles")})
	assert.Equal(t, http.StatusInternalServerError, serve(router, http.MethodGet, "/secure", "ok").Code)
}

func TestRequirePermission(t *testing.T) {
	resolver := resolverStub{sessions: map[string]*models.Session{
		"admin":  {UserID: "a", Roles: []models.Role{models.RoleAdmin}},
		"viewer": {UserID: "v", Roles: []models.Role{models.RoleViewer}},
		"none":   {UserID: "n"},
	}}
	router := newRouter(resolver, models.PermViewFinance, models.PermManageStudents)

	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/secure", "admin").Code)
	rec := serve(router, http.MethodGet, "/secure", "viewer")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "access denied")
	assert.Equal(t, http.StatusForbidden, serve(router, http.MethodGet, "/secure", "none").Code)
}

func TestRequirePermissionWithoutSession(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/open", RequirePermission(models.PermSearch), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusUnauthorized, serve(router, http.MethodGet, "/open", "").Code)
}

func TestOptionalAuthAttachesSession(t *testing.T) {
	gin.SetMode(gin.TestMode)
	resolver := resolverStub{sessions: map[string]*models.Session{"ok": {UserID: "u-1"}}}
	router := gin.New()
	router.GET("/public", OptionalAuth(resolver), func(c *gin.Context) {
		if session := SessionFrom(c); session != nil {
			c.String(http.StatusOK, session.UserID)
			return
		}
		c.String(http.StatusOK, "anonymous")
	})

	assert.Equal(t, "anonymous", serve(router, http.MethodGet, "/public", "").Body.String())
	assert.Equal(t, "anonymous", serve(router, http.MethodGet, "/public", "expired").Body.String())
	assert.Equal(t, "u-1", serve(router, http.MethodGet, "/public", "ok").Body.String())
}

func TestAuditViewRecordsSuccessfulRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	spy := &viewSpy{}
	resolver := resolverStub{sessions: map[string]*models.Session{"ok": {UserID: "u-1"}}}
	router := gin.New()
	router.GET("/students/:id", Auth(resolver), AuditView(spy, "detail", "students"), func(c *gin.Context) {
		if c.Param("id") == "missing" {
			c.Status(http.StatusNotFound)
			return
		}
		c.Status(http.StatusOK)
	})

	serve(router, http.MethodGet, "/students/s-1", "ok")
	serve(router, http.MethodGet, "/students/missing", "ok")

	require.Len(t, spy.actors, 1)
	assert.Equal(t, "students:s-1", spy.resources[0])
	require.NotNil(t, spy.actors[0].UserID())
	assert.Equal(t, "u-1", *spy.actors[0].UserID())
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	spy := &observerSpy{}
	router := gin.New()
	router.Use(Metrics(spy))
	router.GET("/pairs/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve(router, http.MethodGet, "/pairs/p-1", "")
	serve(router, http.MethodGet, "/nowhere", "")

	assert.Equal(t, []string{"/pairs/:id", "unmatched"}, spy.paths)
}

func TestSetCacheHit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	assert.Nil(t, ExtractMeta(c))
	SetCacheHit(c, true)
	assert.Equal(t, true, ExtractMeta(c)[cacheHitKey])
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
}
