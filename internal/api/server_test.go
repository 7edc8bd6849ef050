package api

import (
	"bytes"
	"encoding/json"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/MimoJanra/AuditPulse/internal/auditor"
	"github.com/MimoJanra/AuditPulse/internal/catalog"
	"github.com/MimoJanra/AuditPulse/internal/delivery"
	"github.com/MimoJanra/AuditPulse/internal/metrics"
	"github.com/MimoJanra/AuditPulse/internal/models"
	"github.com/MimoJanra/AuditPulse/internal/notifications"
	"github.com/MimoJanra/AuditPulse/internal/queue"
	"github.com/MimoJanra/AuditPulse/internal/service"
	"github.com/MimoJanra/AuditPulse/internal/storage"
	"github.com/MimoJanra/AuditPulse/internal/storage/storagetest"
)

type testEnv struct {
	handler http.Handler
	svc     *service.Service
	queue   *queue.MemoryQueue
	subs    *storage.SubscriberRepo
}

func newTestEnv(t *testing.T, auditsPerMinute int) *testEnv {
	t.Helper()
	db := storagetest.Open(t)
	log := zap.NewNop()
	cat := catalog.Default()
	gen := auditor.NewGenerator(cat, auditor.WithDelay(0), auditor.WithRand(rand.New(rand.NewPCG(1, 2))))
	subs := storage.NewSubscriberRepo(db)
	audits := storage.NewAuditRepo(db)
	rec := metrics.NewPrometheusRecorder(nil)

	svc := service.New(service.Deps{
		Subscribers: subs,
		Audits:      audits,
		Auditor:     gen,
		Catalog:     cat,
		Metrics:     rec,
		HashCost:    bcrypt.MinCost,
	}, log)

	q := queue.NewMemoryQueue(queue.Options{Workers: 1, Capacity: 8}, log)
	dlv := delivery.NewService(delivery.Deps{
		Subscribers: subs,
		Audits:      audits,
		Auditor:     gen,
		Catalog:     cat,
		Sender:      notifications.NewLogSender(log),
		Queue:       q,
		Metrics:     rec,
	}, log)

	srv := &Server{
		Service:  svc,
		Delivery: dlv,
		Limiter:  NewKeyedLimiter(auditsPerMinute),
		Metrics:  rec.Handler(),
		Log:      log,
	}
	return &testEnv{handler: SetupRouter(srv), svc: svc, queue: q, subs: subs}
}

func (e *testEnv) register(t *testing.T, email string) {
	t.Helper()
	_, err := e.svc.Register(t.Context(), email, "correct horse")
	require.NoError(t, err)
}

func (e *testEnv) do(t *testing.T, method, path, email string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if email != "" {
		req.SetBasicAuth(email, "correct horse")
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func TestPublicEndpoints(t *testing.T) {
	env := newTestEnv(t, 0)

	rec := env.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "auditpulse_")

	rec = env.do(t, http.MethodPost, "/register", "", credentialsRequest{Email: "new@example.org", Password: "correct horse"})
	require.Equal(t, http.StatusCreated, rec.Code)
	sub := decode[models.Subscriber](t, rec)
	assert.Equal(t, "new@example.org", sub.Email)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = env.do(t, http.MethodPost, "/register", "", credentialsRequest{Email: "new@example.org", Password: "correct horse"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPost, "/register", "", credentialsRequest{Email: "x@example.org", Password: "short"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthenticationRequired(t *testing.T) {
	env := newTestEnv(t, 0)
	env.register(t, "u@example.org")

	rec := env.do(t, http.MethodGet, "/dashboard", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.SetBasicAuth("u@example.org", "wrong password")
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/dashboard", "u@example.org", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	d := decode[models.Dashboard](t, rec)
	assert.Equal(t, models.Unscheduled, d.ScheduleState)
}

func TestAuditAndReportFlow(t *testing.T) {
	env := newTestEnv(t, 0)
	env.register(t, "u2@example.org")
	env.register(t, "u3@example.org")

	rec := env.do(t, http.MethodPost, "/audits", "u2@example.org", auditRequest{TargetURL: "not a url"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/audits", "u2@example.org", auditRequest{TargetURL: "https://example.com"})
	require.Equal(t, http.StatusCreated, rec.Code)
	snap := decode[models.AuditSnapshot](t, rec)
	require.NotZero(t, snap.ID)
	assert.Len(t, snap.Metrics, 37)

	path := "/reports/" + strconv.FormatUint(uint64(snap.ID), 10)

	rec = env.do(t, http.MethodGet, path, "u2@example.org", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[service.ReportView](t, rec)
	assert.Len(t, view.Sections, 4)

	rec = env.do(t, http.MethodGet, path+"/pdf", "u2@example.org", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "inline; filename=\"AuditPulse_Report_")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF-"))

	rec = env.do(t, http.MethodGet, path+"/pdf", "u3@example.org", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.NotContains(t, rec.Body.String(), "example.com")

	rec = env.do(t, http.MethodGet, "/reports/9999", "u2@example.org", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/reports/abc", "u2@example.org", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuditRateLimit(t *testing.T) {
	env := newTestEnv(t, 2)
	env.register(t, "a@example.org")
	env.register(t, "b@example.org")

	for range 2 {
		rec := env.do(t, http.MethodPost, "/audits", "a@example.org", auditRequest{TargetURL: "https://example.com"})
		require.Equal(t, http.StatusCreated, rec.Code)
	}
	rec := env.do(t, http.MethodPost, "/audits", "a@example.org", auditRequest{TargetURL: "https://example.com"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = env.do(t, http.MethodPost, "/audits", "b@example.org", auditRequest{TargetURL: "https://example.com"})
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestScheduleEndpoints(t *testing.T) {
	env := newTestEnv(t, 0)
	env.register(t, "u1@example.org")

	rec := env.do(t, http.MethodPost, "/schedule", "u1@example.org", scheduleRequest{TargetURL: "https://example.org", DeliveryAddress: "bogus"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, env.queue.Pending())

	rec = env.do(t, http.MethodPost, "/schedule", "u1@example.org", scheduleRequest{TargetURL: "https://example.org", DeliveryAddress: "ops@example.org"})
	require.Equal(t, http.StatusAccepted, rec.Code)
	res := decode[delivery.ScheduleResult](t, rec)
	assert.True(t, res.Queued)
	assert.Equal(t, 1, env.queue.Pending())

	sub, err := env.subs.GetByEmail(t.Context(), "u1@example.org")
	require.NoError(t, err)
	assert.Equal(t, models.Scheduled, sub.ScheduleState())

	rec = env.do(t, http.MethodDelete, "/schedule", "u1@example.org", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	sub, err = env.subs.GetByEmail(t.Context(), "u1@example.org")
	require.NoError(t, err)
	assert.Equal(t, models.Unscheduled, sub.ScheduleState())
}

func TestAdminEndpoint(t *testing.T) {
	env := newTestEnv(t, 0)
	env.register(t, "u@example.org")
	require.NoError(t, env.svc.SeedAdmin(t.Context(), "root@example.org", "correct horse"))

	rec := env.do(t, http.MethodGet, "/admin", "u@example.org", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodGet, "/admin", "root@example.org", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	o := decode[models.AdminOverview](t, rec)
	assert.Len(t, o.Subscribers, 2)
}

func TestRateLimiterRefills(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := newRateLimiter(6, func() time.Time { return now })

	for range 6 {
		require.True(t, rl.Allow())
	}
	assert.False(t, rl.Allow())

	now = now.Add(10 * time.Second)
	assert.True(t, rl.Allow())
	assert.False(t, rl.Allow())

	now = now.Add(time.Minute)
	for range 6 {
		require.True(t, rl.Allow())
	}

	assert.True(t, NewRateLimiter(0).Allow())
	var nilLimiter *KeyedLimiter
	assert.True(t, nilLimiter.Allow(1))
}
