package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"globesuggest/api/catalog"
	"globesuggest/api/middleware"
	"globesuggest/api/models"
	"globesuggest/api/relay"
	"globesuggest/api/schema"
	"globesuggest/api/store"
	"globesuggest/api/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func perform(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return out
}

type fakeFetcher struct {
	products map[string]schema.Product
	err      error
}

func (f *fakeFetcher) Fetch(_ context.Context, identifier string) (schema.Product, error) {
	if f.err != nil {
		return schema.Product{}, f.err
	}
	p, ok := f.products[identifier]
	if !ok {
		return schema.Product{}, catalog.ErrNotFound
	}
	return p, nil
}

func productRouter(f ProductFetcher) *gin.Engine {
	h := NewProductHandlers(f, "https://media.example")
	r := gin.New()
	r.GET("/api/products/:identifier", h.GetProduct)
	r.GET("/api/products/:identifier/schema", h.GetSchema)
	r.GET("/api/products/:identifier/blog/:index", h.GetBlog)
	return r
}

func sampleProduct() schema.Product {
	return schema.NewProduct(map[string]any{
		"id":           "42",
		"product_name": "Basmati Rice",
		"blog_posts": []any{
			map[string]any{"title": "Harvest notes"},
			map[string]any{"title": "Export guide"},
		},
	})
}

func TestGetProduct(t *testing.T) {
	r := productRouter(&fakeFetcher{products: map[string]schema.Product{"basmati-rice": sampleProduct()}})

	w := perform(r, http.MethodGet, "/api/products/basmati-rice", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	body := decodeJSON(t, w)
	product, _ := body["product"].(map[string]any)
	if product["product_name"] != "Basmati Rice" {
		t.Errorf("unexpected product %v", product)
	}
	graph, _ := body["schema"].(map[string]any)
	if graph["@context"] != "https://schema.org" {
		t.Errorf("unexpected schema %v", graph)
	}
	if !strings.Contains(w.Body.String(), "http://example.com/basmati-rice/#product") {
		t.Errorf("expected page URL built from request origin, got %s", w.Body.String())
	}
}

func TestGetProductErrors(t *testing.T) {
	w := perform(productRouter(&fakeFetcher{}), http.MethodGet, "/api/products/missing", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("not found: expected 404, got %d", w.Code)
	}

	down := &fakeFetcher{err: fmt.Errorf("%w: dial tcp: refused", catalog.ErrUnavailable)}
	w = perform(productRouter(down), http.MethodGet, "/api/products/anything", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("unavailable: expected 503, got %d", w.Code)
	}
}

func TestGetSchemaContentType(t *testing.T) {
	r := productRouter(&fakeFetcher{products: map[string]schema.Product{"42": sampleProduct()}})
	req := httptest.NewRequest(http.MethodGet, "/api/products/42/schema", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	req.Header.Set("X-Forwarded-Host", "globesuggest.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/ld+json") {
		t.Errorf("unexpected content type %q", ct)
	}
	if !strings.Contains(w.Body.String(), "https://globesuggest.com/42/") {
		t.Errorf("expected forwarded origin in graph: %s", w.Body.String())
	}
}

func TestGetBlog(t *testing.T) {
	r := productRouter(&fakeFetcher{products: map[string]schema.Product{"42": sampleProduct()}})

	w := perform(r, http.MethodGet, "/api/products/42/blog/2", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := decodeJSON(t, w)
	blog, _ := body["blog"].(map[string]any)
	if blog["title"] != "Export guide" || body["blog_index"] != float64(2) {
		t.Errorf("unexpected blog response %v", body)
	}

	for _, idx := range []string{"0", "3", "x"} {
		if w := perform(r, http.MethodGet, "/api/products/42/blog/"+idx, ""); w.Code != http.StatusNotFound {
			t.Errorf("index %s: expected 404, got %d", idx, w.Code)
		}
	}
}

func TestBlogPath(t *testing.T) {
	got, err := BlogPath("rice 1", 3)
	if err != nil || got != "/rice%201/blog/3/" {
		t.Errorf("BlogPath = %q, %v", got, err)
	}
	if _, err := BlogPath("", 1); err == nil {
		t.Error("expected error for empty product id")
	}
	if _, err := BlogPath("x", 0); err == nil {
		t.Error("expected error for index 0")
	}
}

type fakeSuggester struct {
	results []models.SearchSuggestion
	err     error
}

func (f *fakeSuggester) Suggest(context.Context, string) ([]models.SearchSuggestion, error) {
	return f.results, f.err
}

func TestSuggest(t *testing.T) {
	cases := []struct {
		name     string
		fake     *fakeSuggester
		wantCode int
		wantErr  string
	}{
		{"ok", &fakeSuggester{results: []models.SearchSuggestion{{ID: "1", Slug: "rice-1", Title: "Rice"}}}, http.StatusOK, ""},
		{"upstream status", &fakeSuggester{err: &catalog.StatusError{Code: http.StatusTooManyRequests, URL: "u"}}, http.StatusTooManyRequests, "Upstream search error (status 429)."},
		{"unreachable", &fakeSuggester{err: errors.New("dial tcp: refused")}, http.StatusBadGateway, "Unable to reach product search service."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/suggest", NewSearchHandlers(tc.fake).Suggest)
			w := perform(r, http.MethodGet, "/suggest?q=rice", "")
			if w.Code != tc.wantCode {
				t.Fatalf("expected %d, got %d", tc.wantCode, w.Code)
			}
			body := decodeJSON(t, w)
			if _, ok := body["results"].([]any); !ok {
				t.Errorf("results should always be a list: %v", body)
			}
			if tc.wantErr != "" && body["error"] != tc.wantErr {
				t.Errorf("unexpected error message %v", body["error"])
			}
		})
	}
}

type fakeIngester struct {
	got []models.IngestPayload
	err error
}

func (f *fakeIngester) Ingest(_ context.Context, p models.IngestPayload) (models.IngestResult, error) {
	f.got = append(f.got, p)
	if f.err != nil {
		return models.IngestResult{}, f.err
	}
	return models.IngestResult{Status: "ok", SessionID: fmt.Sprint(p.Session["session_id"]), EventsSaved: len(p.Events)}, nil
}

type fakeForwarder struct {
	res relay.Result
	err error
}

func (f *fakeForwarder) Forward(context.Context, []byte) (relay.Result, error) {
	return f.res, f.err
}

func analyticsRouter(h *AnalyticsHandlers) *gin.Engine {
	r := gin.New()
	r.POST("/ingest", h.Ingest)
	r.POST("/forward", h.Forward)
	r.GET("/config", h.Config)
	return r
}

func TestIngestPlaintext(t *testing.T) {
	ing := &fakeIngester{}
	r := analyticsRouter(NewAnalyticsHandlers(ing, nil, &fakeForwarder{}, models.ClientAnalyticsConfig{}))

	w := perform(r, http.MethodPost, "/ingest", `{"session":{"session_id":"s-1"},"events":[{"event_type":"page_view"}]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := decodeJSON(t, w)
	if body["status"] != "ok" || body["events_saved"] != float64(1) {
		t.Errorf("unexpected response %v", body)
	}
	if len(ing.got) != 1 || ing.got[0].Session["session_id"] != "s-1" {
		t.Errorf("payload not passed through: %+v", ing.got)
	}
}

func TestIngestUnreadablePayloadIsIgnored(t *testing.T) {
	ing := &fakeIngester{}
	r := analyticsRouter(NewAnalyticsHandlers(ing, nil, &fakeForwarder{}, models.ClientAnalyticsConfig{}))

	for _, body := range []string{`{"alg":"x","key":"a","iv":"b","data":"c"}`, `not json`, ``} {
		w := perform(r, http.MethodPost, "/ingest", body)
		if w.Code != http.StatusOK {
			t.Fatalf("%q: expected 200, got %d", body, w.Code)
		}
		got := decodeJSON(t, w)
		if got["status"] != "ignored" || got["reason"] != "invalid_payload" {
			t.Errorf("%q: unexpected response %v", body, got)
		}
	}
	if len(ing.got) != 0 {
		t.Errorf("aggregator should not be called, got %d calls", len(ing.got))
	}
}

func TestIngestStorageError(t *testing.T) {
	r := analyticsRouter(NewAnalyticsHandlers(&fakeIngester{err: errors.New("db down")}, nil, &fakeForwarder{}, models.ClientAnalyticsConfig{}))
	w := perform(r, http.MethodPost, "/ingest", `{"session":{"session_id":"s"},"events":[]}`)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
}

func TestForwardStatusMapping(t *testing.T) {
	cases := []struct {
		name       string
		fwd        *fakeForwarder
		wantCode   int
		wantReason string
	}{
		{"ok", &fakeForwarder{res: relay.Result{Status: 202}}, http.StatusOK, ""},
		{"remote rejects", &fakeForwarder{res: relay.Result{Status: 500}}, http.StatusOK, ""},
		{"invalid json", &fakeForwarder{err: relay.ErrInvalidJSON}, http.StatusBadRequest, "invalid_json"},
		{"invalid envelope", &fakeForwarder{err: relay.ErrInvalidEnvelope}, http.StatusBadRequest, "invalid_envelope"},
		{"not configured", &fakeForwarder{err: relay.ErrNotConfigured}, http.StatusInternalServerError, "remote_url_not_configured"},
		{"unreachable", &fakeForwarder{err: fmt.Errorf("%w: timeout", relay.ErrUnreachable)}, http.StatusBadGateway, "upstream_unreachable"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := analyticsRouter(NewAnalyticsHandlers(&fakeIngester{}, nil, tc.fwd, models.ClientAnalyticsConfig{}))
			w := perform(r, http.MethodPost, "/forward", `{}`)
			if w.Code != tc.wantCode {
				t.Fatalf("expected %d, got %d", tc.wantCode, w.Code)
			}
			body := decodeJSON(t, w)
			if tc.wantReason != "" && body["reason"] != tc.wantReason {
				t.Errorf("unexpected reason %v", body["reason"])
			}
			if tc.wantReason == "" && body["forwarded_status"] != float64(tc.fwd.res.Status) {
				t.Errorf("unexpected forwarded_status %v", body["forwarded_status"])
			}
		})
	}
}

func TestAnalyticsConfig(t *testing.T) {
	cfg := models.ClientAnalyticsConfig{IngestURL: "https://collector.example/ingest/", SampleRate: 0.5, RequireConsent: true}
	r := analyticsRouter(NewAnalyticsHandlers(&fakeIngester{}, nil, &fakeForwarder{}, cfg))
	body := decodeJSON(t, perform(r, http.MethodGet, "/config", ""))
	if body["ingest_url"] != cfg.IngestURL || body["sample_rate"] != 0.5 || body["require_consent"] != true {
		t.Errorf("unexpected config %v", body)
	}
}

type fakeLeads struct {
	drafts    []models.Lead
	submitted []models.Lead
}

func (f *fakeLeads) SaveDraft(_ context.Context, l models.Lead) (*models.Lead, error) {
	f.drafts = append(f.drafts, l)
	l.ID = int64(len(f.drafts))
	return &l, nil
}

func (f *fakeLeads) Submit(_ context.Context, l models.Lead) (*models.Lead, error) {
	f.submitted = append(f.submitted, l)
	l.ID = 100 + int64(len(f.submitted))
	return &l, nil
}

func enquiryRouter(leads LeadRepository) *gin.Engine {
	h := NewEnquiryHandlers(leads, []byte("pepper"))
	r := gin.New()
	r.POST("/api/enquiry/draft/", h.Draft)
	r.POST("/api/enquiry/submit/", h.Submit)
	return r
}

func TestEnquiryDraft(t *testing.T) {
	leads := &fakeLeads{}
	r := enquiryRouter(leads)

	w := perform(r, http.MethodPost, "/api/enquiry/draft/", `{"session_id":"s","product_id":"p","quantity":"0"}`)
	if body := decodeJSON(t, w); body["status"] != "ignored" {
		t.Errorf("empty draft should be ignored, got %v", body)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/enquiry/draft/", strings.NewReader(`{"session_id":"s","product_id":"p","mobile":" 98765 ","quantity":12}`))
	req.Header.Set("User-Agent", strings.Repeat("u", 2000))
	req.RemoteAddr = "203.0.113.9:5555"
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	body := decodeJSON(t, w)
	if body["status"] != "success" || body["lead_id"] != float64(1) {
		t.Fatalf("unexpected response %v", body)
	}
	got := leads.drafts[0]
	if got.Mobile != "98765" || got.Quantity == nil || *got.Quantity != 12 {
		t.Errorf("unexpected lead %+v", got)
	}
	if got.PageURL != "/api/enquiry/draft/" {
		t.Errorf("page_url should default to request path, got %q", got.PageURL)
	}
	if got.IPHash != utils.HashIP([]byte("pepper"), "203.0.113.9") {
		t.Errorf("unexpected ip hash %q", got.IPHash)
	}
	if len(got.UserAgent) != maxUserAgent {
		t.Errorf("user agent not truncated: %d", len(got.UserAgent))
	}
}

func TestEnquirySubmit(t *testing.T) {
	leads := &fakeLeads{}
	r := enquiryRouter(leads)

	w := perform(r, http.MethodPost, "/api/enquiry/submit/", `{"product_id":"p","quantity":5}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without contact details, got %d", w.Code)
	}
	if body := decodeJSON(t, w); body["message"] != "Please enter your email address or mobile number." {
		t.Errorf("unexpected message %v", body["message"])
	}

	w = perform(r, http.MethodPost, "/api/enquiry/submit/", `{"email":"a@b.co","quantity":"5","page_url":"/rice/"}`)
	body := decodeJSON(t, w)
	if w.Code != http.StatusOK || body["status"] != "success" || body["lead_id"] != float64(101) {
		t.Fatalf("unexpected response %d %v", w.Code, body)
	}
	if got := leads.submitted[0]; got.Source != models.LeadSourceDiscuss || got.PageURL != "/rice/" {
		t.Errorf("unexpected lead %+v", got)
	}

	perform(r, http.MethodPost, "/api/enquiry/submit/", `{"mobile":"123","quantity":"lots"}`)
	if got := leads.submitted[1]; got.Source != models.LeadSourceQuick || got.Quantity != nil {
		t.Errorf("expected quick lead without quantity, got %+v", got)
	}
}

func TestParseQuantity(t *testing.T) {
	cases := []struct {
		in   any
		want int
	}{
		{json.Number("7"), 7},
		{json.Number("7.9"), 7},
		{"12", 12},
		{" 3 ", 3},
		{true, 1},
	}
	for _, tc := range cases {
		got := parseQuantity(tc.in)
		if got == nil || *got != tc.want {
			t.Errorf("parseQuantity(%#v) = %v, want %d", tc.in, got, tc.want)
		}
	}
	for _, in := range []any{nil, "", "1.5", "abc", json.Number("0"), json.Number("-4"), false, []any{1}} {
		if got := parseQuantity(in); got != nil {
			t.Errorf("parseQuantity(%#v) = %d, want nil", in, *got)
		}
	}
}

func TestAdminLogin(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	secret := []byte("test-secret")
	h := NewAuthHandlers(string(hash), secret, false)
	r := gin.New()
	r.POST("/login", h.Login)
	r.POST("/logout", h.Logout)

	if w := perform(r, http.MethodPost, "/login", `{"password":"wrong"}`); w.Code != http.StatusUnauthorized {
		t.Errorf("wrong password: expected 401, got %d", w.Code)
	}
	if w := perform(r, http.MethodPost, "/login", `{}`); w.Code != http.StatusBadRequest {
		t.Errorf("missing password: expected 400, got %d", w.Code)
	}

	w := perform(r, http.MethodPost, "/login", `{"password":"s3cret"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var token string
	for _, ck := range w.Result().Cookies() {
		if ck.Name == middleware.TokenCookie {
			token = ck.Value
		}
	}
	claims, err := utils.ValidateJWT(secret, token)
	if err != nil {
		t.Fatalf("issued token invalid: %v", err)
	}
	if claims.Subject != adminSubject {
		t.Errorf("unexpected subject %q", claims.Subject)
	}

	w = perform(r, http.MethodPost, "/logout", "")
	if !strings.Contains(w.Header().Get("Set-Cookie"), "Max-Age=0") {
		t.Errorf("logout should expire the cookie: %q", w.Header().Get("Set-Cookie"))
	}
}

func TestAdminLoginNotConfigured(t *testing.T) {
	r := gin.New()
	r.POST("/login", NewAuthHandlers("", []byte("x"), false).Login)
	if w := perform(r, http.MethodPost, "/login", `{"password":"a"}`); w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", w.Code)
	}
}

type fakeReporting struct {
	lastLimit    uint64
	lastInterval string
}

func (f *fakeReporting) GetEventCountsOverTime(_ context.Context, interval string, _, _ time.Time, _ string) ([]models.EventTypeCountByTime, error) {
	f.lastInterval = interval
	return []models.EventTypeCountByTime{{Count: 3}}, nil
}

func (f *fakeReporting) GetUniqueSessionsOverTime(_ context.Context, interval string, _, _ time.Time) ([]models.EventTypeCountByTime, error) {
	f.lastInterval = interval
	return nil, nil
}

func (f *fakeReporting) GetAverageEventDuration(context.Context, string, time.Time, time.Time) (float64, error) {
	return 1500, nil
}

func (f *fakeReporting) GetTopProducts(_ context.Context, _, _ time.Time, limit uint64) ([]models.TopProductResult, error) {
	f.lastLimit = limit
	return []models.TopProductResult{{ProductID: "42", Views: 9, Sessions: 4}}, nil
}

type fakeSessions struct{}

func (fakeSessions) SessionDetails(_ context.Context, id string) ([]models.SessionDetail, error) {
	if id != "s-1" {
		return nil, store.ErrSessionNotFound
	}
	return []models.SessionDetail{{Session: models.AnalyticsSession{SessionID: "s-1", ProductID: "42"}}}, nil
}

func statsRouter(h *StatsHandlers) *gin.Engine {
	r := gin.New()
	r.GET("/event-counts", h.GetEventCountsOverTime)
	r.GET("/unique-sessions", h.GetUniqueSessionsOverTime)
	r.GET("/average-event-duration", h.GetAverageEventDuration)
	r.GET("/top-products", h.GetTopProducts)
	r.GET("/sessions/:session_id", h.GetSession)
	return r
}

func TestStatsWithoutReportingStore(t *testing.T) {
	r := statsRouter(NewStatsHandlers(nil, fakeSessions{}))
	for _, path := range []string{"/event-counts?interval=Day", "/unique-sessions", "/average-event-duration", "/top-products"} {
		if w := perform(r, http.MethodGet, path, ""); w.Code != http.StatusServiceUnavailable {
			t.Errorf("%s: expected 503, got %d", path, w.Code)
		}
	}
	if w := perform(r, http.MethodGet, "/sessions/s-1", ""); w.Code != http.StatusOK {
		t.Errorf("session detail should not need reporting store, got %d", w.Code)
	}
}

func TestStatsValidation(t *testing.T) {
	rep := &fakeReporting{}
	r := statsRouter(NewStatsHandlers(rep, fakeSessions{}))

	cases := map[string]int{
		"/event-counts":                         http.StatusBadRequest,
		"/event-counts?interval=Fortnight":      http.StatusBadRequest,
		"/event-counts?interval=Day&start=bad":  http.StatusBadRequest,
		"/event-counts?interval=Hour":           http.StatusOK,
		"/top-products?limit=0":                 http.StatusBadRequest,
		"/top-products?limit=25":                http.StatusOK,
		"/average-event-duration?end=yesterday": http.StatusBadRequest,
		"/sessions/nope":                        http.StatusNotFound,
	}
	for path, want := range cases {
		if w := perform(r, http.MethodGet, path, ""); w.Code != want {
			t.Errorf("%s: expected %d, got %d", path, want, w.Code)
		}
	}
	if rep.lastLimit != 25 {
		t.Errorf("limit not passed through: %d", rep.lastLimit)
	}

	perform(r, http.MethodGet, "/unique-sessions", "")
	if rep.lastInterval != "Day" {
		t.Errorf("unique sessions should default to Day, got %q", rep.lastInterval)
	}
}
