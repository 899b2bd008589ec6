package http

import (
	"encoding/json"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alijeyrad/cogniscreen/config"
	"github.com/Alijeyrad/cogniscreen/internal/api/http/router"
	"github.com/Alijeyrad/cogniscreen/internal/app"
	"github.com/Alijeyrad/cogniscreen/pkg/constants"
	"github.com/Alijeyrad/cogniscreen/pkg/kv"
)

// testConfig leaves room for the readiness ping to time out against a
// stopped store.
var testConfig = fiber.TestConfig{Timeout: 5 * time.Second}

func newTestApp(t *testing.T) (*fiber.App, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := &config.Config{
		Server:     config.ServerConfig{Environment: "development"},
		Storage:    config.StorageConfig{Driver: config.DriverRedis, KeyPrefix: "test"},
		Assessment: config.AssessmentConfig{HistoryLimit: 50, RedirectDelayMs: 2000, ResultsPath: "/results.html"},
	}
	st := kv.NewRedis(rdb)
	svcs := app.BuildServices(cfg, st, nil, nil)

	a := New(cfg, nil, false)
	router.NewRouter(router.Params{
		Cfg:           cfg,
		Store:         st,
		AssessmentSvc: svcs.Assessment,
		HistorySvc:    svcs.History,
	}).Register(a)
	return a, mr
}

type envelope struct {
	Data   json.RawMessage `json:"data"`
	Error  string          `json:"error"`
	Fields []struct {
		Field string `json:"field"`
	} `json:"fields"`
	Focus   string          `json:"focus"`
	Session json.RawMessage `json:"session"`
}

func do(t *testing.T, a *fiber.App, method, path, client, body string) (*nethttp.Response, envelope) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if client != "" {
		req.Header.Set(constants.HeaderClientID, client)
	}
	resp, err := a.Test(req, testConfig)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var env envelope
	if strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp, env
}

func TestHealth(t *testing.T) {
	a, mr := newTestApp(t)

	resp, _ := do(t, a, fiber.MethodGet, "/livez", "", "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, _ = do(t, a, fiber.MethodGet, "/readyz", "", "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	mr.Close()
	start := time.Now()
	resp, _ = do(t, a, fiber.MethodGet, "/readyz", "", "")
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	assert.Less(t, time.Since(start), 2*time.Second, "readiness must answer within a probe deadline")
}

func TestFields(t *testing.T) {
	a, _ := newTestApp(t)

	resp, env := do(t, a, fiber.MethodGet, "/api/v1/assessment/fields", "", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var rules []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &rules))
	assert.Len(t, rules, 9)
	assert.Equal(t, "mmse", rules[0]["name"])

	resp, _ = do(t, a, fiber.MethodGet, "/api/v1/assessment/fields/nope", "", "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, env = do(t, a, fiber.MethodPost, "/api/v1/assessment/validate", "", `{"field":"age","value":"150"}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"valid":false,"error":"Value must not exceed 120"}`, string(env.Data))
}

func TestClientHeaderRequired(t *testing.T) {
	a, _ := newTestApp(t)

	resp, env := do(t, a, fiber.MethodPost, "/api/v1/assessment/sessions", "", "")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, env.Error, constants.HeaderClientID)

	resp, _ = do(t, a, fiber.MethodGet, "/api/v1/history", "a:b", "")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestAssessmentFlow(t *testing.T) {
	a, _ := newTestApp(t)
	const client = "c1"

	resp, env := do(t, a, fiber.MethodPost, "/api/v1/assessment/sessions", client, "")
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var start struct {
		Session struct {
			ID string `json:"id"`
		} `json:"session"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &start))
	base := "/api/v1/assessment/sessions/" + start.Session.ID

	resp, env = do(t, a, fiber.MethodPost, base+"/next", client, "")
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "mmse", env.Focus)
	assert.Len(t, env.Fields, 2)
	assert.NotEmpty(t, env.Session)

	resp, _ = do(t, a, fiber.MethodPost, base+"/sections/2", client, "")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, a, fiber.MethodPost, base+"/submit", client, "")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	sections := [][][2]string{
		{{"mmse", "27"}, {"cdr", "0"}},
		{{"nwbv", "0.75"}, {"etiv", "1500"}, {"asf", "1.2"}},
		{{"age", "68"}, {"education", "16"}, {"gender", "M"}, {"ses", "2"}},
	}
	for i, fields := range sections {
		for _, fv := range fields {
			resp, _ = do(t, a, fiber.MethodPut, base+"/fields/"+fv[0], client, `{"value":"`+fv[1]+`"}`)
			require.Equal(t, fiber.StatusOK, resp.StatusCode, fv[0])
		}
		if i < len(sections)-1 {
			resp, _ = do(t, a, fiber.MethodPost, base+"/next", client, "")
			require.Equal(t, fiber.StatusOK, resp.StatusCode)
		}
		if i == len(sections)-2 {
			// a rejected submit on the final section returns the session like next does
			resp, env = do(t, a, fiber.MethodPost, base+"/submit", client, "")
			require.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
			assert.Equal(t, "age", env.Focus)
			var view struct {
				ID      string `json:"id"`
				Section int    `json:"section"`
			}
			require.NoError(t, json.Unmarshal(env.Session, &view))
			assert.Equal(t, start.Session.ID, view.ID)
			assert.Equal(t, 2, view.Section)
		}
	}

	// other clients cannot see the session
	resp, _ = do(t, a, fiber.MethodGet, base, "c2", "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, env = do(t, a, fiber.MethodPost, base+"/submit", client, "")
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var out struct {
		RecordID   string `json:"record_id"`
		RedirectTo string `json:"redirect_to"`
		Result     struct {
			RiskLevel string `json:"risk_level"`
		} `json:"prediction_result"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.NotEmpty(t, out.RecordID)
	assert.NotContains(t, string(env.Data), `"source"`)
	assert.Equal(t, "/results.html", out.RedirectTo)
	assert.NotEmpty(t, out.Result.RiskLevel)

	resp, _ = do(t, a, fiber.MethodPost, base+"/submit", client, "")
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp, _ = do(t, a, fiber.MethodGet, "/api/v1/assessment/result", client, "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, env = do(t, a, fiber.MethodGet, "/api/v1/history", client, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var records []struct {
		ID     string `json:"id"`
		Source string `json:"source"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &records))
	require.Len(t, records, 1)
	assert.Equal(t, out.RecordID, records[0].ID)
	assert.Equal(t, "fallback", records[0].Source)

	resp, _ = do(t, a, fiber.MethodGet, "/api/v1/history/"+out.RecordID, client, "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestDiscardSession(t *testing.T) {
	a, _ := newTestApp(t)
	const client = "c1"

	resp, env := do(t, a, fiber.MethodPost, "/api/v1/assessment/sessions", client, "")
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var start struct {
		Session struct {
			ID string `json:"id"`
		} `json:"session"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &start))
	base := "/api/v1/assessment/sessions/" + start.Session.ID

	resp, _ = do(t, a, fiber.MethodDelete, base, "c2", "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, _ = do(t, a, fiber.MethodDelete, base, client, "")
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	resp, _ = do(t, a, fiber.MethodGet, base, client, "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestHistoryEndpoints(t *testing.T) {
	a, _ := newTestApp(t)
	const client = "c1"

	resp, env := do(t, a, fiber.MethodGet, "/api/v1/history", client, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(env.Data))

	resp, _ = do(t, a, fiber.MethodGet, "/api/v1/history/export?format=csv", client, "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, _ = do(t, a, fiber.MethodGet, "/api/v1/history?limit=x", client, "")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, a, fiber.MethodGet, "/api/v1/history/missing", client, "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, _ = do(t, a, fiber.MethodPost, "/api/v1/history/export", client, "")
	assert.Equal(t, fiber.StatusNotImplemented, resp.StatusCode)

	resp, _ = do(t, a, fiber.MethodDelete, "/api/v1/history", client, "")
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}

func TestHistoryExportDownload(t *testing.T) {
	a, _ := newTestApp(t)
	const client = "c1"

	resp, env := do(t, a, fiber.MethodPost, "/api/v1/assessment/sessions", client, "")
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var start struct {
		Session struct {
			ID string `json:"id"`
		} `json:"session"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &start))
	base := "/api/v1/assessment/sessions/" + start.Session.ID

	for _, step := range []struct{ name, value string }{
		{"mmse", "20"}, {"cdr", "1"}, {"", ""},
		{"nwbv", "0.7"}, {"etiv", "1400"}, {"asf", "1.1"}, {"", ""},
		{"age", "80"}, {"education", "12"}, {"gender", "F"}, {"ses", "3"},
	} {
		if step.name == "" {
			resp, _ = do(t, a, fiber.MethodPost, base+"/next", client, "")
		} else {
			resp, _ = do(t, a, fiber.MethodPut, base+"/fields/"+step.name, client, `{"value":"`+step.value+`"}`)
		}
		require.Equal(t, fiber.StatusOK, resp.StatusCode, step.name)
	}
	resp, _ = do(t, a, fiber.MethodPost, base+"/submit", client, "")
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	req := httptest.NewRequest(fiber.MethodGet, "/api/v1/history/export?format=csv", nil)
	req.Header.Set(constants.HeaderClientID, client)
	resp, err := a.Test(req, testConfig)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentDisposition), "dementia_assessment_history_")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], ",80,F")

	resp, _ = do(t, a, fiber.MethodGet, "/api/v1/history/export?format=pdf", client, "")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
