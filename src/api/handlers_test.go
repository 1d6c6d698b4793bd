package api_test

import (
	"encoding/binary"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lost-woods/randtest/src/api"
)

var uuidV4Re = regexp.MustCompile(`(?i)^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

func newContext(method, target, body string, params gin.Params, jsonAccept bool) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if jsonAccept {
		req.Header.Set("Accept", "application/json")
	}
	c.Request = req
	c.Params = params
	return c, w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestPartition_AcceptHeaderControlsJSON(t *testing.T) {
	h := api.NewHandlers("", zap.NewNop().Sugar())

	c, w := newContext("GET", "/partition?kind=custom&bins=4&start=0&finish=1", "", nil, true)
	h.Partition(c)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decode(t, w)
	rid, _ := body["request_id"].(string)
	require.Regexp(t, uuidV4Re, rid)
	require.Equal(t, rid, w.Header().Get("X-Request-ID"))
	require.Equal(t, map[string]any{"cuts": []any{0.0, 0.5, 1.0}}, body["partition"])

	c2, w2 := newContext("GET", "/partition?kind=custom&bins=4&start=0&finish=1", "", nil, false)
	h.Partition(c2)
	require.Equal(t, http.StatusOK, w2.Code)
	require.True(t, strings.HasPrefix(w2.Body.String(), "(-inf, 0)\n[0, 0.5)\n[0.5, 1)\n[1, +inf)\nrequest_id: "), w2.Body.String())
}

func TestPartition_BadInput(t *testing.T) {
	h := api.NewHandlers("", zap.NewNop().Sugar())
	for _, target := range []string{
		"/partition?bins=1",
		"/partition?bins=abc",
		"/partition?kind=asin&bins=2",
		"/partition?kind=weird",
		"/partition?kind=custom&start=x&finish=1",
		"/partition?kind=custom&bins=5&start=1&finish=0",
	} {
		c, w := newContext("GET", target, "", nil, false)
		h.Partition(c)
		require.Equal(t, http.StatusBadRequest, w.Code, target)
	}
}

func TestIdeal(t *testing.T) {
	h := api.NewHandlers("", zap.NewNop().Sugar())

	c, w := newContext("GET", "/ideal/asin?bins=12&n=1000", "", gin.Params{{Key: "law", Value: "asin"}}, true)
	h.Ideal(c)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	m := decode(t, w)["measure"].(map[string]any)
	values := m["values"].([]any)
	require.Len(t, values, 12)
	var sum float64
	for _, v := range values {
		sum += v.(float64)
	}
	require.InDelta(t, 1, sum, 1e-12)

	c, w = newContext("GET", "/ideal/lil?n=2", "", gin.Params{{Key: "law", Value: "lil"}}, false)
	h.Ideal(c)
	require.Equal(t, http.StatusBadRequest, w.Code)

	c, w = newContext("GET", "/ideal/normal", "", gin.Params{{Key: "law", Value: "normal"}}, false)
	h.Ideal(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestDistance(t *testing.T) {
	h := api.NewHandlers("", zap.NewNop().Sugar())

	cases := []struct {
		name   string
		body   string
		status int
	}{
		{"identical", `{"u":{"cuts":[0,0.5,1],"values":[0,0.5,0.5,0]},"v":{"cuts":[0,0.5,1],"values":[0,0.5,0.5,0]}}`, http.StatusOK},
		{"mismatch", `{"u":{"cuts":[0,0.5,1],"values":[0,0.5,0.5,0]},"v":{"cuts":[0,0.5,1.0000001],"values":[0,0.5,0.5,0]}}`, http.StatusUnprocessableEntity},
		{"bad length", `{"u":{"cuts":[0],"values":[1]},"v":{"cuts":[0],"values":[0.5,0.5]}}`, http.StatusBadRequest},
		{"unknown metric", `{"metric":"kl","u":{"cuts":[0],"values":[1,0]},"v":{"cuts":[0],"values":[0,1]}}`, http.StatusBadRequest},
		{"negative hellinger", `{"metric":"hellinger","u":{"cuts":[0],"values":[-1,2]},"v":{"cuts":[0],"values":[0,1]}}`, http.StatusUnprocessableEntity},
		{"missing measures", `{}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, w := newContext("POST", "/distance", tc.body, nil, true)
			h.Distance(c)
			require.Equal(t, tc.status, w.Code, w.Body.String())
		})
	}

	c, w := newContext("POST", "/distance", cases[0].body, nil, true)
	h.Distance(c)
	require.Equal(t, map[string]any{"hellinger": 0.0, "rms": 0.0, "tv": 0.0}, decode(t, w)["distances"])

	c, w = newContext("POST", "/distance", `{"metric":"TV","u":{"cuts":[0],"values":[1,0]},"v":{"cuts":[0],"values":[0,1]}}`, nil, false)
	h.Distance(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, strings.HasPrefix(w.Body.String(), "tv: 1\n"), w.Body.String())
}

func writeRandomWords(t *testing.T, dir, name string, n int) {
	t.Helper()
	r := rand.New(rand.NewSource(5))
	buf := make([]byte, 0, n*8)
	for i := 0; i < n; i++ {
		buf = binary.NativeEndian.AppendUint64(buf, r.Uint64())
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), buf, 0o600))
}

func TestEvaluate(t *testing.T) {
	dir := t.TempDir()
	writeRandomWords(t, dir, "seq.bin", 2000)
	h := api.NewHandlers(dir, zap.NewNop().Sugar())

	c, w := newContext("POST", "/evaluate", `{"file":"seq.bin","statistic":"lil","n":1000,"reps":100,"bins":12}`, nil, true)
	h.Evaluate(c)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode(t, w)["result"].(map[string]any)
	require.Equal(t, "lil", res["statistic"])
	require.Equal(t, 100.0, res["samples"])
	require.Contains(t, res["distances"], "tv")

	cases := []struct {
		name   string
		body   string
		status int
	}{
		{"escape attempt", `{"file":"../../../etc/passwd","n":100,"reps":1}`, http.StatusNotFound},
		{"missing", `{"file":"nope.bin","n":100,"reps":1}`, http.StatusNotFound},
		{"too short", `{"file":"seq.bin","n":1000000,"reps":1}`, http.StatusUnprocessableEntity},
		{"bad statistic", `{"file":"seq.bin","statistic":"runs","n":100,"reps":1}`, http.StatusBadRequest},
		{"lil domain", `{"file":"seq.bin","statistic":"lil","n":2,"reps":1}`, http.StatusBadRequest},
		{"too much work", `{"file":"seq.bin","n":1000000000,"reps":1000}`, http.StatusBadRequest},
		{"no file", `{"n":10,"reps":1}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, w := newContext("POST", "/evaluate", tc.body, nil, false)
			h.Evaluate(c)
			require.Equal(t, tc.status, w.Code, w.Body.String())
		})
	}
}

func TestEvaluate_Disabled(t *testing.T) {
	h := api.NewHandlers("", zap.NewNop().Sugar())
	c, w := newContext("POST", "/evaluate", `{"file":"seq.bin","n":100,"reps":1}`, nil, false)
	h.Evaluate(c)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHealth(t *testing.T) {
	c, w := newContext("GET", "/health", "", nil, true)
	api.NewHandlers(t.TempDir(), zap.NewNop().Sugar()).Health(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, true, decode(t, w)["ok"])

	c, w = newContext("GET", "/health", "", nil, false)
	api.NewHandlers(filepath.Join(t.TempDir(), "gone"), zap.NewNop().Sugar()).Health(c)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.True(t, strings.HasPrefix(w.Body.String(), "UNHEALTHY: "))
}

func TestCheckHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mw := api.CheckHeader("X-API-KEY", "secret")

	c, w := newContext("GET", "/", "", nil, false)
	mw(c)
	require.True(t, c.IsAborted())
	require.Equal(t, http.StatusForbidden, w.Code)

	c, _ = newContext("GET", "/", "", nil, false)
	c.Request.Header.Set("X-API-KEY", "secret")
	mw(c)
	require.False(t, c.IsAborted())
}
