package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-iform/pkg/bridge"
	"github.com/goliatone/go-iform/pkg/bridge/memory"
	"github.com/goliatone/go-iform/pkg/schema"
	"github.com/goliatone/go-iform/pkg/testsupport"
	"github.com/goliatone/go-iform/pkg/validation"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := schema.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Write(ctx, "employee", []byte(testsupport.EmployeeForm)))
	require.NoError(t, store.Write(ctx, "broken", []byte(`{"version": "2.0", "formId": 5}`)))

	allow := bridge.MustAllowList(bridge.Table{Name: "employees", Columns: []string{"code", "email"}})
	data := memory.New(allow)
	require.NoError(t, data.Seed("employees", bridge.Record{"id": 1, "email": "taken@example.com"}))

	srv, err := New(schema.NewRegistry(store), WithBridge(data), WithLanguage("en"))
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func post(t *testing.T, url, payload string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func TestNew_RequiresRegistry(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	resp, body := get(t, ts.URL+"/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestListForms(t *testing.T) {
	ts := newTestServer(t)
	resp, body := get(t, ts.URL+"/forms")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Forms []formSummary `json:"forms"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	require.Len(t, out.Forms, 2)

	assert.Equal(t, "broken", out.Forms[0].ID)
	assert.NotEmpty(t, out.Forms[0].Error)
	assert.Equal(t, formSummary{ID: "employee", FormID: "employee", Name: "Employee", Version: "2.0"}, out.Forms[1])

	_, body = get(t, ts.URL+"/forms?lang=ar")
	assert.Contains(t, string(body), "بيانات الموظف")
}

func TestGetForm(t *testing.T) {
	ts := newTestServer(t)
	resp, body := get(t, ts.URL+"/forms/employee")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	def, err := schema.Parse(body)
	require.NoError(t, err, "served document must re-validate")
	assert.Equal(t, "employee", def.FormID)
	assert.Len(t, def.Sections, 3)
}

func TestGetForm_Errors(t *testing.T) {
	ts := newTestServer(t)

	resp, body := get(t, ts.URL+"/forms/missing")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(body), `"code":"NOT_FOUND"`)

	resp, body = get(t, ts.URL+"/forms/broken")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	var eb errorBody
	require.NoError(t, json.Unmarshal(body, &eb))
	assert.Equal(t, "INVALID_FORM", eb.Code)
	assert.NotEmpty(t, eb.Violations)
}

func TestPreview(t *testing.T) {
	ts := newTestServer(t)

	resp, body := get(t, ts.URL+"/forms/employee/preview?lang=en&width=600")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/html; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Contains(t, string(body), `<html lang="en" dir="ltr">`)
	assert.Contains(t, string(body), "width: 600px;")

	resp, _ = get(t, ts.URL+"/forms/employee/preview?width=wide")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = get(t, ts.URL+"/forms/missing/preview")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestValidate_Valid(t *testing.T) {
	ts := newTestServer(t)
	payload := `{"values": {
		"employee_code": "EMP-0001",
		"full_name": "Jane Doe",
		"status": 1,
		"email": "jane@example.com"
	}}`
	resp, body := post(t, ts.URL+"/forms/employee/validate", payload)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var res validation.Result
	require.NoError(t, json.Unmarshal(body, &res))
	assert.True(t, res.Valid)
	assert.Empty(t, res.Errors)
}

func TestValidate_ReportsFailuresInFormOrder(t *testing.T) {
	ts := newTestServer(t)
	payload := `{"values": {
		"employee_code": "E1",
		"full_name": "Jane Doe",
		"status": 1,
		"is_manager": true,
		"team_size": 0,
		"email": "taken@example.com"
	}}`
	resp, body := post(t, ts.URL+"/forms/employee/validate", payload)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, string(body))

	var res validation.Result
	require.NoError(t, json.Unmarshal(body, &res))
	assert.False(t, res.Valid)
	assert.Equal(t, []string{"employee_code", "team_size", "email"}, res.Order)
	assert.Equal(t, []string{"Code must look like EMP-0000"}, res.Errors["employee_code"])
}

func TestValidate_SkipsHiddenSection(t *testing.T) {
	ts := newTestServer(t)
	payload := `{"values": {
		"employee_code": "EMP-0001",
		"full_name": "Jane Doe",
		"status": 1,
		"is_manager": false,
		"team_size": 0
	}}`
	resp, body := post(t, ts.URL+"/forms/employee/validate", payload)
	assert.Equal(t, http.StatusOK, resp.StatusCode, string(body))
}

func TestValidate_BadBody(t *testing.T) {
	ts := newTestServer(t)
	resp, body := post(t, ts.URL+"/forms/employee/validate", `{"values": [`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "INVALID_BODY")
}

func TestCheckDocument(t *testing.T) {
	ts := newTestServer(t)

	resp, body := post(t, ts.URL+"/forms/check", testsupport.EmployeeForm)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Contains(t, string(body), `"valid":true`)

	broken := `{"version": "2.0", "formId": "x", "settings": {"layoutMode": "flow"},
		"sections": [{"id": "main", "fields": [{"id": "code", "widgetType": "text_input",
		"validation": [{"rule": "pattern", "value": "["}]}]}]}`
	resp, body = post(t, ts.URL+"/forms/check", broken)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, string(body))

	var res validation.DocumentResult
	require.NoError(t, json.Unmarshal(body, &res))
	require.Len(t, res.Issues, 1)
	assert.Equal(t, "sections[0].fields[0].validation[0].value", res.Issues[0].Path)
	assert.Equal(t, "code", res.Issues[0].Field)
}
