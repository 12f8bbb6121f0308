package importer_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-iform/pkg/importer"
	"github.com/goliatone/go-iform/pkg/schema"
)

const employeesAPI = `{
  "openapi": "3.0.3",
  "info": {"title": "HR", "version": "1.0.0"},
  "paths": {
    "/employees": {
      "post": {
        "operationId": "createEmployee",
        "summary": "New employee",
        "x-iform-table": "employees",
        "requestBody": {
          "content": {
            "application/json": {
              "schema": {"$ref": "#/components/schemas/Employee"}
            }
          }
        },
        "responses": {"201": {"description": "created"}}
      },
      "get": {
        "operationId": "listEmployees",
        "responses": {"200": {"description": "ok"}}
      }
    }
  },
  "components": {
    "schemas": {
      "Employee": {
        "type": "object",
        "required": ["code", "full_name", "status"],
        "properties": {
          "code": {"type": "string", "pattern": "^EMP-\\d{4}$", "minLength": 8, "x-iform-label-ar": "رقم الموظف"},
          "full_name": {"type": "string", "maxLength": 60},
          "status": {"type": "string", "enum": ["active", "suspended"]},
          "email": {"type": "string", "format": "email"},
          "hired_on": {"type": "string", "format": "date"},
          "bio": {"type": "string", "maxLength": 1000},
          "team_size": {"type": "integer", "minimum": 1, "maximum": 500},
          "is_manager": {"type": "boolean", "description": "Leads a team"},
          "address": {"type": "object", "properties": {"city": {"type": "string"}}}
        }
      }
    }
  }
}`

type placed struct {
	ID     string
	Kind   schema.WidgetType
	Row    int
	Col    int
	Span   int
	Column string
}

func TestImport_MapsRequestSchema(t *testing.T) {
	def, err := importer.New(importer.WithDirection(schema.DirectionLTR)).Import(context.Background(), []byte(employeesAPI), "createEmployee")
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if def.FormID != "create_employee" || def.NameEn != "New employee" || def.TargetTable != "employees" {
		t.Fatalf("header = %q %q %q", def.FormID, def.NameEn, def.TargetTable)
	}

	var got []placed
	for _, f := range def.Sections[0].Fields {
		got = append(got, placed{f.ID, f.WidgetType, f.Layout.Row, f.Layout.Col, f.Layout.Colspan, f.DataBinding.Column})
	}
	want := []placed{
		{"code", schema.WidgetTextInput, 0, 0, 1, "code"},
		{"full_name", schema.WidgetTextInput, 0, 1, 1, "full_name"},
		{"status", schema.WidgetComboBox, 1, 0, 1, "status"},
		{"bio", schema.WidgetTextArea, 2, 0, 2, "bio"},
		{"email", schema.WidgetTextInput, 3, 0, 1, "email"},
		{"hired_on", schema.WidgetDatePicker, 3, 1, 1, "hired_on"},
		{"is_manager", schema.WidgetCheckbox, 4, 0, 1, "is_manager"},
		{"team_size", schema.WidgetNumberInput, 4, 1, 1, "team_size"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("fields (-want +got):\n%s", diff)
	}

	code := def.FieldByID("code")
	wantRules := []schema.ValidationRule{
		{Rule: schema.RuleRequired},
		{Rule: schema.RuleMinLength, Value: 8},
		{Rule: schema.RulePattern, Value: `^EMP-\d{4}$`},
	}
	if diff := cmp.Diff(wantRules, code.Validation); diff != "" {
		t.Fatalf("code rules (-want +got):\n%s", diff)
	}
	if code.LabelAr != "رقم الموظف" || code.LabelEn != "Code" {
		t.Fatalf("code labels = %q / %q", code.LabelAr, code.LabelEn)
	}

	status := def.FieldByID("status")
	if status.ComboSource == nil || len(status.ComboSource.Items) != 2 || status.ComboSource.Items[1].Value != "suspended" {
		t.Fatalf("status source = %+v", status.ComboSource)
	}
	if status.ComboSource.AllowEmpty {
		t.Fatalf("required enum must not allow empty")
	}

	if !def.FieldByID("email").HasRule(schema.RuleEmail) {
		t.Fatalf("email rule missing")
	}
	team := def.FieldByID("team_size")
	if !team.HasRule(schema.RuleMinValue) || !team.HasRule(schema.RuleMaxValue) {
		t.Fatalf("team_size rules = %+v", team.Validation)
	}
	if def.FieldByID("is_manager").TooltipEn != "Leads a team" {
		t.Fatalf("description not carried to tooltip")
	}
	if def.FieldByID("full_name").LabelEn != "Full Name" {
		t.Fatalf("full_name label = %q", def.FieldByID("full_name").LabelEn)
	}
	if def.FieldByID("address") != nil {
		t.Fatalf("object property should be skipped")
	}
}

func TestImport_RoundTripsThroughParser(t *testing.T) {
	def, err := importer.New().Import(context.Background(), []byte(employeesAPI), "")
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	data, err := schema.Marshal(def)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if _, err := schema.Parse(data); err != nil {
		t.Fatalf("imported form does not parse: %v", err)
	}
	if def.Settings.Direction != schema.DirectionRTL {
		t.Fatalf("direction = %q, want the default", def.Settings.Direction)
	}
}

func TestImport_OperationSelection(t *testing.T) {
	im := importer.New()
	ctx := context.Background()

	if _, err := im.Import(ctx, []byte(employeesAPI), "missing"); !errors.Is(err, importer.ErrNoOperation) {
		t.Fatalf("err = %v, want ErrNoOperation", err)
	}
	if _, err := im.Import(ctx, []byte(employeesAPI), "listEmployees"); !errors.Is(err, importer.ErrNoOperation) {
		t.Fatalf("operation without a body: err = %v", err)
	}

	ops, err := im.Operations(ctx, []byte(employeesAPI))
	if err != nil {
		t.Fatalf("operations: %v", err)
	}
	want := []importer.Operation{{ID: "createEmployee", Method: "POST", Path: "/employees", Summary: "New employee"}}
	if diff := cmp.Diff(want, ops); diff != "" {
		t.Fatalf("operations (-want +got):\n%s", diff)
	}
}

func TestImport_AmbiguousWithoutID(t *testing.T) {
	const doc = `{
  "openapi": "3.0.3",
  "info": {"title": "x", "version": "1"},
  "paths": {
    "/a": {"post": {"operationId": "a", "requestBody": {"content": {"application/json": {"schema": {"type": "object", "properties": {"n": {"type": "string"}}}}}}, "responses": {"200": {"description": "ok"}}}},
    "/b": {"put": {"operationId": "b", "requestBody": {"content": {"application/json": {"schema": {"type": "object", "properties": {"n": {"type": "string"}}}}}}, "responses": {"200": {"description": "ok"}}}}
  }
}`
	_, err := importer.New().Import(context.Background(), []byte(doc), "")
	if !errors.Is(err, importer.ErrAmbiguous) {
		t.Fatalf("err = %v, want ErrAmbiguous", err)
	}
}

func TestFetch_Sources(t *testing.T) {
	ctx := context.Background()
	files := fstest.MapFS{"api/hr.json": {Data: []byte(employeesAPI)}}
	data, err := importer.Fetch(ctx, "api/hr.json", files, nil)
	if err != nil || string(data) != employeesAPI {
		t.Fatalf("fs fetch: %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/openapi.json" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(employeesAPI))
	}))
	defer srv.Close()

	if _, err := importer.Fetch(ctx, srv.URL+"/openapi.json", nil, nil); err == nil {
		t.Fatalf("http fetch without a client should fail")
	}
	data, err = importer.Fetch(ctx, srv.URL+"/openapi.json", nil, srv.Client())
	if err != nil || len(data) != len(employeesAPI) {
		t.Fatalf("http fetch: %v", err)
	}
	if _, err := importer.Fetch(ctx, srv.URL+"/missing", nil, srv.Client()); err == nil {
		t.Fatalf("404 should fail")
	}
}
