package errors

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantMsg string
		wantCat Category
	}{
		{
			name:    "config error",
			code:    "E101",
			wantMsg: "Scenario file is not valid YAML",
			wantCat: CategoryConfig,
		},
		{
			name:    "scenario error",
			code:    "E121",
			wantMsg: "Unknown binding protocol",
			wantCat: CategoryScenario,
		},
		{
			name:    "mutation error",
			code:    "E140",
			wantMsg: "Step failed",
			wantCat: CategoryMutation,
		},
		{
			name:    "devtools error",
			code:    "E160",
			wantMsg: "Devtools server failed",
			wantCat: CategoryDevtools,
		},
		{
			name:    "unknown error code",
			code:    "E999",
			wantMsg: "Unknown error",
			wantCat: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code)
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
			if err.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", err.Category, tt.wantCat)
			}
			if err.Code != tt.code {
				t.Errorf("Code = %q, want %q", err.Code, tt.code)
			}
		})
	}
}

func TestNewf(t *testing.T) {
	err := Newf(CategoryCLI, "file %q not found", "vstore.yaml")
	if err.Message != `file "vstore.yaml" not found` {
		t.Errorf("Message = %q", err.Message)
	}
	if err.Category != CategoryCLI {
		t.Errorf("Category = %q, want %q", err.Category, CategoryCLI)
	}
}

func TestError_Error(t *testing.T) {
	err := New("E121")
	if got, want := err.Error(), "E121: Unknown binding protocol: "+err.Detail; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	err2 := &Error{Message: "test error"}
	if err2.Error() != "test error" {
		t.Errorf("Error() = %q, want %q", err2.Error(), "test error")
	}
}

func writeScenario(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vstore.yaml")
	content := `name: cart
bindings:
  - name: cart
    protocol: eager
    reads: [items]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestError_WithLocation(t *testing.T) {
	path := writeScenario(t)
	err := New("E121").WithLocation(path, 4, 15)

	if err.Location == nil {
		t.Fatal("Location is nil")
	}
	if err.Location.Line != 4 || err.Location.Column != 15 {
		t.Errorf("Location = %v, want line 4 column 15", err.Location)
	}
	if len(err.Context) == 0 {
		t.Error("Context should not be empty")
	}
}

func TestError_WithLocationFromError(t *testing.T) {
	path := writeScenario(t)
	tests := []struct {
		name     string
		err      error
		wantLine int
		wantCol  int
	}{
		{"yaml position", stderrors.New("[4:15] unknown value"), 4, 15},
		{"no position", stderrors.New("unexpected EOF"), 0, 0},
		{"nil", nil, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New("E101").WithLocationFromError(path, tt.err)
			if tt.wantLine == 0 {
				if err.Location != nil {
					t.Errorf("Location = %v, want nil", err.Location)
				}
				return
			}
			if err.Location == nil {
				t.Fatal("Location is nil")
			}
			if err.Location.Line != tt.wantLine || err.Location.Column != tt.wantCol {
				t.Errorf("Location = %v", err.Location)
			}
		})
	}
}

func TestError_Builders(t *testing.T) {
	err := New("E123").
		WithSuggestion("Use a single operation").
		WithExample("- set: {path: $.a, value: 1}").
		WithDetailf("step %d has %d operations", 3, 2)

	if err.Suggestion != "Use a single operation" {
		t.Errorf("Suggestion = %q", err.Suggestion)
	}
	if err.Example != "- set: {path: $.a, value: 1}" {
		t.Errorf("Example = %q", err.Example)
	}
	if err.Detail != "step 3 has 2 operations" {
		t.Errorf("Detail = %q", err.Detail)
	}
}

func TestError_Wrap(t *testing.T) {
	inner := stderrors.New("boom")
	outer := New("E140").Wrap(inner)

	if outer.Unwrap() != inner {
		t.Error("Unwrap() should return wrapped error")
	}
	if !stderrors.Is(outer, inner) {
		t.Error("errors.Is should see the wrapped error")
	}
	var target *Error
	if !stderrors.As(outer, &target) || target.Code != "E140" {
		t.Error("errors.As should find *Error")
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil, "E140") != nil {
		t.Error("FromError(nil, ...) should return nil")
	}

	ve := New("E121")
	if FromError(ve, "E140") != ve {
		t.Error("FromError should return *Error as-is")
	}

	std := stderrors.New("path not found")
	got := FromError(std, "E140")
	if got.Wrapped != std {
		t.Error("standard error should be wrapped")
	}
	if got.Detail != "path not found" {
		t.Errorf("Detail = %q", got.Detail)
	}
}

func TestLocation_String(t *testing.T) {
	tests := []struct {
		name string
		loc  *Location
		want string
	}{
		{"nil location", nil, ""},
		{"with column", &Location{File: "vstore.yaml", Line: 10, Column: 5}, "vstore.yaml:10:5"},
		{"without column", &Location{File: "vstore.yaml", Line: 10}, "vstore.yaml:10"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.loc.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormat(t *testing.T) {
	DisableColors()
	defer EnableColors()

	path := writeScenario(t)
	err := New("E121").
		WithLocation(path, 4, 15).
		WithSuggestion("Use one of: immediate, synchronized, deferred")

	formatted := err.Format()
	for _, want := range []string{
		"E121",
		"Unknown binding protocol",
		"protocol: eager",
		"^",
		"Hint: Use one of",
		"Learn more:",
	} {
		if !strings.Contains(formatted, want) {
			t.Errorf("Format() missing %q:\n%s", want, formatted)
		}
	}
	if strings.Contains(formatted, "\x1b[") {
		t.Error("Format() should not contain escapes with colors disabled")
	}
}

func TestFormatCompact(t *testing.T) {
	err := &Error{
		Code:     "E122",
		Message:  "Invalid path",
		Location: &Location{File: "vstore.yaml", Line: 3, Column: 7},
	}
	if got, want := err.FormatCompact(), "vstore.yaml:3:7: E122: Invalid path"; got != want {
		t.Errorf("FormatCompact() = %q, want %q", got, want)
	}
}

func TestFprint(t *testing.T) {
	DisableColors()
	defer EnableColors()

	var b strings.Builder
	Fprint(&b, stderrors.New("plain"))
	if !strings.Contains(b.String(), "ERROR: plain") {
		t.Errorf("Fprint plain = %q", b.String())
	}

	b.Reset()
	Fprint(&b, New("E160"))
	if !strings.Contains(b.String(), "E160") {
		t.Errorf("Fprint coded = %q", b.String())
	}
}

func TestWrapText(t *testing.T) {
	lines := wrapText("one two three four five six", 10)
	for _, l := range lines {
		if len(l) > 10 {
			t.Errorf("line %q longer than 10", l)
		}
	}
	if strings.Join(lines, " ") != "one two three four five six" {
		t.Errorf("wrapText lost words: %v", lines)
	}
}

func TestGetAllCodes(t *testing.T) {
	codes := GetAllCodes()
	if len(codes) == 0 {
		t.Fatal("no codes registered")
	}
	for i := 1; i < len(codes); i++ {
		if codes[i-1] >= codes[i] {
			t.Errorf("codes not sorted: %v", codes)
		}
	}
	for _, code := range codes {
		tpl, ok := GetTemplate(code)
		if !ok || tpl.Message == "" || tpl.DocURL == "" {
			t.Errorf("template %s incomplete: %+v", code, tpl)
		}
	}
}

func TestRegister(t *testing.T) {
	Register("E998", ErrorTemplate{Category: CategoryCLI, Message: "Custom"})
	defer delete(registry, "E998")
	if New("E998").Message != "Custom" {
		t.Error("registered template not used")
	}
}
