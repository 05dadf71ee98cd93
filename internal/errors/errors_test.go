package errors

import (
	"bytes"
	stderrors "errors"
	"fmt"
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
			name:    "unresolved token",
			code:    CodeUnresolvedToken,
			wantMsg: "Unresolved path pattern token",
			wantCat: CategoryPattern,
		},
		{
			name:    "asset conflict",
			code:    CodeAssetConflict,
			wantMsg: "Conflicting assets for the same path",
			wantCat: CategoryAsset,
		},
		{
			name:    "config error",
			code:    CodeInvalidConfig,
			wantMsg: "Invalid assetkit.json",
			wantCat: CategoryConfig,
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
	err := Newf(CategoryCLI, "file %q not found", "site.css")
	if err.Message != `file "site.css" not found` {
		t.Errorf("Message = %q, want %q", err.Message, `file "site.css" not found`)
	}
	if err.Category != CategoryCLI {
		t.Errorf("Category = %q, want %q", err.Category, CategoryCLI)
	}
}

func TestError_Error(t *testing.T) {
	err := New(CodeMissingAsset)
	if got, want := err.Error(), "E203: Referenced asset not found"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	err.WithDetail("site.js.gz")
	if got, want := err.Error(), "E203: Referenced asset not found: site.js.gz"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	plain := &Error{Message: "test error"}
	if plain.Error() != "test error" {
		t.Errorf("Error() = %q, want %q", plain.Error(), "test error")
	}
}

func TestError_Meta(t *testing.T) {
	err := New(CodeUnresolvedToken).
		WithMeta("token", "fingerprint").
		WithMeta("pattern", "site#[.{fingerprint}].css")

	if v, ok := err.Get("token"); !ok || v != "fingerprint" {
		t.Errorf("Get(token) = %q, %v", v, ok)
	}
	if _, ok := err.Get("missing"); ok {
		t.Error("Get(missing) should report false")
	}
	if len(err.Meta) != 2 || err.Meta[1].Key != "pattern" {
		t.Errorf("Meta order not preserved: %+v", err.Meta)
	}
}

func TestError_Wrap(t *testing.T) {
	inner := stderrors.New("disk full")
	outer := New(CodeBuildFailed).Wrap(inner)

	if outer.Unwrap() != inner {
		t.Error("Unwrap() should return wrapped error")
	}
	if !stderrors.Is(outer, inner) {
		t.Error("errors.Is should see the wrapped error")
	}
	if !strings.Contains(outer.Error(), "disk full") {
		t.Errorf("Error() = %q, should mention cause", outer.Error())
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil, CodeBuildFailed) != nil {
		t.Error("FromError(nil, ...) should return nil")
	}

	e := New(CodeAssetConflict)
	if FromError(e, CodeBuildFailed) != e {
		t.Error("FromError should return *Error as-is")
	}

	wrapped := fmt.Errorf("resolving: %w", e)
	if FromError(wrapped, CodeBuildFailed) != e {
		t.Error("FromError should find *Error in the chain")
	}

	std := stderrors.New("boom")
	if got := FromError(std, CodeBuildFailed); got.Wrapped != std || got.Code != CodeBuildFailed {
		t.Errorf("FromError(std) = %+v", got)
	}
}

func TestHasCode(t *testing.T) {
	inner := New(CodeUnresolvedToken)
	outer := New(CodeBuildFailed).Wrap(fmt.Errorf("asset: %w", inner))

	if !HasCode(outer, CodeBuildFailed) {
		t.Error("HasCode should match the outer code")
	}
	if !HasCode(outer, CodeUnresolvedToken) {
		t.Error("HasCode should match a nested code")
	}
	if HasCode(outer, CodeAssetConflict) {
		t.Error("HasCode matched an absent code")
	}
	if HasCode(stderrors.New("plain"), CodeBuildFailed) {
		t.Error("HasCode matched a plain error")
	}
}

func TestFormat(t *testing.T) {
	SetColor(false)
	defer SetColor(true)

	err := New(CodeUnresolvedToken).
		WithMeta("token", "fingerprint").
		WithMeta("pattern", "site#[.{fingerprint}].css").
		WithDetail("the token has no value and no default").
		WithSuggestion("Make the group optional with '?'")

	formatted := err.Format()

	for _, want := range []string{
		"ERROR E201: Unresolved path pattern token",
		"token:   fingerprint",
		"pattern: site#[.{fingerprint}].css",
		"Hint: Make the group optional",
		"Learn more: " + docBase + "E201",
	} {
		if !strings.Contains(formatted, want) {
			t.Errorf("Format() missing %q in:\n%s", want, formatted)
		}
	}
}

func TestFormatCompact(t *testing.T) {
	err := New(CodeMissingAsset).WithMeta("route", "site.css")
	want := `E203: Referenced asset not found route="site.css"`
	if got := err.FormatCompact(); got != want {
		t.Errorf("FormatCompact() = %q, want %q", got, want)
	}
}

func TestFormatJSON(t *testing.T) {
	err := New(CodeAssetConflict).WithMeta("path", "candidate.js")
	json := err.FormatJSON()

	for _, want := range []string{
		`"code":"E202"`,
		`"category":"asset"`,
		`"message":"Conflicting assets for the same path"`,
		`"meta":{"path":"candidate.js"}`,
	} {
		if !strings.Contains(json, want) {
			t.Errorf("FormatJSON() missing %s in %s", want, json)
		}
	}
}

func TestFprint(t *testing.T) {
	SetColor(false)
	defer SetColor(true)

	var buf bytes.Buffer
	Fprint(&buf, stderrors.New("plain failure"))
	if !strings.Contains(buf.String(), "ERROR: plain failure") {
		t.Errorf("Fprint(plain) = %q", buf.String())
	}

	buf.Reset()
	Fprint(&buf, fmt.Errorf("wrapped: %w", New(CodeBuildFailed)))
	if !strings.Contains(buf.String(), "ERROR E142: Build failed") {
		t.Errorf("Fprint(wrapped) = %q", buf.String())
	}
}

func TestGetAllCodes(t *testing.T) {
	codes := GetAllCodes()
	found := false
	for _, code := range codes {
		if code == CodeUnresolvedToken {
			found = true
			break
		}
	}
	if !found {
		t.Error("E201 should be in the codes list")
	}
}

func TestRegister(t *testing.T) {
	Register("E999", ErrorTemplate{
		Category: CategoryCLI,
		Message:  "Custom test error",
		DocURL:   "https://test.dev/E999",
	})
	defer delete(registry, "E999")

	if _, ok := GetTemplate("E999"); !ok {
		t.Fatal("E999 should be registered")
	}
	if err := New("E999"); err.Message != "Custom test error" {
		t.Errorf("Message = %q, want %q", err.Message, "Custom test error")
	}
}

func TestWrapText(t *testing.T) {
	got := wrapText("short text", 100)
	if len(got) != 1 || got[0] != "short text" {
		t.Errorf("wrapText short text: got %v", got)
	}

	got = wrapText("this is a longer text that should be wrapped", 20)
	if len(got) != 3 {
		t.Errorf("wrapText long text: expected 3 lines, got %d: %v", len(got), got)
	}

	if got := wrapText("", 10); len(got) != 0 {
		t.Errorf("wrapText empty: expected empty, got %v", got)
	}
}

func TestSetColor(t *testing.T) {
	SetColor(true)
	if got := paint(styleError, "x"); got != "\033[1;31mx\033[0m" {
		t.Errorf("paint with color = %q", got)
	}

	SetColor(false)
	defer SetColor(true)
	if got := paint(styleError, "x"); got != "x" {
		t.Errorf("paint without color = %q", got)
	}
}

func TestFormatJSON_Cause(t *testing.T) {
	err := New(CodePublishFailed).
		WithMeta("key", "a.css").
		WithMeta("key", "b.css").
		Wrap(stderrors.New("access denied"))
	json := err.FormatJSON()

	for _, want := range []string{`"cause":"access denied"`, `"meta":{"key":"a.css"}`} {
		if !strings.Contains(json, want) {
			t.Errorf("FormatJSON() missing %s in %s", want, json)
		}
	}
}
