package common

import (
	"errors"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
)

type sampleRequest struct {
	Text  string `validate:"required"`
	Count int    `validate:"min=0,max=10"`
}

func TestGenericEchoValidator(t *testing.T) {
	v := &GenericEchoValidator{}

	if err := v.Validate(&sampleRequest{Text: "hello", Count: 3}); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}

	err := v.Validate(&sampleRequest{Count: 3})
	if err == nil {
		t.Fatal("expected error for missing text")
	}
	var httpErr *echo.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected *echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", httpErr.Code)
	}
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name    string
		input   sampleRequest
		wantErr bool
	}{
		{name: "valid", input: sampleRequest{Text: "x", Count: 10}},
		{name: "missing text", input: sampleRequest{Count: 1}, wantErr: true},
		{name: "count too large", input: sampleRequest{Text: "x", Count: 11}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(&tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateStruct() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
