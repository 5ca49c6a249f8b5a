package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	pkgerrors "github.com/angelmondragon/cartsync/pkg/errors"
)

type addPayload struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required"`
}

func TestDecodeJSONBodyAcceptsValidPayload(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"product_id":"P1","quantity":2}`))
	var dest addPayload
	if err := DecodeJSONBody(req, &dest); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dest.ProductID != "P1" || dest.Quantity != 2 {
		t.Fatalf("unexpected payload %+v", dest)
	}
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"product_id":"P1","quantity":2,"price":1}`))
	var dest addPayload
	if err := DecodeJSONBody(req, &dest); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDecodeJSONBodyRejectsEmptyBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	var dest addPayload
	err := DecodeJSONBody(req, &dest)
	if pkgerrors.UserMessage(err) != "request body is required" {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestDecodeJSONBodyReportsFieldErrors(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"quantity":2}`))
	var dest addPayload
	err := DecodeJSONBody(req, &dest)
	typed := pkgerrors.As(err)
	if typed == nil {
		t.Fatalf("expected typed error, got %v", err)
	}
	details, ok := typed.Details().(map[string]string)
	if !ok || details["product_id"] != "is required" {
		t.Fatalf("unexpected details %v", typed.Details())
	}
}

func TestPathParam(t *testing.T) {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("lineId", " L1 ")
	req := httptest.NewRequest(http.MethodDelete, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	got, err := PathParam(req, "lineId")
	if err != nil || got != "L1" {
		t.Fatalf("expected L1, got %q (%v)", got, err)
	}
	if _, err := PathParam(req, "missing"); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
