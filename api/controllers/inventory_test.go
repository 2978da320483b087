package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/sportshub-backend/internal/inventory"
	"github.com/angelmondragon/sportshub-backend/internal/rentals"
	"github.com/angelmondragon/sportshub-backend/pkg/db/models"
)

type stubInventoryService struct {
	created  inventory.CreateItemInput
	adjusted *int
}

func (s *stubInventoryService) Create(_ context.Context, input inventory.CreateItemInput) (*models.InventoryItem, error) {
	s.created = input
	return &models.InventoryItem{Entity: models.NewEntity()}, nil
}

func (s *stubInventoryService) AdjustQuantity(_ context.Context, id uuid.UUID, qty int) (*models.InventoryItem, error) {
	s.adjusted = &qty
	return &models.InventoryItem{Entity: models.Entity{ID: id}}, nil
}

func (s *stubInventoryService) Deactivate(context.Context, uuid.UUID) error { return nil }

func (s *stubInventoryService) Get(_ context.Context, id uuid.UUID) (*models.InventoryItem, error) {
	return &models.InventoryItem{Entity: models.Entity{ID: id}}, nil
}

type stubAvailability struct {
	req rentals.AvailabilityRequest
}

func (s *stubAvailability) CheckAvailability(_ context.Context, req rentals.AvailabilityRequest) (rentals.Availability, error) {
	s.req = req
	return rentals.Availability{InventoryItemID: req.InventoryItemID, IsAvailable: true, AvailableQty: 3}, nil
}

func TestCreateInventoryItemParsesRentalPricing(t *testing.T) {
	svc := &stubInventoryService{}
	body := `{"productId":"` + uuid.NewString() + `","storeId":"` + uuid.NewString() + `","unitType":"RENTAL","quantity":4,"price":"0","pricePerDay":"25.00","minRentalDays":1,"maxRentalDays":14}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/inventory", strings.NewReader(body))
	resp := httptest.NewRecorder()

	CreateInventoryItem(svc, testLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d (%s)", resp.Code, resp.Body.String())
	}
	if svc.created.PricePerDay == nil || svc.created.PricePerDay.StringFixed(2) != "25.00" {
		t.Fatalf("unexpected price per day %v", svc.created.PricePerDay)
	}
	if svc.created.UnitType != "RENTAL" || svc.created.Quantity != 4 {
		t.Fatalf("unexpected input %+v", svc.created)
	}
}

func TestCreateInventoryItemRejectsUnknownUnitType(t *testing.T) {
	body := `{"productId":"` + uuid.NewString() + `","storeId":"` + uuid.NewString() + `","unitType":"LEASE","quantity":1,"price":"10"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/inventory", strings.NewReader(body))
	resp := httptest.NewRecorder()

	CreateInventoryItem(&stubInventoryService{}, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAdjustInventoryQuantityRequiresQuantity(t *testing.T) {
	svc := &stubInventoryService{}
	id := uuid.NewString()
	req := httptest.NewRequest(http.MethodPut, "/api/v1/inventory/"+id+"/quantity", strings.NewReader(`{}`))
	req = addRouteParam(req, "itemId", id)
	resp := httptest.NewRecorder()

	AdjustInventoryQuantity(svc, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if svc.adjusted != nil {
		t.Fatal("service must not be called without a quantity")
	}
}

func TestAdjustInventoryQuantityAcceptsZero(t *testing.T) {
	svc := &stubInventoryService{}
	id := uuid.NewString()
	req := httptest.NewRequest(http.MethodPut, "/api/v1/inventory/"+id+"/quantity", strings.NewReader(`{"quantity":0}`))
	req = addRouteParam(req, "itemId", id)
	resp := httptest.NewRecorder()

	AdjustInventoryQuantity(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", resp.Code, resp.Body.String())
	}
	if svc.adjusted == nil || *svc.adjusted != 0 {
		t.Fatalf("unexpected adjusted value %v", svc.adjusted)
	}
}

func TestInventoryAvailabilityQuery(t *testing.T) {
	svc := &stubAvailability{}
	id := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/inventory/"+id.String()+"/availability?start=2025-09-01&end=2025-09-05&qty=2", nil)
	req = addRouteParam(req, "itemId", id.String())
	resp := httptest.NewRecorder()

	InventoryAvailability(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", resp.Code, resp.Body.String())
	}
	if svc.req.InventoryItemID != id || svc.req.Quantity != 2 {
		t.Fatalf("unexpected request %+v", svc.req)
	}
}

func TestInventoryAvailabilityRejectsMissingEnd(t *testing.T) {
	id := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/inventory/"+id+"/availability?start=2025-09-01", nil)
	req = addRouteParam(req, "itemId", id)
	resp := httptest.NewRecorder()

	InventoryAvailability(&stubAvailability{}, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
