package store_test

import (
	"errors"
	"math"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/derickschaefer/stockcast/internal/model"
	"github.com/derickschaefer/stockcast/internal/store"
)

// ─── Helpers ──────────────────────────────────────────────────────────────────

// testDB opens a fresh isolated database in t.TempDir().
// It is closed and deleted automatically when the test ends.
func testDB(t *testing.T) *store.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := store.Open(path)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

var day0 = time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)

// makeSales builds consecutive daily observations starting at day0+offset.
func makeSales(offset int, values ...float64) []model.SalesObservation {
	out := make([]model.SalesObservation, len(values))
	for i, v := range values {
		out[i] = model.SalesObservation{Date: day0.AddDate(0, 0, offset+i), Quantity: v}
	}
	return out
}

func quantities(obs []model.SalesObservation) []float64 {
	out := make([]float64, len(obs))
	for i, o := range obs {
		out[i] = o.Quantity
	}
	return out
}

func equalFloats(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ─── Open / Path ──────────────────────────────────────────────────────────────

func TestOpenCreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "c", "test.db")
	s, err := store.Open(path)
	if err != nil {
		t.Fatalf("Open with nested path: %v", err)
	}
	defer s.Close()
	if s.Path() != path {
		t.Errorf("Path: expected %q, got %q", path, s.Path())
	}
}

func TestReopenPreservesData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := store.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.PutProduct(model.Product{ID: "sku-1", CurrentStock: 4}); err != nil {
		t.Fatalf("PutProduct: %v", err)
	}
	_ = s.Close()

	s2, err := store.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	p, err := s2.GetProduct("sku-1")
	if err != nil {
		t.Fatalf("GetProduct after reopen: %v", err)
	}
	if p.CurrentStock != 4 {
		t.Errorf("CurrentStock: expected 4, got %d", p.CurrentStock)
	}
}

// ─── Products ─────────────────────────────────────────────────────────────────

func TestProductRoundTrip(t *testing.T) {
	s := testDB(t)
	in := model.Product{ID: "sku-1", Title: "Mug", CurrentStock: 12, LeadTimeDays: 5}
	if err := s.PutProduct(in); err != nil {
		t.Fatalf("PutProduct: %v", err)
	}
	got, err := s.GetProduct("sku-1")
	if err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
	if got.Title != "Mug" || got.CurrentStock != 12 || got.LeadTimeDays != 5 {
		t.Errorf("unexpected product: %+v", got)
	}
	if got.UpdatedAt.IsZero() {
		t.Error("UpdatedAt should be stamped")
	}
}

func TestGetProductNotFound(t *testing.T) {
	s := testDB(t)
	_, err := s.GetProduct("nope")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPutProductRequiresID(t *testing.T) {
	s := testDB(t)
	if err := s.PutProduct(model.Product{}); err == nil {
		t.Error("expected error for empty ID")
	}
}

func TestListProductsSorted(t *testing.T) {
	s := testDB(t)
	for _, id := range []string{"c", "a", "b"} {
		if err := s.PutProduct(model.Product{ID: id}); err != nil {
			t.Fatal(err)
		}
	}
	got, err := s.ListProducts()
	if err != nil {
		t.Fatalf("ListProducts: %v", err)
	}
	if len(got) != 3 || got[0].ID != "a" || got[2].ID != "c" {
		t.Errorf("unexpected order: %+v", got)
	}
}

func TestDeleteProductRemovesSales(t *testing.T) {
	s := testDB(t)
	_ = s.PutProduct(model.Product{ID: "sku-1"})
	_ = s.PutSales("sku-1", makeSales(0, 1, 2))

	if err := s.DeleteProduct("sku-1"); err != nil {
		t.Fatalf("DeleteProduct: %v", err)
	}
	if _, err := s.GetSales("sku-1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("sales should be gone, got %v", err)
	}
	if err := s.DeleteProduct("sku-1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("second delete should be ErrNotFound, got %v", err)
	}
}

// ─── Sales ────────────────────────────────────────────────────────────────────

func TestPutSalesSortsAndReplaces(t *testing.T) {
	s := testDB(t)
	in := makeSales(0, 1, 2, 3)
	in[0], in[2] = in[2], in[0]
	if err := s.PutSales("sku-1", in); err != nil {
		t.Fatalf("PutSales: %v", err)
	}
	got, err := s.GetSales("sku-1")
	if err != nil {
		t.Fatalf("GetSales: %v", err)
	}
	if !equalFloats(quantities(got), []float64{1, 2, 3}) {
		t.Errorf("got %v, want [1 2 3]", quantities(got))
	}

	if err := s.PutSales("sku-1", makeSales(10, 9)); err != nil {
		t.Fatalf("PutSales replace: %v", err)
	}
	got, _ = s.GetSales("sku-1")
	if !equalFloats(quantities(got), []float64{9}) {
		t.Errorf("PutSales should replace history, got %v", quantities(got))
	}
}

func TestAppendSalesLaterWriteWins(t *testing.T) {
	s := testDB(t)
	if _, err := s.AppendSales("sku-1", makeSales(0, 1, 2, 3)); err != nil {
		t.Fatalf("AppendSales: %v", err)
	}
	n, err := s.AppendSales("sku-1", makeSales(2, 30, 4))
	if err != nil {
		t.Fatalf("AppendSales: %v", err)
	}
	if n != 4 {
		t.Errorf("merged length: expected 4, got %d", n)
	}
	got, _ := s.GetSales("sku-1")
	if !equalFloats(quantities(got), []float64{1, 2, 30, 4}) {
		t.Errorf("got %v, want [1 2 30 4]", quantities(got))
	}
}

func TestAppendSalesKeepsUndatedLast(t *testing.T) {
	s := testDB(t)
	undated := []model.SalesObservation{{Quantity: 7}, {Quantity: 8}}
	if _, err := s.AppendSales("sku-1", undated); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AppendSales("sku-1", makeSales(0, 1)); err != nil {
		t.Fatal(err)
	}
	got, _ := s.GetSales("sku-1")
	if !equalFloats(quantities(got), []float64{1, 7, 8}) {
		t.Errorf("got %v, want [1 7 8]", quantities(got))
	}
	if !got[1].IsUndated() {
		t.Error("undated observation should stay undated after a round trip")
	}
}

func TestPutSalesRejectsNonFinite(t *testing.T) {
	s := testDB(t)
	err := s.PutSales("sku-1", makeSales(0, 1, math.NaN()))
	if err == nil || !strings.Contains(err.Error(), "non-finite") {
		t.Errorf("expected non-finite error, got %v", err)
	}
}

func TestListSalesProducts(t *testing.T) {
	s := testDB(t)
	_ = s.PutSales("b", makeSales(0, 1))
	_ = s.PutSales("a", makeSales(0, 1))
	ids, err := s.ListSalesProducts()
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(ids, ",") != "a,b" {
		t.Errorf("got %v, want [a b]", ids)
	}
}

// ─── Plans ────────────────────────────────────────────────────────────────────

func TestPlanKeyFormat(t *testing.T) {
	at := time.Date(2025, 1, 2, 3, 4, 5, 6, time.UTC)
	got := store.PlanKey("sku-1", at, "run")
	want := "plan:sku-1:2025-01-02T03:04:05.000000006Z:run"
	if got != want {
		t.Errorf("PlanKey = %q, want %q", got, want)
	}
}

func TestListPlansNewestFirst(t *testing.T) {
	s := testDB(t)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"r1", "r2", "r3"} {
		run := model.PlanRun{ID: id, ProductID: "sku-1", GeneratedAt: base.Add(time.Duration(i) * 1500 * time.Millisecond)}
		if err := s.PutPlan(run); err != nil {
			t.Fatalf("PutPlan: %v", err)
		}
	}
	_ = s.PutPlan(model.PlanRun{ID: "other", ProductID: "sku-10", GeneratedAt: base})

	runs, err := s.ListPlans("sku-1", 0)
	if err != nil {
		t.Fatalf("ListPlans: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs for sku-1, got %d", len(runs))
	}
	if runs[0].ID != "r3" || runs[2].ID != "r1" {
		t.Errorf("expected newest first, got %s..%s", runs[0].ID, runs[2].ID)
	}

	limited, _ := s.ListPlans("sku-1", 2)
	if len(limited) != 2 || limited[0].ID != "r3" {
		t.Errorf("limit 2: got %+v", limited)
	}
}

func TestPutPlanRequiresIDs(t *testing.T) {
	s := testDB(t)
	if err := s.PutPlan(model.PlanRun{ProductID: "x"}); err == nil {
		t.Error("expected error for missing run ID")
	}
}

// ─── Stats & Maintenance ──────────────────────────────────────────────────────

func TestStatsCounts(t *testing.T) {
	s := testDB(t)
	_ = s.PutProduct(model.Product{ID: "a"})
	_ = s.PutProduct(model.Product{ID: "b"})
	_ = s.PutSales("a", makeSales(0, 1, 2))

	stats, err := s.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if len(stats) != len(store.AllBuckets) {
		t.Fatalf("expected %d buckets, got %d", len(store.AllBuckets), len(stats))
	}
	counts := map[string]int{}
	for _, b := range stats {
		counts[b.Name] = b.Count
		if b.Count > 0 && b.Bytes == 0 {
			t.Errorf("bucket %s: non-empty bucket should report bytes", b.Name)
		}
	}
	if counts["products"] != 2 || counts["sales"] != 1 || counts["plans"] != 0 {
		t.Errorf("unexpected counts: %v", counts)
	}
}

func TestClearBucket(t *testing.T) {
	s := testDB(t)
	_ = s.PutProduct(model.Product{ID: "a"})
	_ = s.PutSales("a", makeSales(0, 1))

	if err := s.ClearBucket("sales"); err != nil {
		t.Fatalf("ClearBucket: %v", err)
	}
	if _, err := s.GetSales("a"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("sales should be cleared, got %v", err)
	}
	if _, err := s.GetProduct("a"); err != nil {
		t.Errorf("products should survive: %v", err)
	}
	if err := s.ClearBucket("_meta"); err == nil {
		t.Error("clearing _meta should be refused")
	}
}

func TestClearAll(t *testing.T) {
	s := testDB(t)
	_ = s.PutProduct(model.Product{ID: "a"})
	_ = s.PutPlan(model.PlanRun{ID: "r", ProductID: "a", GeneratedAt: day0})

	if err := s.ClearAll(); err != nil {
		t.Fatalf("ClearAll: %v", err)
	}
	stats, _ := s.Stats()
	for _, b := range stats {
		if b.Count != 0 {
			t.Errorf("bucket %s: expected empty, got %d", b.Name, b.Count)
		}
	}
}
