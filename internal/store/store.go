// Package store provides a thin bbolt wrapper for stockcast's local data store.
//
// The store accumulates what the planner needs between runs: the product
// stock context, each product's sales history and every plan that was
// generated. Nothing expires; data is written explicitly by import and plan
// commands and read back by forecast and analysis commands.
//
// Buckets:
//
//	products — product stock context keyed by product ID
//	sales    — sales history envelope keyed by product ID
//	plans    — plan runs keyed plan:<productID>:<RFC3339Nano>:<runID>
//	_meta    — internal: schema version, created_at
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/derickschaefer/stockcast/internal/model"
)

// SchemaVersion is the store layout version. Bump when bucket layout or key format changes.
const SchemaVersion = 1

// ErrNotFound is returned when a product, history or plan is absent.
var ErrNotFound = errors.New("not found")

// Bucket name constants.
var (
	bucketProducts = []byte("products")
	bucketSales    = []byte("sales")
	bucketPlans    = []byte("plans")
	bucketInternal = []byte("_meta")
)

// AllBuckets lists every top-level bucket for stats and clear operations.
var AllBuckets = []string{"products", "sales", "plans"}

// Store wraps a bbolt database.
type Store struct {
	db  *bolt.DB
	now func() time.Time
}

// Open opens (or creates) the bbolt database at path.
// Parent directories are created automatically.
// Runs schema migrations on every open.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating db directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening db %s: %w", path, err)
	}

	s := &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the filesystem path of the open database.
func (s *Store) Path() string {
	return s.db.Path()
}

// ─── Migrations ───────────────────────────────────────────────────────────────

// migrate ensures all buckets exist and schema is current.
func (s *Store) migrate() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketProducts, bucketSales, bucketPlans, bucketInternal} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("creating bucket %s: %w", name, err)
			}
		}

		meta := tx.Bucket(bucketInternal)
		if v := meta.Get([]byte("schema_version")); v != nil {
			got, err := strconv.Atoi(string(v))
			if err != nil || got > SchemaVersion {
				return fmt.Errorf("unsupported schema version %q (this build supports %d)", v, SchemaVersion)
			}
			return nil
		}
		if err := meta.Put([]byte("schema_version"), []byte(strconv.Itoa(SchemaVersion))); err != nil {
			return err
		}
		return meta.Put([]byte("created_at"), []byte(s.now().Format(time.RFC3339)))
	})
}

// ─── Products ─────────────────────────────────────────────────────────────────

// PutProduct stores p, stamping UpdatedAt.
func (s *Store) PutProduct(p model.Product) error {
	if p.ID == "" {
		return errors.New("put product: empty product ID")
	}
	p.UpdatedAt = s.now()
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding product: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketProducts).Put([]byte(p.ID), data)
	})
}

// GetProduct retrieves a product by ID. Missing products yield ErrNotFound.
func (s *Store) GetProduct(id string) (model.Product, error) {
	var p model.Product
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketProducts).Get([]byte(id))
		if v == nil {
			return fmt.Errorf("product %s: %w", id, ErrNotFound)
		}
		return json.Unmarshal(v, &p)
	})
	return p, err
}

// ListProducts returns all stored products, sorted by ID.
func (s *Store) ListProducts() ([]model.Product, error) {
	var out []model.Product
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketProducts).ForEach(func(k, v []byte) error {
			var p model.Product
			if err := json.Unmarshal(v, &p); err != nil {
				return fmt.Errorf("decoding product %s: %w", k, err)
			}
			out = append(out, p)
			return nil
		})
	})
	return out, err
}

// DeleteProduct removes a product together with its sales history.
// Stored plans are kept as an audit trail.
func (s *Store) DeleteProduct(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketProducts)
		if b.Get([]byte(id)) == nil {
			return fmt.Errorf("product %s: %w", id, ErrNotFound)
		}
		if err := b.Delete([]byte(id)); err != nil {
			return err
		}
		return tx.Bucket(bucketSales).Delete([]byte(id))
	})
}

// ─── Sales History ────────────────────────────────────────────────────────────

// storedSales is the on-disk envelope for a product's sales history.
type storedSales struct {
	ProductID string                   `json:"product_id"`
	UpdatedAt time.Time                `json:"updated_at"`
	Obs       []model.SalesObservation `json:"observations"`
}

// PutSales replaces the stored history for productID.
// Quantities must be finite; encoding/json cannot carry NaN or Inf.
func (s *Store) PutSales(productID string, obs []model.SalesObservation) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return s.writeSales(tx, productID, obs)
	})
}

// AppendSales merges obs into the stored history. Dated observations replace
// any stored observation for the same timestamp (later write wins); undated
// observations are appended. It returns the merged history length.
func (s *Store) AppendSales(productID string, obs []model.SalesObservation) (int, error) {
	var n int
	err := s.db.Update(func(tx *bolt.Tx) error {
		existing, err := readSales(tx, productID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		merged := mergeSales(existing, obs)
		n = len(merged)
		return s.writeSales(tx, productID, merged)
	})
	return n, err
}

// GetSales returns the stored history for productID: dated observations in
// ascending date order, followed by undated ones in insertion order.
func (s *Store) GetSales(productID string) ([]model.SalesObservation, error) {
	var out []model.SalesObservation
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		out, err = readSales(tx, productID)
		return err
	})
	return out, err
}

// ListSalesProducts returns the IDs of every product with stored history.
func (s *Store) ListSalesProducts() ([]string, error) {
	var ids []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSales).ForEach(func(k, _ []byte) error {
			ids = append(ids, string(k))
			return nil
		})
	})
	return ids, err
}

func (s *Store) writeSales(tx *bolt.Tx, productID string, obs []model.SalesObservation) error {
	if productID == "" {
		return errors.New("put sales: empty product ID")
	}
	for i, o := range obs {
		if math.IsNaN(o.Quantity) || math.IsInf(o.Quantity, 0) {
			return fmt.Errorf("put sales %s: observation %d: non-finite quantity", productID, i)
		}
	}
	env := storedSales{ProductID: productID, UpdatedAt: s.now(), Obs: sortSales(obs)}
	b, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encoding sales: %w", err)
	}
	return tx.Bucket(bucketSales).Put([]byte(productID), b)
}

func readSales(tx *bolt.Tx, productID string) ([]model.SalesObservation, error) {
	v := tx.Bucket(bucketSales).Get([]byte(productID))
	if v == nil {
		return nil, fmt.Errorf("sales %s: %w", productID, ErrNotFound)
	}
	var env storedSales
	if err := json.Unmarshal(v, &env); err != nil {
		return nil, fmt.Errorf("decoding sales %s: %w", productID, err)
	}
	return env.Obs, nil
}

// sortSales returns a copy with dated rows ascending and undated rows last.
func sortSales(obs []model.SalesObservation) []model.SalesObservation {
	out := append([]model.SalesObservation(nil), obs...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.IsUndated() || b.IsUndated() {
			return !a.IsUndated() && b.IsUndated()
		}
		return a.Date.Before(b.Date)
	})
	return out
}

func mergeSales(existing, incoming []model.SalesObservation) []model.SalesObservation {
	byDate := make(map[time.Time]int, len(existing))
	out := make([]model.SalesObservation, 0, len(existing)+len(incoming))
	add := func(o model.SalesObservation) {
		if o.IsUndated() {
			out = append(out, o)
			return
		}
		key := o.Date.UTC()
		if i, ok := byDate[key]; ok {
			out[i] = o
			return
		}
		byDate[key] = len(out)
		out = append(out, o)
	}
	for _, o := range existing {
		add(o)
	}
	for _, o := range incoming {
		add(o)
	}
	return out
}

// ─── Plans ────────────────────────────────────────────────────────────────────

// PlanKey builds the key for a plan run.
// Format: plan:<productID>:<generated_at RFC3339Nano>:<runID>
func PlanKey(productID string, generatedAt time.Time, runID string) string {
	return "plan:" + productID + ":" + generatedAt.UTC().Format(time.RFC3339Nano) + ":" + runID
}

// PutPlan stores a plan run.
func (s *Store) PutPlan(run model.PlanRun) error {
	if run.ID == "" || run.ProductID == "" {
		return errors.New("put plan: run ID and product ID are required")
	}
	b, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("encoding plan: %w", err)
	}
	key := PlanKey(run.ProductID, run.GeneratedAt, run.ID)
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketPlans).Put([]byte(key), b)
	})
}

// ListPlans returns plan runs for productID, newest first. limit <= 0
// returns every run.
func (s *Store) ListPlans(productID string, limit int) ([]model.PlanRun, error) {
	prefix := []byte("plan:" + productID + ":")
	var runs []model.PlanRun
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketPlans).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var r model.PlanRun
			if err := json.Unmarshal(v, &r); err != nil {
				return fmt.Errorf("decoding plan %s: %w", k, err)
			}
			runs = append(runs, r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	// RFC3339Nano trims trailing zeros, so key order is not time order.
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].GeneratedAt.After(runs[j].GeneratedAt)
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// ─── Stats & Maintenance ──────────────────────────────────────────────────────

// BucketStats holds row count and byte size for a single bucket.
type BucketStats struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
	Bytes int64  `json:"bytes"`
}

// Stats returns row counts and approximate sizes for all buckets, in
// AllBuckets order.
func (s *Store) Stats() ([]BucketStats, error) {
	var stats []BucketStats
	err := s.db.View(func(tx *bolt.Tx) error {
		for _, name := range AllBuckets {
			b := tx.Bucket([]byte(name))
			if b == nil {
				continue
			}
			var count int
			var size int64
			if err := b.ForEach(func(k, v []byte) error {
				count++
				size += int64(len(k) + len(v))
				return nil
			}); err != nil {
				return err
			}
			stats = append(stats, BucketStats{Name: name, Count: count, Bytes: size})
		}
		return nil
	})
	return stats, err
}

// ClearBucket deletes all entries in the named bucket.
func (s *Store) ClearBucket(name string) error {
	known := false
	for _, b := range AllBuckets {
		known = known || b == name
	}
	if !known {
		return fmt.Errorf("clearing bucket %s: unknown bucket (use one of %v)", name, AllBuckets)
	}
	bname := []byte(name)
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bname); err != nil {
			return fmt.Errorf("clearing bucket %s: %w", name, err)
		}
		_, err := tx.CreateBucket(bname)
		return err
	})
}

// ClearAll deletes all entries from every user-facing bucket.
func (s *Store) ClearAll() error {
	for _, name := range AllBuckets {
		if err := s.ClearBucket(name); err != nil {
			return err
		}
	}
	return nil
}
