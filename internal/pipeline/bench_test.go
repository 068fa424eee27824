package pipeline_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/derickschaefer/stockcast/internal/model"
	"github.com/derickschaefer/stockcast/internal/pipeline"
)

// yearOfSales is five products with a year of daily sales each.
func yearOfSales() []byte {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	for _, id := range []string{"sku-1", "sku-2", "sku-3", "sku-4", "sku-5"} {
		obs := make([]model.SalesObservation, 365)
		for i := range obs {
			obs[i] = model.SalesObservation{Date: start.AddDate(0, 0, i), Quantity: float64(i%17) + 0.5}
		}
		if err := pipeline.WriteJSONL(&buf, id, obs); err != nil {
			panic(err)
		}
	}
	return buf.Bytes()
}

func BenchmarkReadSales(b *testing.B) {
	data := yearOfSales()
	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := pipeline.ReadSales(bytes.NewReader(data)); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkJSONLRoundTrip(b *testing.B) {
	groups, err := pipeline.ReadSales(bytes.NewReader(yearOfSales()))
	if err != nil {
		b.Fatal(err)
	}
	var buf bytes.Buffer
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		buf.Reset()
		for _, g := range groups {
			if err := pipeline.WriteJSONL(&buf, g.ProductID, g.Obs); err != nil {
				b.Fatal(err)
			}
		}
		if _, err := pipeline.ReadSales(&buf); err != nil {
			b.Fatal(err)
		}
	}
}
