package pipeline

import (
	"fmt"
	"strings"

	"github.com/MeKo-Tech/reliefkit/internal/grid"
)

// Product names a grid derived for a job.
type Product string

const (
	Elevation Product = "elevation"
	Hillshade Product = "hillshade"
	Slope     Product = "slope"
	Aspect    Product = "aspect"
	Smoothed  Product = "mean"
	NDVI      Product = "ndvi"
)

// AllProducts lists every product in generation order.
var AllProducts = []Product{Elevation, Hillshade, Slope, Aspect, Smoothed, NDVI}

// ParseProducts parses a comma separated product list. "all" selects every
// product. Duplicates are dropped and the order follows AllProducts.
func ParseProducts(s string) ([]Product, error) {
	want := make(map[Product]bool)
	for _, part := range strings.Split(s, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		switch {
		case name == "":
			continue
		case name == "all":
			for _, p := range AllProducts {
				want[p] = true
			}
		case isProduct(Product(name)):
			want[Product(name)] = true
		default:
			return nil, fmt.Errorf("%w: unknown product %q", grid.ErrInvalidParameter, name)
		}
	}
	if len(want) == 0 {
		return nil, grid.InvalidParam("products", s, "must name at least one product")
	}

	out := make([]Product, 0, len(want))
	for _, p := range AllProducts {
		if want[p] {
			out = append(out, p)
		}
	}
	return out, nil
}

func isProduct(p Product) bool {
	for _, known := range AllProducts {
		if p == known {
			return true
		}
	}
	return false
}

// Names returns the products as strings.
func Names(products []Product) []string {
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = string(p)
	}
	return out
}
