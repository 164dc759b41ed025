// Package store persists grids in a SQLite database: one row per
// (job, product) with gzip-compressed cell data, plus a metadata table.
package store

import (
	"errors"
	"strings"
)

// ErrNotFound is returned when a requested grid is not in the store.
var ErrNotFound = errors.New("grid not found")

// Key identifies a stored grid.
type Key struct {
	Job     string // e.g. "seed-0042"
	Product string // elevation, hillshade, slope, ...
}

func (k Key) String() string { return k.Job + "/" + k.Product }

// Metadata describes the contents of a store.
type Metadata struct {
	Name        string
	Description string
	Version     string
	Products    []string
}

// ToMap converts Metadata to a map for database insertion.
func (m Metadata) ToMap() map[string]string {
	result := make(map[string]string)

	if m.Name != "" {
		result["name"] = m.Name
	}
	if m.Description != "" {
		result["description"] = m.Description
	}
	if m.Version != "" {
		result["version"] = m.Version
	}
	if len(m.Products) > 0 {
		result["products"] = strings.Join(m.Products, ",")
	}

	return result
}

func metadataFromMap(kv map[string]string) Metadata {
	m := Metadata{
		Name:        kv["name"],
		Description: kv["description"],
		Version:     kv["version"],
	}
	if v := kv["products"]; v != "" {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				m.Products = append(m.Products, p)
			}
		}
	}
	return m
}
