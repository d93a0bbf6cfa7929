// Package seed provides the demo catalog and loads catalogs from JSON
// files for the seed command.
package seed

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/brizuela-go/takeorderhd/internal/model"
	"github.com/brizuela-go/takeorderhd/internal/store"
	"github.com/shopspring/decimal"
)

type catalogFile struct {
	Tables     []model.Table    `json:"tables"`
	Waiters    []model.Waiter   `json:"waiters"`
	Categories []model.Category `json:"categories"`
	Items      []model.MenuItem `json:"items"`
}

// LoadFile reads a catalog from a JSON file with tables, waiters,
// categories and items arrays.
func LoadFile(path string) (store.Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return store.Catalog{}, fmt.Errorf("read catalog: %w", err)
	}
	var f catalogFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return store.Catalog{}, fmt.Errorf("decode catalog: %w", err)
	}
	c := store.Catalog{Tables: f.Tables, Waiters: f.Waiters, Categories: f.Categories, Items: f.Items}
	if err := c.Validate(); err != nil {
		return store.Catalog{}, err
	}
	return c, nil
}

// Demo returns a small catalog for local development.
func Demo() store.Catalog {
	price := decimal.NewFromInt
	return store.Catalog{
		Tables: []model.Table{
			{Number: "1"}, {Number: "2"}, {Number: "3"}, {Number: "4"}, {Number: "5"}, {Number: "Barra"},
		},
		Waiters: []model.Waiter{
			{Name: "Ana"}, {Name: "Luis"}, {Name: "Carmen"},
		},
		Categories: []model.Category{
			{Name: "Desayunos"}, {Name: "Tacos"}, {Name: "Bebidas"}, {Name: "Postres"},
		},
		Items: []model.MenuItem{
			{Name: "Chilaquiles verdes", Price: price(95), Category: "Desayunos", Description: "Con pollo y crema"},
			{Name: "Huevos rancheros", Price: price(85), Category: "Desayunos"},
			{Name: "Tacos al pastor", Price: price(18), Category: "Tacos", Description: "Con piña"},
			{Name: "Tacos de suadero", Price: price(18), Category: "Tacos"},
			{Name: "Gringa", Price: price(55), Category: "Tacos"},
			{Name: "Agua de horchata", Price: price(30), Category: "Bebidas"},
			{Name: "Café de olla", Price: price(28), Category: "Bebidas"},
			{Name: "Refresco", Price: price(25), Category: "Bebidas"},
			{Name: "Flan napolitano", Price: price(45), Category: "Postres"},
			{Name: "Pastel de tres leches", Price: price(50), Category: "Postres"},
		},
	}
}
