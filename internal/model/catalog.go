package model

import "sort"

// Catalog is the shared, read-only reference data every actor may consult.
// Lookups of unknown ids report ok=false; callers degrade to zero values and log.
type Catalog struct {
	products map[string]Product
	stores   map[string]Store
	carriers map[string]Carrier
}

// NewCatalog indexes the given reference data. Later duplicates win.
func NewCatalog(products []Product, stores []Store, carriers []Carrier) *Catalog {
	c := &Catalog{
		products: make(map[string]Product, len(products)),
		stores:   make(map[string]Store, len(stores)),
		carriers: make(map[string]Carrier, len(carriers)),
	}
	for _, p := range products {
		c.products[p.ID] = p
	}
	for _, s := range stores {
		c.stores[s.ID] = s
	}
	for _, t := range carriers {
		c.carriers[t.ID] = t
	}
	return c
}

// Product looks up a product by id.
func (c *Catalog) Product(id string) (Product, bool) {
	p, ok := c.products[id]
	return p, ok
}

// Store looks up a store by id.
func (c *Catalog) Store(id string) (Store, bool) {
	s, ok := c.stores[id]
	return s, ok
}

// Carrier looks up a carrier by id.
func (c *Catalog) Carrier(id string) (Carrier, bool) {
	t, ok := c.carriers[id]
	return t, ok
}

// UnitWeight returns the unit weight of a product, or 0 when unknown.
func (c *Catalog) UnitWeight(productID string) (float64, bool) {
	p, ok := c.products[productID]
	if !ok {
		return 0, false
	}
	return p.UnitWeight, true
}

// LinesWeight sums qty*unitWeight. Unknown products weigh zero and are
// reported back so the caller can log them.
func (c *Catalog) LinesWeight(lines []Line) (weight float64, unknown []string) {
	for _, l := range lines {
		w, ok := c.UnitWeight(l.ProductID)
		if !ok {
			unknown = append(unknown, l.ProductID)
			continue
		}
		weight += w * float64(l.Qty)
	}
	return weight, unknown
}

// StoreIDs returns all store ids in sorted order.
func (c *Catalog) StoreIDs() []string {
	ids := make([]string, 0, len(c.stores))
	for id := range c.stores {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// CarrierIDs returns all carrier ids in sorted order.
func (c *Catalog) CarrierIDs() []string {
	ids := make([]string, 0, len(c.carriers))
	for id := range c.carriers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
