// Package importer loads product catalogs from CSV exports. Rows go through
// the catalog service so imported products get the same slug assignment and
// SKU checks as API-created ones.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/listellodavide/onion-factory/internal/domain"
	productsvc "github.com/listellodavide/onion-factory/internal/service/product"
)

type ProductCreator interface {
	Create(ctx context.Context, in productsvc.CreateInput) (*domain.Product, error)
}

// CSVImporter reads catalog CSV files with a header row of
// sku,name,description,image_url,price,quantity.
type CSVImporter struct {
	reader   *csv.Reader
	products ProductCreator
}

func NewCSVImporter(r io.Reader, products ProductCreator) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	return &CSVImporter{
		reader:   csvr,
		products: products,
	}
}

// Result counts what happened to the parsed rows.
type Result struct {
	Imported int
	Skipped  int
}

// Run parses CSV rows and creates products. Rows whose SKU already exists
// are skipped, not treated as failures, so re-running an import is safe.
func (i *CSVImporter) Run(ctx context.Context) (Result, error) {
	var res Result

	headers, err := i.reader.Read()
	if err != nil {
		return res, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)

	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, fmt.Errorf("read row: %w", err)
		}

		in, err := parseRow(record, index)
		if err != nil {
			return res, err
		}
		if in == nil {
			continue
		}

		if _, err := i.products.Create(ctx, *in); err != nil {
			if errors.Is(err, domain.ErrAlreadyExists) {
				res.Skipped++
				continue
			}
			return res, fmt.Errorf("create product %q: %w", in.SKU, err)
		}
		res.Imported++
	}

	return res, nil
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.TrimSpace(h)] = i
	}
	return idx
}

func parseRow(record []string, index map[string]int) (*productsvc.CreateInput, error) {
	sku := pick(record, index, "sku")
	name := pick(record, index, "name")
	if sku == "" && name == "" {
		return nil, nil
	}
	if sku == "" || name == "" {
		return nil, fmt.Errorf("invalid row: sku and name are required (sku=%q name=%q)", sku, name)
	}

	priceStr := pick(record, index, "price")
	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return nil, fmt.Errorf("invalid price %q for sku %q", priceStr, sku)
	}

	quantity := 0
	if q := pick(record, index, "quantity"); q != "" {
		quantity, err = strconv.Atoi(q)
		if err != nil {
			return nil, fmt.Errorf("invalid quantity %q for sku %q", q, sku)
		}
	}

	return &productsvc.CreateInput{
		SKU:         sku,
		Name:        name,
		Description: pick(record, index, "description"),
		ImageURL:    pick(record, index, "image_url"),
		Price:       price,
		Quantity:    quantity,
	}, nil
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}
