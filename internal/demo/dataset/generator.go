// Package dataset generates the deterministic retail demo data served to the
// assistant, encoded as parquet for snapshot loading.
package dataset

import (
	"bytes"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/sqlchat/sqlchat/internal/warehouse"
)

type Product struct {
	ProductID int32  `parquet:"ProductID"`
	Name      string `parquet:"Name"`
	Category1 string `parquet:"Category1"`
	Category2 string `parquet:"Category2"`
}

type Store struct {
	StoreID int32  `parquet:"StoreID"`
	State   string `parquet:"State"`
	ZipCode string `parquet:"ZipCode"`
}

type Transaction struct {
	StoreID          int32   `parquet:"StoreID"`
	ProductID        int32   `parquet:"ProductID"`
	Quantity         int32   `parquet:"Quantity"`
	PricePerQuantity float64 `parquet:"PricePerQuantity"`
	Timestamp        string  `parquet:"Timestamp"`
}

type Dataset struct {
	Products     []Product
	Stores       []Store
	Transactions []Transaction
}

type Config struct {
	Seed             int64
	StoreCount       int
	TransactionCount int
	Start            time.Time
}

func DefaultConfig() Config {
	return Config{
		Seed:             1,
		StoreCount:       12,
		TransactionCount: 2000,
		Start:            time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

var productCatalog = []Product{
	{ProductID: 1, Name: "Classic Tee", Category1: "Apparel", Category2: "Tops"},
	{ProductID: 2, Name: "Zip Hoodie", Category1: "Apparel", Category2: "Tops"},
	{ProductID: 3, Name: "Slim Jeans", Category1: "Apparel", Category2: "Bottoms"},
	{ProductID: 4, Name: "Chino Shorts", Category1: "Apparel", Category2: "Bottoms"},
	{ProductID: 5, Name: "Trail Sneakers", Category1: "Footwear", Category2: "Sneakers"},
	{ProductID: 6, Name: "Canvas Slip-Ons", Category1: "Footwear", Category2: "Sneakers"},
	{ProductID: 7, Name: "Leather Boots", Category1: "Footwear", Category2: "Boots"},
	{ProductID: 8, Name: "Wool Beanie", Category1: "Accessories", Category2: "Headwear"},
	{ProductID: 9, Name: "Baseball Cap", Category1: "Accessories", Category2: "Headwear"},
	{ProductID: 10, Name: "Canvas Tote", Category1: "Accessories", Category2: "Bags"},
	{ProductID: 11, Name: "Travel Backpack", Category1: "Accessories", Category2: "Bags"},
	{ProductID: 12, Name: "Water Bottle", Category1: "Gear", Category2: "Hydration"},
	{ProductID: 13, Name: "Yoga Mat", Category1: "Gear", Category2: "Fitness"},
	{ProductID: 14, Name: "Resistance Bands", Category1: "Gear", Category2: "Fitness"},
	{ProductID: 15, Name: "Camping Lantern", Category1: "Gear", Category2: "Outdoor"},
}

var storeStates = []struct {
	State   string
	ZipCode string
}{
	{"CA", "94107"}, {"CA", "90012"}, {"NY", "10001"}, {"NY", "11201"},
	{"TX", "73301"}, {"TX", "75001"}, {"WA", "98101"}, {"IL", "60601"},
	{"FL", "33101"}, {"MA", "02108"}, {"CO", "80202"}, {"OR", "97201"},
}

var basePrices = map[int32]float64{
	1: 19.99, 2: 49.99, 3: 59.99, 4: 34.99, 5: 89.99,
	6: 44.99, 7: 129.99, 8: 14.99, 9: 17.99, 10: 24.99,
	11: 79.99, 12: 12.99, 13: 29.99, 14: 19.99, 15: 39.99,
}

// Generate builds the full dataset from a fixed seed. The same config always
// yields byte-identical parquet output, so repeated seeds are idempotent.
func Generate(cfg Config) (Dataset, error) {
	if cfg.StoreCount <= 0 || cfg.StoreCount > len(storeStates) {
		return Dataset{}, fmt.Errorf("store count must be between 1 and %d", len(storeStates))
	}
	if cfg.TransactionCount <= 0 {
		return Dataset{}, fmt.Errorf("transaction count must be positive")
	}
	if cfg.Start.IsZero() {
		return Dataset{}, fmt.Errorf("start time is required")
	}

	rnd := rand.New(rand.NewSource(cfg.Seed))

	stores := make([]Store, 0, cfg.StoreCount)
	for i := 0; i < cfg.StoreCount; i++ {
		stores = append(stores, Store{
			StoreID: int32(i + 1),
			State:   storeStates[i].State,
			ZipCode: storeStates[i].ZipCode,
		})
	}

	transactions := make([]Transaction, 0, cfg.TransactionCount)
	for i := 0; i < cfg.TransactionCount; i++ {
		product := productCatalog[rnd.Intn(len(productCatalog))]
		at := cfg.Start.Add(time.Duration(rnd.Intn(365*24)) * time.Hour)
		price := basePrices[product.ProductID] * (0.85 + rnd.Float64()*0.3)
		transactions = append(transactions, Transaction{
			StoreID:          int32(rnd.Intn(cfg.StoreCount) + 1),
			ProductID:        product.ProductID,
			Quantity:         int32(rnd.Intn(5) + 1),
			PricePerQuantity: round2(price),
			Timestamp:        at.Format("2006-01-02 15:04:05"),
		})
	}

	return Dataset{
		Products:     append([]Product(nil), productCatalog...),
		Stores:       stores,
		Transactions: transactions,
	}, nil
}

// EncodeParquet renders each table as a parquet object keyed by table name.
func EncodeParquet(ds Dataset) (map[string][]byte, error) {
	products, err := encodeRows(ds.Products)
	if err != nil {
		return nil, fmt.Errorf("encode products: %w", err)
	}
	stores, err := encodeRows(ds.Stores)
	if err != nil {
		return nil, fmt.Errorf("encode stores: %w", err)
	}
	transactions, err := encodeRows(ds.Transactions)
	if err != nil {
		return nil, fmt.Errorf("encode transactions: %w", err)
	}

	return map[string][]byte{
		warehouse.TableProducts:     products,
		warehouse.TableStores:       stores,
		warehouse.TableTransactions: transactions,
	}, nil
}

func encodeRows[T any](rows []T) ([]byte, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("rows are required")
	}
	buf := bytes.NewBuffer(nil)
	writer := parquet.NewGenericWriter[T](buf)
	if _, err := writer.Write(rows); err != nil {
		return nil, fmt.Errorf("write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close parquet writer: %w", err)
	}
	return buf.Bytes(), nil
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
