// Command sqlchat-seed generates the retail demo dataset, uploads it to the
// object store as parquet, and loads it into the duckdb warehouse.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/sqlchat/sqlchat/internal/config"
	"github.com/sqlchat/sqlchat/internal/demo/dataset"
	"github.com/sqlchat/sqlchat/internal/storage"
	s3store "github.com/sqlchat/sqlchat/internal/storage/s3"
	"github.com/sqlchat/sqlchat/internal/warehouse"
	warehouseduckdb "github.com/sqlchat/sqlchat/internal/warehouse/duckdb"
)

func main() {
	seed := flag.Int64("seed", 1, "random seed for dataset generation")
	stores := flag.Int("stores", 12, "number of stores to generate")
	transactions := flag.Int("transactions", 2000, "number of transactions to generate")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv("sqlchat-seed")
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	datasetCfg := dataset.DefaultConfig()
	datasetCfg.Seed = *seed
	datasetCfg.StoreCount = *stores
	datasetCfg.TransactionCount = *transactions

	ds, err := dataset.Generate(datasetCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dataset generation failed: %v\n", err)
		os.Exit(1)
	}
	objects, err := dataset.EncodeParquet(ds)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parquet encoding failed: %v\n", err)
		os.Exit(1)
	}

	objectStore, err := s3store.New(ctx, s3store.Config{
		Endpoint:         cfg.ObjectStore.Endpoint,
		Region:           cfg.ObjectStore.Region,
		Bucket:           cfg.ObjectStore.Bucket,
		AccessKeyID:      cfg.ObjectStore.AccessKeyID,
		SecretAccessKey:  cfg.ObjectStore.SecretAccessKey,
		UseSSL:           cfg.ObjectStore.UseSSL,
		Prefix:           cfg.ObjectStore.Prefix,
		AutoCreateBucket: cfg.ObjectStore.AutoCreateBucket,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "object store init failed: %v\n", err)
		os.Exit(1)
	}

	runID := uuid.NewString()
	tableObjects := make([]warehouseduckdb.TableObject, 0, len(warehouse.DatasetTables))
	for _, table := range warehouse.DatasetTables {
		body := objects[table]
		key, err := storage.BuildDatasetObjectPath(runID, table)
		if err != nil {
			fmt.Fprintf(os.Stderr, "object path build failed: %v\n", err)
			os.Exit(1)
		}
		if _, err := objectStore.Put(ctx, key, bytes.NewReader(body), int64(len(body)), storage.PutOptions{
			ContentType: "application/vnd.apache.parquet",
		}); err != nil {
			fmt.Fprintf(os.Stderr, "upload %s failed: %v\n", table, err)
			os.Exit(1)
		}
		tableObjects = append(tableObjects, warehouseduckdb.TableObject{
			TableName:  table,
			ObjectPath: key,
		})
		fmt.Printf("uploaded %s (%d bytes) to %s\n", table, len(body), key)
	}

	if err := warehouseduckdb.EnsureSchema(ctx, cfg.Warehouse.Path); err != nil {
		fmt.Fprintf(os.Stderr, "warehouse schema setup failed: %v\n", err)
		os.Exit(1)
	}
	if err := warehouseduckdb.LoadSnapshot(ctx, cfg.Warehouse.Path, objectStore, tableObjects); err != nil {
		fmt.Fprintf(os.Stderr, "snapshot load failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("seeded warehouse %s from run %s: %d products, %d stores, %d transactions\n",
		cfg.Warehouse.Path, runID, len(ds.Products), len(ds.Stores), len(ds.Transactions))
}
