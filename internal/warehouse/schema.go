package warehouse

// Retail dataset served to the assistant. The table and column names are
// baked into the LLM prompts, so renames here must be mirrored there.
const (
	TableProducts     = "Products"
	TableTransactions = "Transactions"
	TableStores       = "Stores"
)

// RetailDDL creates the dataset tables when no snapshot has been loaded yet,
// so chat requests against a fresh warehouse fail on data, not on schema.
var RetailDDL = []string{
	`CREATE TABLE IF NOT EXISTS Products (
    ProductID INTEGER PRIMARY KEY,
    Name TEXT,
    Category1 TEXT,
    Category2 TEXT
)`,
	`CREATE TABLE IF NOT EXISTS Transactions (
    StoreID INTEGER,
    ProductID INTEGER,
    Quantity INTEGER,
    PricePerQuantity DOUBLE,
    Timestamp TEXT
)`,
	`CREATE TABLE IF NOT EXISTS Stores (
    StoreID INTEGER PRIMARY KEY,
    State TEXT,
    ZipCode TEXT
)`,
}

// DatasetTables lists the tables a snapshot load must provide, in load order.
var DatasetTables = []string{TableProducts, TableTransactions, TableStores}
