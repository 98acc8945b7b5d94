// internal/services/testing_test.go
package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/javajoker/agentmarket-backend/internal/database"
	"github.com/javajoker/agentmarket-backend/internal/ledger"
)

const (
	testSeller = "a11ce00000000001"
	testBuyer  = "b0b0000000000002"
	testOther  = "ca70100000000003"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(db))
	return db
}

func newTestChain(t *testing.T, finality time.Duration) *ledger.Ledger {
	t.Helper()
	chain := ledger.New(ledger.Params{
		FeeRateBps:      800,
		ListingFee:      100_000,
		MinPrice:        10_000,
		MaxPrice:        1_000_000_000_000,
		FinalityDelay:   finality,
		PlatformAccount: "platform",
	})
	require.NoError(t, chain.Credit(testSeller, 1_000_000))
	require.NoError(t, chain.Credit(testBuyer, 10_000_000))
	return chain
}

func listOnChain(t *testing.T, chain *ledger.Ledger) ledger.Product {
	t.Helper()
	product, _, err := chain.List(ledger.Address(testSeller), "capability", []string{"nlp"}, 1_000_000, "ipfs://meta")
	require.NoError(t, err)
	return product
}
