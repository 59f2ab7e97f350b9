package db_test

import (
	"testing"

	"github.com/polyfarm/backend/internal/db"
	"github.com/polyfarm/backend/internal/testutil"
)

func TestTestConnection(t *testing.T) {
	pool := testutil.SetupPool(t)

	if err := db.TestConnection(pool); err != nil {
		t.Fatalf("TestConnection: %v", err)
	}
	t.Log("Test query: OK")
}
