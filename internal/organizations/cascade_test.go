package organizations

import (
	"os"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var createTableRe = regexp.MustCompile(`(?s)CREATE TABLE IF NOT EXISTS (\w+) \((.*?)\);`)

// tenantTablesFromSchema parses the migration and returns every table with
// an organization_id column.
func tenantTablesFromSchema(t *testing.T) map[string]bool {
	t.Helper()
	schema, err := os.ReadFile("../../pkg/database/migrations/001_schema.sql")
	require.NoError(t, err)

	tables := make(map[string]bool)
	for _, m := range createTableRe.FindAllStringSubmatch(string(schema), -1) {
		name, body := m[1], m[2]
		if name == "organizations" {
			continue
		}
		if strings.Contains(body, "organization_id") {
			tables[name] = true
		}
	}
	return tables
}

// A tenant-owned table missing from TenantTables would survive an
// organization delete as orphaned rows. This pins the cascade list to the
// schema so adding a table without extending the cascade fails loudly.
func TestCascadeCoversEveryTenantTable(t *testing.T) {
	fromSchema := tenantTablesFromSchema(t)
	require.NotEmpty(t, fromSchema, "schema parse found no tenant tables")

	inCascade := make(map[string]bool, len(TenantTables))
	for _, table := range TenantTables {
		inCascade[table] = true
	}

	for table := range fromSchema {
		assert.True(t, inCascade[table], "table %s holds tenant rows but is not in the cascade", table)
	}
	for table := range inCascade {
		assert.True(t, fromSchema[table], "cascade names %s which has no organization_id column", table)
	}
}

// The cascade clears children before their parents; a wrong order would trip
// foreign keys mid-transaction.
func TestCascadeOrderChildrenFirst(t *testing.T) {
	pos := make(map[string]int, len(TenantTables))
	for i, table := range TenantTables {
		pos[table] = i
	}

	before := func(child, parent string) {
		t.Helper()
		assert.Less(t, pos[child], pos[parent], "%s must be cleared before %s", child, parent)
	}

	before("inventory_transactions", "inventory_items")
	before("inventory_transactions", "identities")
	before("flight_logs", "drones")
	before("flight_logs", "orders")
	before("flight_logs", "identities")
	before("tickets", "identities")
	before("reimbursements", "identities")
	before("orders", "subcontractors")
	before("batteries", "drones")
}
