package schema

import "testing"

func usersOrdersSchema(t *testing.T) *SecuritySchema {
	t.Helper()
	s, err := NewBuilder().
		AddTable("users", TableDefinition{
			Columns: map[string]ColumnDefinition{
				"id":       {Access: "READ"},
				"username": {Access: "READ"},
				"email":    {Access: "DENIED"},
			},
			AllowedJoins: map[string][]string{
				"orders": {"INNER", "LEFT"},
			},
		}).
		AddTable("orders", TableDefinition{
			Columns: map[string]ColumnDefinition{
				"id":      {Access: "READ"},
				"amount":  {Access: "READ", AllowedAggregations: []string{"SUM", "AVG", "COUNT"}},
				"user_id": {Access: "READ"},
			},
		}).
		SetMaxJoins(2).
		SetAllowSubqueries(true).
		SetMaxQueryLength(500).
		SetForbiddenKeywords("DROP", "DELETE", "TRUNCATE").
		Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return s
}

func TestBuilderProducesExpectedPolicy(t *testing.T) {
	s := usersOrdersSchema(t)

	users := s.Table("users")
	if users == nil {
		t.Fatal("expected users table")
	}
	if !users.Column("username").PermitsRead() {
		t.Error("username should be readable")
	}
	if users.Column("email").PermitsRead() {
		t.Error("email should be denied")
	}
	if !users.JoinAllowed("orders", JoinInner) {
		t.Error("INNER join with orders should be allowed")
	}
	if users.JoinAllowed("orders", JoinRight) {
		t.Error("RIGHT join with orders should not be allowed")
	}

	orders := s.Table("orders")
	if !orders.Column("amount").PermitsAggregation(AggSum) {
		t.Error("SUM(amount) should be allowed")
	}
	if orders.Column("amount").PermitsAggregation(AggMin) {
		t.Error("MIN(amount) should not be allowed")
	}
}

func TestTableLookupIsCaseInsensitive(t *testing.T) {
	s := usersOrdersSchema(t)
	if s.Table("USERS") == nil {
		t.Error("table lookup should be case-insensitive")
	}
	if s.Table("users").Column("EMAIL") == nil {
		t.Error("column lookup should be case-insensitive")
	}
}

func TestImplicitDenial(t *testing.T) {
	s := usersOrdersSchema(t)
	if s.Table("admins") != nil {
		t.Error("a table absent from the schema and with no default must be denied")
	}
}

func TestDefaultTableSchemaDeniedColumnWins(t *testing.T) {
	s, err := NewBuilder().
		SetDefaultTableSchema(TableDefinition{
			DefaultColumnSchema: &ColumnDefinition{Access: "READ"},
			Columns: map[string]ColumnDefinition{
				"secret": {Access: "DENIED"},
			},
		}).
		Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	t1 := s.Table("anything")
	if t1 == nil {
		t.Fatal("expected default table schema to apply")
	}
	if t1.Column("secret").PermitsRead() {
		t.Error("explicit DENIED in default_table_schema must win over the default column schema")
	}
	if !t1.Column("other").PermitsRead() {
		t.Error("columns not explicitly listed should fall back to default_column_schema")
	}
}

func TestBuildRejectsNegativeMaxJoins(t *testing.T) {
	_, err := NewBuilder().SetMaxJoins(-1).Build()
	if err == nil {
		t.Error("expected error for negative max_joins")
	}
}

func TestBuildRejectsUnknownJoinPartnerWithoutDefault(t *testing.T) {
	_, err := NewBuilder().
		AddTable("users", TableDefinition{
			AllowedJoins: map[string][]string{"ghost": {"INNER"}},
		}).
		Build()
	if err == nil {
		t.Error("expected error for allowed_joins referencing an unknown table")
	}
}

func TestBuildAllowsUnknownJoinPartnerWithDefaultTableSchema(t *testing.T) {
	_, err := NewBuilder().
		AddTable("users", TableDefinition{
			AllowedJoins: map[string][]string{"ghost": {"INNER"}},
		}).
		SetDefaultTableSchema(TableDefinition{}).
		Build()
	if err != nil {
		t.Errorf("allowed_joins referencing an unlisted table should be fine when default_table_schema is set: %v", err)
	}
}

func TestBuildRejectsUnknownAccessLevel(t *testing.T) {
	_, err := NewBuilder().
		AddTable("users", TableDefinition{
			Columns: map[string]ColumnDefinition{"id": {Access: "MAYBE"}},
		}).
		Build()
	if err == nil {
		t.Error("expected error for unknown access level")
	}
}
