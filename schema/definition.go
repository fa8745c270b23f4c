package schema

// Definition is the serializable form of a SecuritySchema — what a caller
// writes in a config file or assembles programmatically before calling
// NewFromDefinition. Field names match spec §3's table column-for-column;
// config.LoadSchemaFile decodes a YAML/JSON document directly into this
// type with unknown-field rejection, satisfying §6's "Unknown fields are
// rejected" requirement for the construction interface.
type Definition struct {
	Tables                 map[string]TableDefinition `yaml:"tables" json:"tables"`
	DefaultTableSchema     *TableDefinition           `yaml:"default_table_schema" json:"default_table_schema"`
	MaxJoins               int                        `yaml:"max_joins" json:"max_joins"`
	AllowSubqueries        bool                       `yaml:"allow_subqueries" json:"allow_subqueries"`
	MaxQueryLength         int                        `yaml:"max_query_length" json:"max_query_length"`
	SQLInjectionProtection bool                       `yaml:"sql_injection_protection" json:"sql_injection_protection"`
	ForbiddenKeywords      []string                   `yaml:"forbidden_keywords" json:"forbidden_keywords"`
}

// TableDefinition is the serializable form of a TableSchema.
type TableDefinition struct {
	Columns              map[string]ColumnDefinition `yaml:"columns" json:"columns"`
	DefaultColumnSchema  *ColumnDefinition            `yaml:"default_column_schema" json:"default_column_schema"`
	AllowedJoins         map[string][]string          `yaml:"allowed_joins" json:"allowed_joins"`
	DefaultAllowedJoin   []string                     `yaml:"default_allowed_join" json:"default_allowed_join"`
	RequireWhereClause   bool                         `yaml:"require_where_clause" json:"require_where_clause"`
	MaxRows              *int                         `yaml:"max_rows" json:"max_rows"`
}

// ColumnDefinition is the serializable form of a ColumnSchema.
type ColumnDefinition struct {
	Access              string   `yaml:"access" json:"access"`
	AllowedOperations   []string `yaml:"allowed_operations" json:"allowed_operations"`
	AllowedAggregations []string `yaml:"allowed_aggregations" json:"allowed_aggregations"`
}
