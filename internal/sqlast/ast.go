// Package sqlast defines the canonical SQL AST shape spec §3 and §4.2
// describe: the parser adapter (internal/sqlparse) converts the output of
// the vendored parser into this shape, and every later stage (resolver,
// validators) works only against these types, never against the
// underlying parser's own tree.
package sqlast

// Role is the syntactic position a column reference appears in (glossary:
// "Role"). The resolver and validators use it to decide which permission
// (read vs. write) a reference needs.
type Role string

const (
	RoleProjection  Role = "PROJECTION"
	RolePredicate   Role = "PREDICATE"
	RoleGroupBy     Role = "GROUP_BY"
	RoleOrderBy     Role = "ORDER_BY"
	RoleAggArg      Role = "AGGREGATE_ARG"
	RoleAssignTarget Role = "ASSIGN_TARGET"
)

// StatementKind names the four top-level statement forms spec §2 lists.
type StatementKind string

const (
	KindSelect StatementKind = "SELECT"
	KindInsert StatementKind = "INSERT"
	KindUpdate StatementKind = "UPDATE"
	KindDelete StatementKind = "DELETE"
)

// Statement is any top-level or nested query the parser adapter produces.
type Statement interface {
	Kind() StatementKind
}

// JoinType mirrors schema.JoinType without importing the schema package,
// keeping sqlast free of any dependency beyond the standard library.
type JoinType string

const (
	JoinInner JoinType = "INNER"
	JoinLeft  JoinType = "LEFT"
	JoinRight JoinType = "RIGHT"
	JoinFull  JoinType = "FULL"
	JoinCross JoinType = "CROSS"
)

// Select is a single SELECT — top-level or a subquery/union-arm; each
// Select (including each one nested inside another) introduces its own
// resolver scope (spec §4.3 "Each SELECT ... defines a scope").
type Select struct {
	ID         int // unique within the statement, assigned by the parser adapter
	Distinct   bool
	Projection []SelectItem
	From       []TableExpr
	Where      Expr
	GroupBy    []Expr
	Having     Expr
	OrderBy    []OrderItem
	Limit      *int
	Offset     *int
}

func (s *Select) Kind() StatementKind { return KindSelect }

// Union is a UNION/UNION ALL of two select statements, each validated as
// its own scope (SPEC_FULL.md §D.1).
type Union struct {
	Left  Statement
	Right Statement
	All   bool
}

func (u *Union) Kind() StatementKind { return KindSelect }

// SelectItem is one entry in a SELECT's projection list.
type SelectItem struct {
	Expr          Expr
	Alias         string // output name, "" if none given
	Star          bool   // true for a bare "*"
	StarQualifier string // non-"" for "t.*"
}

// OutputName returns the name this projection item is exposed as to an
// outer scope referencing it through a derived table (spec §4.3 step 1:
// "by output name, with inferred names for unaliased expressions").
func (si SelectItem) OutputName() string {
	if si.Alias != "" {
		return si.Alias
	}
	if ref, ok := si.Expr.(*ColumnRef); ok {
		return ref.Name
	}
	return ""
}

// TableExpr is anything that can appear in a FROM/JOIN list.
type TableExpr interface {
	tableExprNode()
}

// TableRef is a reference to a base table, with an optional alias.
type TableRef struct {
	Table string
	Alias string // "" if unaliased
}

func (*TableRef) tableExprNode() {}

// EffectiveAlias returns Alias if set, else Table — the name other parts
// of the query use to address this reference (spec §4.3 step 1: "If no
// alias, bind base->base").
func (t *TableRef) EffectiveAlias() string {
	if t.Alias != "" {
		return t.Alias
	}
	return t.Table
}

// DerivedTable is a subquery appearing in FROM — "(SELECT ...) AS t"
// (glossary: "Derived table / derived scope").
type DerivedTable struct {
	Query Statement
	Alias string
}

func (*DerivedTable) tableExprNode() {}

// JoinExpr is a JOIN of two table expressions with an explicit kind and
// an ON or USING predicate.
type JoinExpr struct {
	ID    int
	Left  TableExpr
	Right TableExpr
	Kind  JoinType
	On    Expr
	Using []string
}

func (*JoinExpr) tableExprNode() {}

// CountJoins returns the total number of JoinExpr nodes in the FROM tree
// rooted at te, used by the JoinCount validator (spec §4.4 rule 4).
func CountJoins(te TableExpr) int {
	switch t := te.(type) {
	case *JoinExpr:
		return 1 + CountJoins(t.Left) + CountJoins(t.Right)
	default:
		return 0
	}
}

// OrderItem is one entry in an ORDER BY list.
type OrderItem struct {
	Expr descOrAsc
	Desc bool
}

type descOrAsc = Expr

// Expr is any scalar expression node.
type Expr interface {
	exprNode()
}

// ColumnRef is a (possibly qualified) column reference. ID is assigned by
// the parser adapter and is how the resolver attaches its resolution
// result without mutating the AST node itself (see internal/resolver).
type ColumnRef struct {
	ID        int
	Qualifier string // "" if unqualified
	Name      string
	Role      Role
}

func (*ColumnRef) exprNode() {}

// Star is a bare "*" in expression position. The parser adapter does not
// produce it: COUNT(*) is a FuncCall with Star set, and projections use
// SelectItem.Star.
type Star struct{}

func (*Star) exprNode() {}

// Literal is a constant value (number, string, boolean, null).
type Literal struct {
	Text   string // original source text, used for tautology detection
	IsNull bool
}

func (*Literal) exprNode() {}

// BinaryExpr is a binary operator expression (comparison, arithmetic,
// AND/OR).
type BinaryExpr struct {
	Op    string
	Left  Expr
	Right Expr
}

func (*BinaryExpr) exprNode() {}

// UnaryExpr is a unary operator expression (NOT, -, IS NULL, ...).
type UnaryExpr struct {
	Op      string
	Operand Expr
}

func (*UnaryExpr) exprNode() {}

// FuncCall is a function call; aggregate functions are FuncCalls whose
// Name matches one of schema's AggregationType values.
type FuncCall struct {
	ID       int
	Name     string
	Distinct bool
	Star     bool // true for COUNT(*)
	Args     []Expr
}

func (*FuncCall) exprNode() {}

// Subquery is a SELECT (or UNION of selects) appearing in expression or
// predicate position (e.g. inside IN (...) or a scalar comparison).
type Subquery struct {
	Query Statement
}

func (*Subquery) exprNode() {}

// ParenExpr is a parenthesized expression, kept distinct from its inner
// expression so the resolver's and validators' walks stay structurally
// simple.
type ParenExpr struct {
	Inner Expr
}

func (*ParenExpr) exprNode() {}

// ListExpr is a parenthesized, comma-separated list, as used on the
// right-hand side of IN (...).
type ListExpr struct {
	Items []Expr
}

func (*ListExpr) exprNode() {}

// Insert is an INSERT statement. Spec §9(d): WRITE access applies to the
// Columns list here.
type Insert struct {
	Table   string
	Columns []*ColumnRef
	// Values rows are not modeled structurally (spec's policy concerns
	// identifiers, not literal data); Select is non-nil for
	// INSERT ... SELECT, which validates its Select as a nested scope.
	Select *Select
}

func (*Insert) Kind() StatementKind { return KindInsert }

// Assignment is one "col = expr" pair in an UPDATE's SET list.
type Assignment struct {
	Target *ColumnRef
	Value  Expr
}

// Update is an UPDATE statement.
type Update struct {
	Table       TableExpr
	Assignments []Assignment
	Where       Expr
}

func (*Update) Kind() StatementKind { return KindUpdate }

// Delete is a DELETE statement.
type Delete struct {
	From  TableExpr
	Where Expr
}

func (*Delete) Kind() StatementKind { return KindDelete }
