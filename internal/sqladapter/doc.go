// Package sqladapter implements filter.Adapter by building a SQL SELECT with
// squirrel.
//
// Every table reference gets an alias (t0 for the root, t1, t2... for each
// relation scope in the order they are opened). Relation scopes become
// correlated EXISTS / NOT EXISTS subqueries joined on the relation keys.
// Within a scope, terms are combined with SQL precedence: an OR-joined term
// starts a new run of AND-joined terms.
//
// All values are bound as parameters. Identifiers come only from the schema,
// so a filter can never name a table or column the schema does not declare.
package sqladapter
