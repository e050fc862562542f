// Package filter defines the filter specification model and the Query
// Adapter contract the compiler drives.
//
// # Node model
//
// Node is a sealed interface (marker method pattern). Exactly one variant
// applies to any decoded wire object:
//
//	RelationRequired     {"have": "orders", ...constraints}
//	RelationForbidden    {"does_not_have": "orders"}
//	LogicalGroup         {"or": [...]} / {"and": [...]}
//	HybridRelationFilter {"column_name": "orders.total", "or": [...]}
//	Comparison           {"column_name": "age", "operator": ">=", "value": 18}
//	Empty                anything else (skipped)
//
// Keys are examined in a fixed precedence order (see Decode), so an object
// carrying several recognized keys always has one interpretation.
//
// # Paths
//
// A dot-path such as "company.department.name" names relations to traverse
// followed by a terminal attribute. ResolvePath splits it.
//
// # Adapter
//
// Adapter is the storage-facing contract. The compiler only ever issues
// calls against it; translating those calls into SQL or anything else is the
// adapter's business.
package filter
