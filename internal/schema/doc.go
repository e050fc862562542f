// Package schema describes the tables and relations a filter may reach.
//
// Schemas are written in CUE:
//
//	root: "users"
//	tables: {
//		users: {
//			primary_key: "id"
//			columns: ["id", "name", "department_id"]
//			relations: {
//				orders: {table: "orders", kind: "has_many", foreign_key: "user_id"}
//				department: {table: "departments", kind: "belongs_to", local_key: "department_id"}
//			}
//		}
//		...
//	}
//
// A relation joins related.foreign_key = owner.local_key. For has_many the
// local key defaults to the owner's primary key; for belongs_to the foreign
// key defaults to the related table's primary key.
package schema
