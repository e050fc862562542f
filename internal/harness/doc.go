// Package harness runs conformance scenarios for the filter compiler.
//
// A scenario names a CUE relation schema, a SQL seed script and a filter
// request, and states what should come back:
//
//	name: users-with-big-orders
//	description: have with constraints filters the related rows
//	schema: shop.cue
//	seed: shop.sql
//	request:
//	  filters:
//	    - have: orders
//	      column_name: total
//	      operator: ">"
//	      value: 100
//	expect:
//	  ids: [1, 3]
//
// Each run compiles the request twice: once against a trace.Recorder, whose
// call tree is compared with a golden file, and once against the SQL
// adapter, whose statement is executed on a fresh in-memory SQLite
// database. Expected ids are compared in order, so scenarios that care about
// ordering should include a sort directive.
package harness
