// Package db provides the embedded ledger schema.
package db

import _ "embed"

// Schema contains the DDL statements for the users, orders and order_items
// tables. Every statement is idempotent.
//
//go:embed migrations/001_schema.sql
var Schema string
