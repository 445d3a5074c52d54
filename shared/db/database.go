package db

import (
	"database/sql"
)

// Database is a connection the post store can be built on.
type Database interface {
	Connect() error
	Close() error
	DB() *sql.DB
}
