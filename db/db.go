package db

import (
	"database/sql"
	"errors"
)

var (
	// ErrDeviceNotFound is returned when the queried deviceID has no
	// record in the db
	ErrDeviceNotFound = errors.New("device not found in the db")
	// ErrDeviceAlreadyStored is returned when trying to insert a device
	// whose deviceID already has a record in the db
	ErrDeviceAlreadyStored = errors.New("device already stored in the db")
)

// SQLite represents the SQLite database
type SQLite struct {
	db *sql.DB
}

// NewSQLite returns a new *SQLite database
func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{
		db: db,
	}
}

// Migrate creates the tables needed for the database
func (r *SQLite) Migrate() error {
	query := `
	PRAGMA foreign_keys = ON;
	`
	_, err := r.db.Exec(query)
	if err != nil {
		return err
	}

	query = `
	CREATE TABLE IF NOT EXISTS devices(
		id BLOB NOT NULL PRIMARY KEY UNIQUE,
		pubKeyHash BLOB NOT NULL,
		helperData BLOB NOT NULL,
		owner BLOB NOT NULL,
		active INTEGER NOT NULL,
		registeredAt DATETIME NOT NULL
	);
	`
	_, err = r.db.Exec(query)
	if err != nil {
		return err
	}

	query = `
	CREATE TABLE IF NOT EXISTS transactions(
		indx INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
		deviceID BLOB NOT NULL,
		dataHash BLOB NOT NULL,
		encryptedPayload BLOB NOT NULL,
		timestamp DATETIME NOT NULL,
		FOREIGN KEY(deviceID) REFERENCES devices(id)
	);
	`
	_, err = r.db.Exec(query)
	if err != nil {
		return err
	}

	query = `
	CREATE TABLE IF NOT EXISTS meta(
		deviceCount INTEGER NOT NULL
	);
	`
	_, err = r.db.Exec(query)
	if err != nil {
		return err
	}

	// initialize the global device counter if the meta table is empty
	query = `
	INSERT INTO meta(deviceCount)
	SELECT 0 WHERE NOT EXISTS (SELECT * FROM meta);
	`
	_, err = r.db.Exec(query)
	if err != nil {
		return err
	}

	return nil
}
