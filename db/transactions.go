package db

import (
	"math/big"

	"github.com/pufid/pufnode/types"
)

// InsertTransaction appends the given types.TransactionRecord to the
// per-device transaction log. Records are never updated nor deleted.
func (r *SQLite) InsertTransaction(record *types.TransactionRecord) error {
	sqlQuery := `
	INSERT INTO transactions(
		deviceID,
		dataHash,
		encryptedPayload,
		timestamp
	) values(?, ?, ?, ?)
	`

	stmt, err := r.db.Prepare(sqlQuery)
	if err != nil {
		return err
	}
	defer stmt.Close() //nolint:errcheck

	_, err = stmt.Exec(types.BigIntToBytes(record.DeviceID),
		[]byte(record.DataHash), []byte(record.EncryptedPayload),
		record.Timestamp)
	if err != nil {
		return err
	}
	return nil
}

// ReadTransactionsByDeviceID reads all the stored types.TransactionRecord
// for the given deviceID, in append order
func (r *SQLite) ReadTransactionsByDeviceID(deviceID *big.Int) (
	[]types.TransactionRecord, error) {
	sqlQuery := `
	SELECT deviceID, dataHash, encryptedPayload, timestamp FROM transactions
	WHERE deviceID = ?
	ORDER BY indx ASC
	`

	rows, err := r.db.Query(sqlQuery, types.BigIntToBytes(deviceID))
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var records []types.TransactionRecord
	for rows.Next() {
		record := types.TransactionRecord{}
		var id []byte
		err = rows.Scan(&id, &record.DataHash, &record.EncryptedPayload,
			&record.Timestamp)
		if err != nil {
			return nil, err
		}
		record.DeviceID = types.BytesToBigInt(id)
		records = append(records, record)
	}
	return records, rows.Err()
}

// CountTransactionsByDeviceID returns the length of the transaction log of
// the given deviceID
func (r *SQLite) CountTransactionsByDeviceID(deviceID *big.Int) (uint64, error) {
	row := r.db.QueryRow(
		"SELECT COUNT(*) FROM transactions WHERE deviceID = ?",
		types.BigIntToBytes(deviceID))

	var count uint64
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
