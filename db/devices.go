package db

import (
	"database/sql"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pufid/pufnode/types"
)

// InsertDevice stores the given types.Device and increments the global
// device counter. Both writes happen in the same sql transaction: either
// fully applied or not applied.
func (r *SQLite) InsertDevice(device *types.Device) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	sqlQuery := `
	INSERT INTO devices(
		id,
		pubKeyHash,
		helperData,
		owner,
		active,
		registeredAt
	) values(?, ?, ?, ?, ?, ?)
	`

	_, err = tx.Exec(sqlQuery, types.BigIntToBytes(device.ID),
		[]byte(device.PubKeyHash), []byte(device.HelperData),
		device.Owner.Bytes(), device.Active, device.RegisteredAt)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrDeviceAlreadyStored
		}
		return err
	}

	sqlQuery = `
	UPDATE meta SET deviceCount = deviceCount + 1
	`
	if _, err = tx.Exec(sqlQuery); err != nil {
		return err
	}

	return tx.Commit()
}

// GetDevice returns the stored types.Device for the given deviceID
func (r *SQLite) GetDevice(deviceID *big.Int) (*types.Device, error) {
	sqlQuery := `
	SELECT id, pubKeyHash, helperData, owner, active, registeredAt
	FROM devices WHERE id = ?
	`

	row := r.db.QueryRow(sqlQuery, types.BigIntToBytes(deviceID))

	var device types.Device
	var id, owner []byte
	err := row.Scan(&id, &device.PubKeyHash, &device.HelperData, &owner,
		&device.Active, &device.RegisteredAt)
	if err == sql.ErrNoRows {
		return nil, ErrDeviceNotFound
	} else if err != nil {
		return nil, err
	}
	device.ID = types.BytesToBigInt(id)
	device.Owner = common.BytesToAddress(owner)
	return &device, nil
}

// SetDeviceActive sets the active flag of the given deviceID
func (r *SQLite) SetDeviceActive(deviceID *big.Int, active bool) error {
	sqlQuery := `
	UPDATE devices SET active = ? WHERE id = ?
	`

	res, err := r.db.Exec(sqlQuery, active, types.BigIntToBytes(deviceID))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

// DeviceCount returns the global device counter
func (r *SQLite) DeviceCount() (uint64, error) {
	row := r.db.QueryRow("SELECT deviceCount FROM meta")

	var count uint64
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
