package actors

import (
	"os"

	"github.com/pkg/errors"
	"govledger/state/chain"
	"govledger/state/protocol"
)

// Open returns the named flat file of mind if it exists.
func Open(mind, db string) ([]byte, bool, error) {
	if err := os.MkdirAll(directory(mind), 0755); err != nil {
		return nil, false, errors.Wrapf(err, "create %s", directory(mind))
	}
	b, err := os.ReadFile(directory(mind) + db + ".dat")
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "read %s/%s", mind, db)
	}
	return b, true, nil
}

// Write replaces the named flat file. The data lands in a temporary file first
// and is renamed into place.
func Write(mind, db string, b []byte) error {
	if err := os.MkdirAll(directory(mind), 0755); err != nil {
		return errors.Wrapf(err, "create %s", directory(mind))
	}
	target := directory(mind) + db + ".dat"
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, b, 0644); err != nil {
		return errors.Wrapf(err, "write %s/%s", mind, db)
	}
	return errors.Wrapf(os.Rename(tmp, target), "replace %s/%s", mind, db)
}

func directory(mind string) string {
	dir := MakeOrGetConfig().GetString("rootDir")
	dir = dir + MakeOrGetConfig().GetString("flatFileDir")
	dir = dir + mind + "/"
	return dir
}

// SaveState persists a snapshot of d. It must be called between blocks.
func SaveState(d *chain.Database) error {
	b, err := d.Snapshot()
	if err != nil {
		return errors.WithStack(err)
	}
	return Write("ledger", "current", b)
}

// LoadState restores the last saved snapshot, if there is one.
func LoadState(reserve protocol.ObjectID) (*chain.Database, bool, error) {
	b, ok, err := Open("ledger", "current")
	if err != nil || !ok {
		return nil, false, err
	}
	d, err := chain.Restore(b, reserve)
	if err != nil {
		return nil, false, errors.Wrap(err, "restore ledger snapshot")
	}
	return d, true, nil
}
