// Package persist stores documents as BSON files.
package persist

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"go.mongodb.org/mongo-driver/bson"
)

// Save encodes doc and writes it to path. The file is written next to its
// destination and renamed into place, so readers never see a partial file.
func Save(path string, doc any) error {
	data, err := bson.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "persist: encode")
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "persist: create temp file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "persist: write %s", tmp.Name())
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "persist: close %s", tmp.Name())
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrapf(err, "persist: rename to %s", path)
	}
	return nil
}

// Load decodes the document stored at path into doc, which must be a pointer.
func Load(path string, doc any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "persist: read %s", path)
	}
	if err := bson.Unmarshal(data, doc); err != nil {
		return errors.Wrapf(err, "persist: decode %s", path)
	}
	return nil
}
