package car

import (
	"os"

	"github.com/pkg/errors"
)

// Open reads and parses an asset catalog file.
func Open(path string) (*Catalog, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read catalog")
	}
	c, err := ParseCatalog(buf)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	return c, nil
}
