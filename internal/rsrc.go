package internal

import (
	"errors"
	"io"

	"github.com/tc-hib/winres"
)

// LoadResources parses the resource directory of a PE image.
// An image without a resource directory yields an empty set.
func LoadResources(exe io.ReadSeeker) (*winres.ResourceSet, error) {
	rs, err := winres.LoadFromEXE(exe)
	if errors.Is(err, winres.ErrNoResources) {
		return &winres.ResourceSet{}, nil
	}
	if err != nil {
		return nil, err
	}
	return rs, nil
}

// Entry is one numerically addressed resource of a set.
type Entry struct {
	Type     uint16
	Name     uint16
	Language uint16
	Data     []byte
}

// Entries lists the numerically addressed resources of rs in directory order.
// String-named types and names are skipped.
func Entries(rs *winres.ResourceSet) []Entry {
	var list []Entry
	rs.Walk(func(typeID, resID winres.Identifier, langID uint16, data []byte) bool {
		t, ok := typeID.(winres.ID)
		if !ok {
			return true
		}
		n, ok := resID.(winres.ID)
		if !ok {
			return true
		}
		list = append(list, Entry{
			Type:     uint16(t),
			Name:     uint16(n),
			Language: langID,
			Data:     data,
		})
		return true
	})
	return list
}
