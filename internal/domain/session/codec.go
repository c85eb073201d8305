package session

import (
	"slices"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

func encodeUsername(username string) []byte {
	e := &jx.Encoder{}
	e.Str(username)
	return e.Bytes()
}

func decodeUsername(data []byte) (string, error) {
	s, err := jx.DecodeBytes(data).Str()
	if err != nil {
		return "", errors.Wrap(err, "decode username")
	}
	return s, nil
}

func encodeFavorites(ids []int) []byte {
	e := &jx.Encoder{}
	e.ArrStart()
	for _, id := range ids {
		e.Int(id)
	}
	e.ArrEnd()
	return e.Bytes()
}

// decodeFavorites reads an array of ids. Ids stored as strings are accepted.
// The result is sorted and free of duplicates.
func decodeFavorites(data []byte) ([]int, error) {
	var ids []int
	err := jx.DecodeBytes(data).Arr(func(d *jx.Decoder) error {
		if d.Next() == jx.String {
			s, err := d.Str()
			if err != nil {
				return err
			}
			id, err := strconv.Atoi(s)
			if err != nil {
				return errors.Wrapf(err, "favorite id %q", s)
			}
			ids = append(ids, id)
			return nil
		}
		id, err := d.Int()
		if err != nil {
			return err
		}
		ids = append(ids, id)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode favorites")
	}
	slices.Sort(ids)
	return slices.Compact(ids), nil
}
