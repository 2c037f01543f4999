package cli

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/alecthomas/kong"

	"go.hackfix.me/strata/xtime"
)

// ExpirationMapper parses an expiration given either as a duration relative to
// the current time, or as an RFC 3339 timestamp. The value "never" maps to the
// zero time.
type ExpirationMapper struct {
	timeNow func() time.Time
}

var _ kong.Mapper = (*ExpirationMapper)(nil)

// Decode implements the kong.Mapper interface.
func (em ExpirationMapper) Decode(kctx *kong.DecodeContext, target reflect.Value) error {
	var value string
	err := kctx.Scan.PopValueInto("expiration", &value)
	if err != nil {
		return err
	}

	t, err := em.parse(value)
	if err != nil {
		return err
	}
	target.Set(reflect.ValueOf(t))

	return nil
}

func (em ExpirationMapper) parse(value string) (time.Time, error) {
	if strings.EqualFold(value, "never") {
		return time.Time{}, nil
	}

	timeNow := em.timeNow().UTC()

	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		dur, derr := xtime.ParseDuration(value)
		if derr != nil {
			return time.Time{}, fmt.Errorf("invalid expiration '%s': %w", value, derr)
		}
		t = timeNow.Add(dur)
	}

	if !t.After(timeNow) {
		return time.Time{}, errors.New("expiration time is in the past")
	}

	return t, nil
}
