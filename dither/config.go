package dither

import (
	"strconv"
	"strings"

	"picdither/palette"
)

const (
	DefaultPaletteSize = 16

	OptPaletteSize = "paletteSize"
	OptPaletteType = "paletteType"
)

type Config struct {
	PaletteSize int
	PaletteType palette.Type
}

func DefaultConfig() Config {
	return Config{
		PaletteSize: DefaultPaletteSize,
		PaletteType: palette.DefaultType,
	}
}

// ParseOptions reads paletteSize and paletteType from opts. Missing or
// unparsable values, and palette types outside the known range, silently
// keep their defaults. A parsed but non-positive size is kept so that the
// filter can reject it.
func ParseOptions(opts map[string]string) Config {
	conf := DefaultConfig()

	if v, ok := opts[OptPaletteSize]; ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			conf.PaletteSize = n
		}
	}

	if v, ok := opts[OptPaletteType]; ok {
		v = strings.TrimSpace(v)
		if n, err := strconv.Atoi(v); err == nil {
			if t := palette.Type(n); t.Valid() {
				conf.PaletteType = t
			}
		} else if t, ok := palette.ParseType(v); ok {
			conf.PaletteType = t
		}
	}

	return conf
}

func (c Config) Options() map[string]string {
	return map[string]string{
		OptPaletteSize: strconv.Itoa(c.PaletteSize),
		OptPaletteType: strconv.Itoa(int(c.PaletteType)),
	}
}
