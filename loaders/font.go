package loaders

import (
	"io/ioutil"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/mogaika/gamestop/geometry"
)

type FontLoader struct {
	Manager *LoadingManager
}

func (l *FontLoader) Load(path string, onLoad func(geometry.Font)) *Future[geometry.Font] {
	return start(l.Manager, path, func() (geometry.Font, error) {
		return LoadFont(path)
	}, onLoad)
}

// LoadFont reads a JSON typeface descriptor or a TrueType/OpenType file, chosen by extension.
func LoadFont(path string) (geometry.Font, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		f, err := geometry.ParseTypeface(data)
		if err != nil {
			return nil, errors.Wrapf(err, "typeface %s", path)
		}
		return f, nil
	case ".ttf", ".otf":
		f, err := geometry.ParseSFNT(data)
		if err != nil {
			return nil, errors.Wrapf(err, "font %s", path)
		}
		return f, nil
	default:
		return nil, errors.Errorf("unknown font format %q", ext)
	}
}
