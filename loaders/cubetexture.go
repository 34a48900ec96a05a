package loaders

import (
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/mogaika/gamestop/r3d"
)

type CubeTextureLoader struct {
	Manager *LoadingManager
}

// Load decodes six faces given in px, nx, py, ny, pz, nz order.
func (l *CubeTextureLoader) Load(paths [6]string, onLoad func(*r3d.CubeTexture)) *Future[*r3d.CubeTexture] {
	url := strings.Join(paths[:], ",")
	return start(l.Manager, url, func() (*r3d.CubeTexture, error) {
		return LoadCubeTexture(paths)
	}, onLoad)
}

func decodeImageFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to decode %s", path)
	}
	return img, nil
}

// LoadCubeTexture decodes the faces in parallel. Faces that are not square or
// differ in size are resampled to the largest face.
func LoadCubeTexture(paths [6]string) (*r3d.CubeTexture, error) {
	var images [6]image.Image
	var g errgroup.Group
	for i := range paths {
		i := i
		g.Go(func() error {
			img, err := decodeImageFile(paths[i])
			if err != nil {
				return errors.Wrapf(err, "cube face %d", i)
			}
			images[i] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	size := 0
	for _, img := range images {
		b := img.Bounds()
		if b.Dx() > size {
			size = b.Dx()
		}
		if b.Dy() > size {
			size = b.Dy()
		}
	}
	if size == 0 {
		return nil, errors.New("cube texture faces are empty")
	}

	cube := &r3d.CubeTexture{Size: size}
	for i, img := range images {
		face := image.NewNRGBA(image.Rect(0, 0, size, size))
		if b := img.Bounds(); b.Dx() == size && b.Dy() == size {
			draw.Draw(face, face.Rect, img, b.Min, draw.Src)
		} else {
			draw.ApproxBiLinear.Scale(face, face.Rect, img, b, draw.Src, nil)
		}
		cube.Faces[i] = face
	}
	return cube, nil
}
