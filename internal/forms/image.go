package forms

import (
	"bytes"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/dukerupert/smartshop/internal/api"
	"github.com/dukerupert/smartshop/internal/errors"
	"github.com/dukerupert/smartshop/internal/imageutil"
)

// ImageField is the form and payload name of every entity picture.
const ImageField = "img"

// Image is an entity picture: the URL already stored or a new upload.
// Only a new upload is ever sent to the backend.
type Image struct {
	URL     string
	File    *api.File
	Preview string
}

// Src is what an <img> tag should show.
func (i Image) Src() string {
	if i.Preview != "" {
		return i.Preview
	}
	return i.URL
}

// ReadImage reads the upload under field. The current URL travels in the
// hidden "<field>_url" input and is kept when no new file was chosen.
func ReadImage(r *http.Request, field string) (Image, error) {
	img := Image{URL: strings.TrimSpace(r.FormValue(field + "_url"))}

	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return img, nil
		}
		return img, errors.Validation("Erro ao processar imagem. Tente novamente.", map[string][]string{field: {"Erro ao processar imagem. Tente novamente."}}).WithCause(err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, imageutil.MaxSize+1))
	if err != nil {
		return img, errors.Internal("falha ao ler imagem").WithCause(err)
	}
	if err := imageutil.Validate(http.DetectContentType(data), int64(len(data))); err != nil {
		return img, fieldError(field, err)
	}

	res, err := imageutil.Compress(bytes.NewReader(data))
	if err != nil {
		return img, fieldError(field, err)
	}

	name := strings.TrimSuffix(filepath.Base(header.Filename), filepath.Ext(header.Filename)) + ".jpg"
	img.File = &api.File{Field: field, Name: name, ContentType: res.ContentType, Data: res.Data}
	img.Preview = imageutil.DataURL(res.ContentType, res.Data)
	return img, nil
}

func fieldError(field string, err error) error {
	msg := errors.Message(err)
	return errors.Validation(msg, map[string][]string{field: {msg}}).WithCause(err)
}
