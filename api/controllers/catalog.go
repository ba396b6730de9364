package controllers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/thriftlane-backend/api/responses"
	"github.com/angelmondragon/thriftlane-backend/api/validators"
	"github.com/angelmondragon/thriftlane-backend/internal/catalog"
	pkgerrors "github.com/angelmondragon/thriftlane-backend/pkg/errors"
	"github.com/angelmondragon/thriftlane-backend/pkg/logger"
)

const defaultMaxUploadMB = 20

// ProductsList returns unsold items, optionally filtered by ?gender=.
func ProductsList(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := svc.ListAvailable(r.Context(), r.URL.Query().Get("gender"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

func ProductGet(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		item, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

// UserItems lists the caller's own listings, sold or not.
func UserItems(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items, err := svc.ListByOwner(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

// ItemCreate accepts a multipart listing with repeated images (or images[]) parts.
func ItemCreate(svc catalog.Service, maxUploadMB int, logg *logger.Logger) http.HandlerFunc {
	if maxUploadMB <= 0 {
		maxUploadMB = defaultMaxUploadMB
	}
	maxBytes := int64(maxUploadMB) << 20

	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		if err := r.ParseMultipartForm(maxBytes); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "upload too large"))
				return
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form"))
			return
		}
		defer func() { _ = r.MultipartForm.RemoveAll() }()

		input, err := itemInputFromForm(r.MultipartForm)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := validators.Validate(&input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.CreateItem(r.Context(), userID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, item)
	}
}

func itemInputFromForm(form *multipart.Form) (catalog.CreateItemInput, error) {
	value := func(key string) string {
		if vals := form.Value[key]; len(vals) > 0 {
			return strings.TrimSpace(vals[0])
		}
		return ""
	}

	input := catalog.CreateItemInput{
		Name:        value("name"),
		Brand:       value("brand"),
		Size:        value("size"),
		Color:       value("color"),
		Description: value("description"),
		Category:    value("category"),
		Gender:      value("gender"),
	}

	if raw := value("price"); raw != "" {
		price, err := decimal.NewFromString(raw)
		if err != nil {
			return input, pkgerrors.New(pkgerrors.CodeValidation, "price must be a number").
				WithDetails(map[string]any{"field": "price"})
		}
		input.Price = price
	}

	files := append(append([]*multipart.FileHeader{}, form.File["images"]...), form.File["images[]"]...)
	for _, fh := range files {
		data, err := readPart(fh)
		if err != nil {
			return input, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read image upload")
		}
		input.Images = append(input.Images, catalog.ImageUpload{Filename: fh.Filename, Data: data})
	}
	return input, nil
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func AdminItemDelete(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
