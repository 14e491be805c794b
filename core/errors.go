package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	ShelfErrorConfigInvalid            = "SHELF_CONFIG_INVALID"
	ShelfErrorClientConstructionFailed = "SHELF_CLIENT_CONSTRUCTION_FAILED"
	ShelfErrorExtensionUnresolved      = "SHELF_EXTENSION_UNRESOLVED"
	ShelfErrorModelUnresolved          = "SHELF_MODEL_UNRESOLVED"
	ShelfErrorModelNotFound            = "SHELF_MODEL_NOT_FOUND"
	ShelfErrorEntityNotFound           = "SHELF_ENTITY_NOT_FOUND"
	ShelfErrorBadInput                 = "SHELF_BAD_INPUT"
	ShelfErrorInternal                 = "SHELF_INTERNAL_ERROR"
)

const (
	invalidOptionsMessagePrefix       = "invalid options"
	invalidClientOptionsMessagePrefix = "invalid client options"
	unresolvedExtensionMessagePrefix  = "invalid extension"
	unresolvedModelMessagePrefix      = "invalid model path"
)

// NewConfigValidationError reports the first schema violation found in the
// merged configuration.
func NewConfigValidationError(source error) error {
	return shelfWrapError(
		source,
		goerrors.CategoryValidation,
		invalidOptionsMessagePrefix,
		http.StatusBadRequest,
		ShelfErrorConfigInvalid,
		nil,
	)
}

// NewExternalConstructionError reports a client or ORM factory rejection. The
// collaborator message is kept verbatim in the error message.
func NewExternalConstructionError(source error, client string) error {
	return shelfWrapError(
		source,
		goerrors.CategoryOperation,
		invalidClientOptionsMessagePrefix,
		http.StatusInternalServerError,
		ShelfErrorClientConstructionFailed,
		map[string]any{"client": client},
	)
}

func NewExtensionResolutionError(source error, name string) error {
	return shelfWrapError(
		source,
		goerrors.CategoryNotFound,
		unresolvedExtensionMessagePrefix,
		http.StatusNotFound,
		ShelfErrorExtensionUnresolved,
		map[string]any{"extension": name},
	)
}

func NewModelResolutionError(source error, path string) error {
	return shelfWrapError(
		source,
		goerrors.CategoryNotFound,
		unresolvedModelMessagePrefix,
		http.StatusNotFound,
		ShelfErrorModelUnresolved,
		map[string]any{"model_path": path},
	)
}

func newModelNotFoundError(name string) error {
	return shelfError(
		"core: model not registered: "+name,
		goerrors.CategoryNotFound,
		http.StatusNotFound,
		ShelfErrorModelNotFound,
		map[string]any{"model": name},
	)
}

func newEntityNotFoundError(model string, id any) error {
	return shelfError(
		"core: entity not found",
		goerrors.CategoryNotFound,
		http.StatusNotFound,
		ShelfErrorEntityNotFound,
		map[string]any{"model": model, "id": id},
	)
}

func newBadInputError(message string) error {
	return shelfError(
		message,
		goerrors.CategoryBadInput,
		http.StatusBadRequest,
		ShelfErrorBadInput,
		nil,
	)
}

func IsConfigValidationError(err error) bool {
	return hasTextCode(err, ShelfErrorConfigInvalid)
}

func IsExternalConstructionError(err error) bool {
	return hasTextCode(err, ShelfErrorClientConstructionFailed)
}

func IsExtensionResolutionError(err error) bool {
	return hasTextCode(err, ShelfErrorExtensionUnresolved)
}

func IsModelResolutionError(err error) bool {
	return hasTextCode(err, ShelfErrorModelUnresolved)
}

func IsModelNotFound(err error) bool {
	return hasTextCode(err, ShelfErrorModelNotFound)
}

func IsEntityNotFound(err error) bool {
	return hasTextCode(err, ShelfErrorEntityNotFound)
}

func hasTextCode(err error, textCode string) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == textCode
}

func shelfError(
	message string,
	category goerrors.Category,
	code int,
	textCode string,
	metadata map[string]any,
) error {
	err := goerrors.New(message, category).
		WithCode(code).
		WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

// shelfWrapError keeps the source text in the message so callers matching on
// Error() see the collaborator's own wording.
func shelfWrapError(
	source error,
	category goerrors.Category,
	prefix string,
	code int,
	textCode string,
	metadata map[string]any,
) error {
	if source == nil {
		return shelfError(prefix, category, code, textCode, metadata)
	}
	message := prefix + ": " + strings.TrimSpace(source.Error())
	err := goerrors.Wrap(source, category, message).
		WithCode(code).
		WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func shelfErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureShelfErrorEnvelope(richErr)
	}
	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureShelfErrorEnvelope(mapped)
}

func ensureShelfErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = shelfHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultShelfTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultShelfTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput:
		return ShelfErrorBadInput
	case goerrors.CategoryValidation:
		return ShelfErrorConfigInvalid
	case goerrors.CategoryNotFound:
		return ShelfErrorModelNotFound
	default:
		return ShelfErrorInternal
	}
}

func shelfHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
