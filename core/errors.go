package core

import (
	"errors"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	AssemblyErrorConfigurationInvalid   = "ASSEMBLY_CONFIGURATION_INVALID"
	AssemblyErrorStorageProviderInvalid = "ASSEMBLY_STORAGE_PROVIDER_INVALID"
	AssemblyErrorModuleNotFound         = "ASSEMBLY_MODULE_NOT_FOUND"
	AssemblyErrorModuleInitFailed       = "ASSEMBLY_MODULE_INIT_FAILED"
	AssemblyErrorIndexDuplicateKey      = "ASSEMBLY_INDEX_DUPLICATE_KEY"
	AssemblyErrorResourceUnknown        = "ASSEMBLY_RESOURCE_UNKNOWN"
	AssemblyErrorBadInput               = "ASSEMBLY_BAD_INPUT"
	AssemblyErrorForbidden              = "ASSEMBLY_FORBIDDEN"
	AssemblyErrorAssertionFailed        = "ASSEMBLY_ASSERTION_FAILED"
	AssemblyErrorInternal               = "ASSEMBLY_INTERNAL_ERROR"
	AssemblyErrorMediaNotFound          = "ASSEMBLY_MEDIA_NOT_FOUND"
)

var (
	ErrUnknownResource        = errors.New("core: unknown resource")
	ErrDuplicateKey           = errors.New("core: duplicate key")
	ErrMediaNotFound          = errors.New("core: media not found")
	ErrModuleNotFound         = errors.New("core: module not found")
	ErrInvalidStorageProvider = errors.New("core: invalid media storage provider")
)

type ErrorMapper func(err error) *goerrors.Error

// ForbiddenError denies access to a resource.
type ForbiddenError struct {
	Reason string
}

func NewForbidden(reason string) *ForbiddenError {
	return &ForbiddenError{Reason: reason}
}

func (e *ForbiddenError) Error() string {
	if e == nil || strings.TrimSpace(e.Reason) == "" {
		return "forbidden"
	}
	return "forbidden: " + e.Reason
}

// AssertionError reports a failed precondition.
type AssertionError struct {
	Message string
}

func (e *AssertionError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// Assert returns an *AssertionError carrying message when ok is false.
func Assert(ok bool, message string) error {
	if ok {
		return nil
	}
	return &AssertionError{Message: message}
}

func configurationError(message string, source error) *goerrors.Error {
	var err *goerrors.Error
	if source != nil {
		err = goerrors.Wrap(source, goerrors.CategoryBadInput, message)
	} else {
		err = goerrors.New(message, goerrors.CategoryBadInput)
	}
	return err.
		WithCode(http.StatusInternalServerError).
		WithTextCode(AssemblyErrorConfigurationInvalid).
		WithSeverity(goerrors.SeverityCritical)
}

func storageProviderError(message string) *goerrors.Error {
	return goerrors.Wrap(ErrInvalidStorageProvider, goerrors.CategoryBadInput, message).
		WithCode(http.StatusInternalServerError).
		WithTextCode(AssemblyErrorStorageProviderInvalid).
		WithSeverity(goerrors.SeverityCritical)
}

func moduleNotFoundError(name string) *goerrors.Error {
	return goerrors.Wrap(ErrModuleNotFound, goerrors.CategoryNotFound, "core: module "+name+" is not registered").
		WithCode(http.StatusInternalServerError).
		WithTextCode(AssemblyErrorModuleNotFound).
		WithSeverity(goerrors.SeverityCritical)
}

// NewMediaNotFoundError is returned by MediaStorage backends for missing ids.
func NewMediaNotFoundError(resource string, id string) *goerrors.Error {
	return goerrors.Wrap(ErrMediaNotFound, goerrors.CategoryNotFound, "media "+id+" not found in "+resource).
		WithCode(http.StatusNotFound).
		WithTextCode(AssemblyErrorMediaNotFound)
}

func duplicateKeyError(resource string, index string, source error) *goerrors.Error {
	return goerrors.Wrap(source, goerrors.CategoryConflict, "core: duplicate key building index "+index+" on "+resource).
		WithCode(http.StatusConflict).
		WithTextCode(AssemblyErrorIndexDuplicateKey).
		WithSeverity(goerrors.SeverityCritical)
}

func assertionFailure(message string) *goerrors.Error {
	return goerrors.Wrap(&AssertionError{Message: message}, goerrors.CategoryBadInput, message).
		WithCode(http.StatusBadRequest).
		WithTextCode(AssemblyErrorAssertionFailed)
}

// DefaultErrorMapper maps errors through the go-errors default mappers.
func DefaultErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr
	}
	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	if mapped.Code == 0 {
		mapped.Code = http.StatusInternalServerError
	}
	if strings.TrimSpace(mapped.TextCode) == "" || mapped.TextCode == "INTERNAL_ERROR" {
		mapped.TextCode = AssemblyErrorInternal
	}
	return mapped
}
