// Package errors contains helper functions and types to classify provisioning failures
package errors

import (
	"errors"
)

// Category defines error category
type Category int

const (
	// CategoryNoError is reported when a run completes without error.
	CategoryNoError Category = iota
	// CategoryConfig Operator credentials or configuration are missing or malformed.
	// Always raised before any network call is attempted.
	CategoryConfig
	// CategoryNetworkUnavailable The session's retry policy was exhausted
	// or the network could not be reached at all.
	CategoryNetworkUnavailable
	// CategoryCreationRejected The network rejected an account creation
	// (direct create or alias funding).
	CategoryCreationRejected
	// CategoryTransferRejected A value transfer receipt carried a non-success status.
	CategoryTransferRejected
	// CategoryInsufficientFunds A transfer or fee payment was rejected for lack of balance.
	CategoryInsufficientFunds
	// CategoryClassCreationRejected A token class creation receipt carried a non-success status.
	CategoryClassCreationRejected
	// CategoryMintRejected A batch mint receipt carried a non-success status.
	CategoryMintRejected
	// CategoryResolutionNotReady A funded alias is not yet visible as an account.
	CategoryResolutionNotReady
	// CategoryReportIncomplete The final report is missing a record.
	CategoryReportIncomplete
	// CategoryGeneralError The run failed in an unexpected way
	CategoryGeneralError
)

func (c Category) String() string {
	switch c {
	case CategoryNoError:
		return "CategoryNoError"
	case CategoryConfig:
		return "CategoryConfig"
	case CategoryNetworkUnavailable:
		return "CategoryNetworkUnavailable"
	case CategoryCreationRejected:
		return "CategoryCreationRejected"
	case CategoryTransferRejected:
		return "CategoryTransferRejected"
	case CategoryInsufficientFunds:
		return "CategoryInsufficientFunds"
	case CategoryClassCreationRejected:
		return "CategoryClassCreationRejected"
	case CategoryMintRejected:
		return "CategoryMintRejected"
	case CategoryResolutionNotReady:
		return "CategoryResolutionNotReady"
	case CategoryReportIncomplete:
		return "CategoryReportIncomplete"
	default:
		return "CategoryGeneralError"
	}
}

// ServiceError represents a classified failure that is
// used all over the provisioning pipeline.
type ServiceError struct {
	Category Category
	Message  string
	Err      error
}

// Error method to comply with error interface
func (err ServiceError) Error() string {
	if err.Err != nil {
		if err.Message == "" {
			return err.Err.Error()
		}
		return err.Message + ": " + err.Err.Error()
	}
	return err.Message
}

// Unwrap returns the underlying error
func (err ServiceError) Unwrap() error {
	return err.Err
}

// Is checks that provided error is a ServiceError with desired Category.
// Only the outermost ServiceError in the chain is considered.
func Is(err error, cat Category) bool {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) && svcErr.Category == cat {
		return true
	}
	return false
}

// Has reports whether any ServiceError in the chain carries the Category.
// Useful when a rejection subtype was wrapped by a broader one.
func Has(err error, cat Category) bool {
	for err != nil {
		if svcErr, ok := err.(*ServiceError); ok && svcErr.Category == cat {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}

// CategoryOf returns the category of the outermost ServiceError,
// CategoryGeneralError for unclassified errors and CategoryNoError for nil.
func CategoryOf(err error) Category {
	if err == nil {
		return CategoryNoError
	}
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.Category
	}
	return CategoryGeneralError
}

func newError(cat Category, err error, message string) error {
	if err == nil {
		err = errors.New(message)
		message = ""
	}
	return &ServiceError{
		Category: cat,
		Message:  message,
		Err:      err,
	}
}

// ConfigError returns an error with category CategoryConfig
func ConfigError(err error, message string) error {
	return newError(CategoryConfig, err, message)
}

// NetworkUnavailableError returns an error with category CategoryNetworkUnavailable
func NetworkUnavailableError(err error, message string) error {
	return newError(CategoryNetworkUnavailable, err, message)
}

// CreationRejectedError returns an error with category CategoryCreationRejected
func CreationRejectedError(err error, message string) error {
	return newError(CategoryCreationRejected, err, message)
}

// TransferRejectedError returns an error with category CategoryTransferRejected
func TransferRejectedError(err error, message string) error {
	return newError(CategoryTransferRejected, err, message)
}

// InsufficientFundsError returns an error with category CategoryInsufficientFunds
func InsufficientFundsError(err error, message string) error {
	return newError(CategoryInsufficientFunds, err, message)
}

// ClassCreationRejectedError returns an error with category CategoryClassCreationRejected
func ClassCreationRejectedError(err error, message string) error {
	return newError(CategoryClassCreationRejected, err, message)
}

// MintRejectedError returns an error with category CategoryMintRejected
func MintRejectedError(err error, message string) error {
	return newError(CategoryMintRejected, err, message)
}

// ResolutionNotReadyError returns an error with category CategoryResolutionNotReady
func ResolutionNotReadyError(err error, message string) error {
	return newError(CategoryResolutionNotReady, err, message)
}

// ReportIncompleteError returns an error with category CategoryReportIncomplete
func ReportIncompleteError(err error, message string) error {
	return newError(CategoryReportIncomplete, err, message)
}

// GeneralError returns a general error for failures that fit no other category
func GeneralError(err error) error {
	if err == nil {
		err = errors.New("internal error")
	}
	return &ServiceError{
		Category: CategoryGeneralError,
		Err:      err,
	}
}

// ExitCode returns the process exit code for the error category
func (err ServiceError) ExitCode() int {
	return ExitCode(err.Category)
}

// ExitCode maps a category to a process exit code. Zero is reserved for success.
func ExitCode(cat Category) int {
	switch cat {
	case CategoryNoError:
		return 0
	case CategoryConfig:
		return 2
	case CategoryNetworkUnavailable:
		return 3
	case CategoryCreationRejected, CategoryTransferRejected, CategoryInsufficientFunds:
		return 4
	case CategoryClassCreationRejected, CategoryMintRejected:
		return 5
	case CategoryResolutionNotReady:
		return 6
	case CategoryReportIncomplete:
		return 7
	default:
		return 1
	}
}
