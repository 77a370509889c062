package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

type ApiErrorType int

const (
	ApiErrorTypeUnknown ApiErrorType = iota
	ApiErrorTypeBadParam
	ApiErrorTypeMissingParam
	ApiErrorTypeInconsistentPage
)

var apiErrorTypeNames = map[ApiErrorType]string{
	ApiErrorTypeUnknown:          "unknown",
	ApiErrorTypeBadParam:         "bad_param",
	ApiErrorTypeMissingParam:     "missing_param",
	ApiErrorTypeInconsistentPage: "inconsistent_page",
}

var ErrInvalidApiErrorType = fmt.Errorf("not a valid ApiErrorType, try [%s]", strings.Join([]string{
	"unknown", "bad_param", "missing_param", "inconsistent_page",
}, ", "))

func (x ApiErrorType) String() string {
	if name, ok := apiErrorTypeNames[x]; ok {
		return name
	}
	return fmt.Sprintf("ApiErrorType(%d)", x)
}

func ParseApiErrorType(name string) (ApiErrorType, error) {
	for value, candidate := range apiErrorTypeNames {
		if candidate == name {
			return value, nil
		}
	}
	return ApiErrorTypeUnknown, fmt.Errorf("%s is %w", name, ErrInvalidApiErrorType)
}

func (x ApiErrorType) MarshalText() ([]byte, error) {
	return []byte(x.String()), nil
}

func (x *ApiErrorType) UnmarshalText(text []byte) (err error) {
	*x, err = ParseApiErrorType(string(text))
	return
}

type ApiError struct {
	Type    ApiErrorType
	Details []string
}

func (res ApiError) Description() string {
	switch res.Type {
	case ApiErrorTypeBadParam:
		return "A validation error occurred"
	case ApiErrorTypeMissingParam:
		return "A required parameter is missing"
	case ApiErrorTypeInconsistentPage:
		return "The page counts are inconsistent with its items"
	default:
		return "An unknown error occurred"
	}
}

type apiErrorJSON struct {
	Type        ApiErrorType `json:"error"`
	Description string       `json:"error_description"`
	Details     []string     `json:"error_details"`
}

func (res ApiError) MarshalJSON() ([]byte, error) {
	details := res.Details
	if details == nil {
		details = []string{}
	}
	return json.Marshal(apiErrorJSON{
		Type:        res.Type,
		Description: res.Description(),
		Details:     details,
	})
}

func (res *ApiError) UnmarshalJSON(data []byte) error {
	var decoded apiErrorJSON
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*res = ApiError{Type: decoded.Type, Details: decoded.Details}
	return nil
}

func (res ApiError) Error() string {
	return fmt.Sprintf("%s: %s\n%s", res.Type, res.Description(), strings.Join(res.Details, "\n"))
}

type FailureDetails[T any] struct {
	ApiError
	Item T
}

// KLUDGE:
//
//	ApiError's Marshaler is promoted to FailureDetails through embedding, so
//	without this override the Item field would never be written.
func (failure FailureDetails[T]) MarshalJSON() ([]byte, error) {
	details := failure.Details
	if details == nil {
		details = []string{}
	}
	return json.Marshal(struct {
		Item        T            `json:"item"`
		Type        ApiErrorType `json:"error"`
		Description string       `json:"error_description"`
		Details     []string     `json:"error_details"`
	}{
		Item:        failure.Item,
		Type:        failure.Type,
		Description: failure.Description(),
		Details:     details,
	})
}

type BulkApiResponse[T any] struct {
	Success  int                 `json:"success"`
	Total    int                 `json:"total"`
	Failures []FailureDetails[T] `json:"failures"`
}
