package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/thinkful-ei23/DavidF-noteful-v3/internal/apperr"
	"go.uber.org/zap"
)

const invalidBodyMessage = "Request body must be valid JSON"

type codedError interface {
	Code() string
}

// respondError renders err as {message}. Server failures also carry the internal error code.
func (h *httpHandler) respondError(c *gin.Context, operation string, err error) {
	status := apperr.StatusOf(err)
	switch {
	case status >= http.StatusInternalServerError:
		body := gin.H{"message": http.StatusText(status)}
		var coded codedError
		if errors.As(err, &coded) {
			body["code"] = coded.Code()
		}
		h.logger.Error("request failed",
			zap.String("operation", operation),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(status, body)
	case status == http.StatusNotFound:
		c.JSON(status, gin.H{"message": http.StatusText(status)})
	default:
		body := gin.H{"message": err.Error()}
		var validationErr *apperr.ValidationError
		if errors.As(err, &validationErr) && validationErr.Field != "" {
			body["location"] = validationErr.Field
		}
		c.JSON(status, body)
	}
}

// decodeJSON binds an optional JSON body into target. An empty body leaves target untouched.
func decodeJSON(c *gin.Context, target any) bool {
	if c.Request.Body == nil {
		return true
	}
	if err := c.ShouldBindJSON(target); err != nil {
		if errors.Is(err, io.EOF) {
			return true
		}
		c.JSON(http.StatusBadRequest, gin.H{"message": invalidBodyMessage})
		return false
	}
	return true
}

// OptionalString distinguishes an absent JSON field from null and from a value.
type OptionalString struct {
	Present bool
	Value   *string
}

// UnmarshalJSON is only invoked when the field is present.
func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Present = true
	if string(bytes.TrimSpace(data)) == "null" {
		o.Value = nil
		return nil
	}
	var value string
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	o.Value = &value
	return nil
}

// OrEmpty returns a pointer for present fields, mapping null to the empty string, and nil when absent.
func (o OptionalString) OrEmpty() *string {
	if !o.Present {
		return nil
	}
	if o.Value == nil {
		empty := ""
		return &empty
	}
	return o.Value
}

// OptionalStrings is the list counterpart of OptionalString. Null is read as an empty list;
// non-string elements are kept as empty identifiers so reference checks reject them.
type OptionalStrings struct {
	Present  bool
	NotArray bool
	Values   []string
}

// UnmarshalJSON is only invoked when the field is present.
func (o *OptionalStrings) UnmarshalJSON(data []byte) error {
	o.Present = true
	o.Values = []string{}
	if string(bytes.TrimSpace(data)) == "null" {
		return nil
	}
	var elements []json.RawMessage
	if err := json.Unmarshal(data, &elements); err != nil {
		o.NotArray = true
		return nil
	}
	for _, element := range elements {
		var value string
		if err := json.Unmarshal(element, &value); err != nil {
			value = ""
		}
		o.Values = append(o.Values, value)
	}
	return nil
}

// Ptr returns nil when the field was absent.
func (o OptionalStrings) Ptr() *[]string {
	if !o.Present {
		return nil
	}
	values := o.Values
	return &values
}
