package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		wantType ErrorType
		wantMsg  string
	}{
		{
			name:     "io error keeps path",
			err:      NewIOError("catalog.csv", fs.ErrNotExist),
			wantType: ErrTypeIO,
			wantMsg:  "[IO] cannot read catalog.csv: file does not exist",
		},
		{
			name:     "data format error names field",
			err:      NewDataFormatError("SDN_XLINK", nil),
			wantType: ErrTypeDataFormat,
			wantMsg:  "[DATA_FORMAT] malformed field SDN_XLINK",
		},
		{
			name:     "not found",
			err:      NewNotFoundError("session abc"),
			wantType: ErrTypeNotFound,
			wantMsg:  "[NOT_FOUND] session abc not found",
		},
		{
			name:     "render",
			err:      NewRenderError("png encode", nil),
			wantType: ErrTypeRender,
			wantMsg:  "[RENDER] png encode",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantType, tt.err.Type)
			assert.Equal(t, tt.wantMsg, tt.err.Error())
			assert.True(t, IsType(fmt.Errorf("wrapped: %w", tt.err), tt.wantType))
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	err := fmt.Errorf("open: %w", NewIOError("a.nc", fs.ErrNotExist))

	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.False(t, IsType(err, ErrTypeDataFormat))
	assert.False(t, IsType(fs.ErrNotExist, ErrTypeIO))
}

func TestField(t *testing.T) {
	assert.Equal(t, "TIME", Field(fmt.Errorf("fix: %w", NewDataFormatError("TIME", nil))))
	assert.Equal(t, "", Field(NewIOError("x", nil)))
	assert.Equal(t, "", Field(errors.New("plain")))
}

func TestAPIErrorHelpers(t *testing.T) {
	err := ErrValidation("vectors", "must be between 40 and 800")
	assert.Equal(t, 400, err.StatusCode)
	assert.Equal(t, ValidationError{Field: "vectors", Message: "must be between 40 and 800"}, err.Details)

	multi := NewValidationErrors([]ValidationError{{Field: "file"}, {Field: "format"}})
	assert.Equal(t, "VALIDATION_FAILED", multi.ErrorCode)
	assert.Len(t, multi.Details.(ValidationErrors).Errors, 2)

	decode := InvalidRequestWithError(fmt.Errorf("unexpected EOF"))
	assert.Equal(t, ErrInvalidRequest.ErrorCode, decode.ErrorCode)
	assert.Equal(t, "unexpected EOF", decode.Details)
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, ErrRenderFailed)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body struct {
		Success bool      `json:"success"`
		Error   *APIError `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "RENDER_FAILED", body.Error.ErrorCode)
}
