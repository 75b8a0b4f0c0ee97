package echoapi

import (
	"fmt"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/gradesheet"
)

var validationFailed = "validation failed"

// ErrorResponse is the payload of every error response.
type ErrorResponse struct {
	Error     string            `json:"error"`
	Details   string            `json:"details,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
	FoundRows [][]string        `json:"found_rows,omitempty"`
	Stack     string            `json:"stack,omitempty"` // debug only
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var resp ErrorResponse

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			resp.Error = fmt.Sprint(origErr.Message)
		case validator.ValidationErrors:
			code = http.StatusBadRequest
			resp.Error = validationFailed
			resp.Fields = make(map[string]string, len(origErr))
			for i, vErr := range origErr {
				msg := vErr.Translate(translator)
				if i == 0 {
					resp.Error = msg
				}
				resp.Fields[vErr.Field()] = msg
			}
		case *core.ValidationError:
			code = http.StatusBadRequest
			resp.Error = origErr.Error()
			if resp.Error == "" {
				resp.Error = validationFailed
			}
			if len(origErr.Fields) > 0 {
				resp.Fields = make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					resp.Fields[fErr.Field] = fErr.Error
				}
			}
		case *core.ConflictError:
			code = http.StatusBadRequest
			resp.Error = origErr.Error()
			resp.Fields = map[string]string{origErr.Field: origErr.Error()}
		case *core.NotFoundError:
			code = http.StatusNotFound
			resp.Error = origErr.Error()
		case *gradesheet.TemplateError:
			code = http.StatusBadRequest
			resp.Error = origErr.Error()
			resp.Details = origErr.Detail
			resp.FoundRows = origErr.FoundRows
		default: // any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			resp.Error = msg
			resp.Details = origErr.Error()
			if ctx.Echo().Debug {
				resp.Stack = fmt.Sprintf("%+v", err)
			}

			logger.Error(msg, errors.Wrap(err, msg), ctx.Request())

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, resp)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
