package api

import (
	"crypto/rand"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lost-woods/randtest/src/bitstream"
	"github.com/lost-woods/randtest/src/measure"
)

type Handlers struct {
	dataDir string
	ids     io.Reader
	log     *zap.SugaredLogger
}

// NewHandlers serves files for evaluation from dataDir; an empty dataDir
// disables the evaluate endpoint.
func NewHandlers(dataDir string, log *zap.SugaredLogger) *Handlers {
	return &Handlers{dataDir: dataDir, ids: rand.Reader, log: log}
}

// resolve maps a client path onto dataDir. Cleaning it as an absolute path
// first keeps ".." from climbing out.
func (h *Handlers) resolve(name string) (string, error) {
	if h.dataDir == "" {
		return "", errors.New("evaluation is disabled: no data directory configured")
	}
	if name == "" {
		return "", errors.New("file is required")
	}
	return filepath.Join(h.dataDir, filepath.Clean("/"+name)), nil
}

func (h *Handlers) dataDirOK() (bool, string) {
	if h.dataDir == "" {
		return true, ""
	}
	info, err := os.Stat(h.dataDir)
	if err != nil {
		return false, "data directory unavailable: " + err.Error()
	}
	if !info.IsDir() {
		return false, "data directory is not a directory"
	}
	return true, ""
}

// statusFor maps domain errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, bitstream.ErrSourceUnavailable):
		return http.StatusNotFound
	case errors.Is(err, measure.ErrPartitionMismatch),
		errors.Is(err, bitstream.ErrExhausted),
		errors.Is(err, measure.ErrEmptyHistogram):
		return http.StatusUnprocessableEntity
	case errors.Is(err, measure.ErrInvalidDomain),
		errors.Is(err, measure.ErrInvalidPartition),
		errors.Is(err, measure.ErrLengthMismatch):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

/*
handle enforces:
1. Outcome computation (NO request id here)
2. Error handling
3. Request id generation ONLY after success
4. JSON vs plaintext response
*/
func (h *Handlers) handle(
	c *gin.Context,
	work func() (text string, payload gin.H, status int, errMsg string),
) {
	text, payload, status, errMsg := work()
	if errMsg != "" {
		responder{c}.err(status, errMsg)
		return
	}

	requestID, err := bitstream.NewUUIDv4(h.ids)
	if err != nil {
		h.log.Error(err)
		responder{c}.err(http.StatusInternalServerError, "Error generating request id.")
		return
	}

	responder{c}.ok(text, payload, requestID)
}

func CheckHeader(headerName, expectedValue string) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Auth disabled if not configured
		if expectedValue == "" {
			c.Next()
			return
		}

		if c.GetHeader(headerName) != expectedValue {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		c.Next()
	}
}
