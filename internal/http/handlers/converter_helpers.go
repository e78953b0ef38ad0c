package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/phambaophuc/webp-converter/internal/apperror"
	"github.com/phambaophuc/webp-converter/internal/models"
	"github.com/phambaophuc/webp-converter/internal/services/converter"
	"github.com/phambaophuc/webp-converter/internal/services/processor"
	"go.uber.org/zap"
)

// maxFormMemory keeps a full batch of maximum size files in memory.
const maxFormMemory = processor.MaxFileSize * (processor.MaxFilesLimit + 1)

// === REQUEST PARSING ===

// conversionForm binds options as text so a malformed quality is reported by
// validation together with every other problem of the request.
type conversionForm struct {
	OutputFormat string `form:"output_format"`
	Quality      string `form:"quality"`
}

// options maps an unparsable quality to 0, which is outside the allowed range.
func (f conversionForm) options() models.ConversionOptions {
	quality, err := strconv.Atoi(strings.TrimSpace(f.Quality))
	if err != nil {
		quality = 0
	}
	return models.ConversionOptions{
		OutputFormat: strings.ToUpper(strings.TrimSpace(f.OutputFormat)),
		Quality:      quality,
	}
}

func (h *ConverterHandler) parseConversionRequest(c *gin.Context) (*models.ConversionRequest, error) {
	if err := c.Request.ParseMultipartForm(maxFormMemory); err != nil {
		return nil, apperror.BadRequest("Invalid request", fmt.Sprintf("Failed to parse form data: %v", err))
	}

	var form conversionForm
	if err := c.ShouldBind(&form); err != nil {
		return nil, apperror.BadRequest("Invalid request", fmt.Sprintf("Failed to parse form data: %v", err))
	}
	options := form.options()

	var headers []*multipart.FileHeader
	if form := c.Request.MultipartForm; form != nil {
		headers = form.File[filesParamKey]
	}

	files, err := h.readUploadedFiles(headers)
	if err != nil {
		return nil, err
	}

	return &models.ConversionRequest{Files: files, Options: options}, nil
}

// readUploadedFiles loads every file part. Reads stop one byte past the size
// limit; oversized files are rejected by validation on their declared size.
func (h *ConverterHandler) readUploadedFiles(headers []*multipart.FileHeader) ([]models.UploadedFile, error) {
	files := make([]models.UploadedFile, 0, len(headers))

	for _, header := range headers {
		file, err := header.Open()
		if err != nil {
			h.logger.Error("Failed to open uploaded file", zap.String("filename", header.Filename), zap.Error(err))
			return nil, apperror.ServerError("Failed to read uploaded files")
		}

		data, err := io.ReadAll(io.LimitReader(file, processor.MaxFileSize+1))
		file.Close()
		if err != nil {
			h.logger.Error("Failed to read uploaded file", zap.String("filename", header.Filename), zap.Error(err))
			return nil, apperror.ServerError("Failed to read uploaded files")
		}

		files = append(files, models.UploadedFile{
			Filename: header.Filename,
			Size:     header.Size,
			Data:     data,
		})
	}

	return files, nil
}

// === RESPONSE HANDLING ===

func (h *ConverterHandler) respondBatch(c *gin.Context, batch *converter.BatchResult) {
	result := models.ActionResult{Error: batch.Errors()}
	if responses := batch.Responses(); len(responses) > 0 {
		result.Ok = responses
	}

	c.JSON(batch.Status(), result)
}

func (h *ConverterHandler) respondError(c *gin.Context, err error) {
	var appErr *apperror.Error
	if !errors.As(err, &appErr) {
		h.logger.Error("Request failed",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
		appErr = apperror.From(err)
	}

	c.JSON(appErr.Kind.HTTPStatus(), models.ActionResult{
		Error: []*apperror.Error{appErr},
	})
}

// Root is the liveness banner.
func Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "OK",
		"message": "Image converter is running",
	})
}
