package converter

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sync"

	"github.com/phambaophuc/webp-converter/internal/apperror"
	"github.com/phambaophuc/webp-converter/internal/models"
	"github.com/phambaophuc/webp-converter/internal/services/assets"
	"github.com/phambaophuc/webp-converter/internal/services/processor"
	"go.uber.org/zap"
)

// processFiles converts every file of req with a bounded worker pool.
// Results are joined by position; a failing file does not stop the others.
func (s *Service) processFiles(ctx context.Context, userID string, asset *assets.Asset, req *models.ConversionRequest) []FileResult {
	results := make([]FileResult, len(req.Files))

	numWorkers := s.numWorkers
	if len(req.Files) < numWorkers {
		numWorkers = len(req.Files)
	}

	jobs := make(chan int, len(req.Files))
	var wg sync.WaitGroup

	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				file := req.Files[i]
				response, err := s.processFile(ctx, userID, asset, file, req.Options)
				if err != nil {
					results[i] = FileResult{Error: s.fileError(userID, file.Filename, err)}
					continue
				}
				results[i] = FileResult{Response: response}
			}
		}()
	}

	for i := range req.Files {
		jobs <- i
	}
	close(jobs)

	wg.Wait()

	return results
}

func (s *Service) processFile(
	ctx context.Context,
	userID string,
	asset *assets.Asset,
	file models.UploadedFile,
	options models.ConversionOptions,
) (*models.ConversionResponse, error) {
	original, err := processor.OpenImage(file.Filename, file.Data)
	if err != nil {
		return nil, err
	}
	defer original.Close()

	if err := original.SetFilename(file.Filename); err != nil {
		return nil, err
	}
	if err := original.VerifyIntegrity(); err != nil {
		return nil, err
	}

	originalData, err := s.persist(ctx, userID, asset, assets.KindOriginal, original)
	if err != nil {
		return nil, err
	}

	converted, err := s.processor.Convert(original, options)
	if err != nil {
		return nil, err
	}
	defer converted.Close()

	convertedData, err := s.persist(ctx, userID, asset, assets.KindConverted, converted)
	if err != nil {
		return nil, err
	}

	return &models.ConversionResponse{
		OriginalData:  originalData,
		ConvertedData: convertedData,
	}, nil
}

// persist uploads img under the kind folder and records it on the asset.
func (s *Service) persist(
	ctx context.Context,
	userID string,
	asset *assets.Asset,
	kind string,
	img *processor.ImageFile,
) (models.ImageData, error) {
	info, err := s.processor.GetInfo(img)
	if err != nil {
		return models.ImageData{}, err
	}

	relativePath := path.Join(kind, info.FilenameDetails.Fullname)
	fileURL, err := s.files.Upload(ctx, userID, relativePath, info.FileDetails.Content, info.ContentType())
	if err != nil {
		return models.ImageData{}, fmt.Errorf("failed to upload %s: %w", relativePath, err)
	}

	record, err := s.assets.CreateAssetFile(ctx, kind, info, fileURL, asset)
	if err != nil {
		return models.ImageData{}, fmt.Errorf("failed to record %s: %w", relativePath, err)
	}
	return record.ImageData(), nil
}

// fileError turns a pipeline failure into the error reported for one file.
// Infrastructure causes are logged and not exposed.
func (s *Service) fileError(userID, filename string, err error) *apperror.Error {
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return appErr
	}

	s.logger.Error("Failed to process file",
		zap.String("user_id", userID),
		zap.String("filename", filename),
		zap.Error(err))
	return apperror.ServerError(fmt.Sprintf("Failed to process file '%s'", filename))
}
