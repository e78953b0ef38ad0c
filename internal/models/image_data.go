package models

// ImageData is the client view of one stored image.
type ImageData struct {
	ID                string            `json:"id"`
	URL               string            `json:"url"`
	Filename          string            `json:"filename"`
	FilenameShorter   string            `json:"filename_shorter"`
	ContentType       string            `json:"content_type"`
	Format            string            `json:"format"`
	FormatDescription string            `json:"format_description"`
	Size              int64             `json:"size"`
	Width             int               `json:"width"`
	Height            int               `json:"height"`
	AspectRatio       float64           `json:"aspect_ratio"`
	ColorMode         string            `json:"color_mode"`
	Exif              map[string]string `json:"exif"`
}

type ConversionResponse struct {
	OriginalData  ImageData `json:"original_data"`
	ConvertedData ImageData `json:"converted_data"`
}

type ZipResponse struct {
	ZipURL string `json:"zip_url"`
}
