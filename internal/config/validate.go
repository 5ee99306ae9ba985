package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Validate checks that the settings required by the given command mode are
// present and in range. Mode is one of download, extract, digitize, run.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "download":
		errs = append(errs, c.validateLocator()...)
	case "extract":
		errs = append(errs, c.validateExtract()...)
	case "digitize":
		errs = append(errs, c.validateDigitize()...)
	case "run":
		errs = append(errs, c.validateLocator()...)
		errs = append(errs, c.validateExtract()...)
		errs = append(errs, c.validateDigitize()...)
	case "status", "export":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}
	errs = append(errs, c.validateStorage()...)

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateLocator() []string {
	var errs []string
	if c.Locator.BaseURL == "" {
		errs = append(errs, "locator.base_url is required")
	}
	if !strings.Contains(c.Locator.FilenameTemplate, "{date}") {
		errs = append(errs, "locator.filename_template must contain {date}")
	}
	if len(c.Locator.Encodings) == 0 {
		errs = append(errs, "locator.encodings must not be empty")
	}
	if _, err := time.Parse(time.DateOnly, c.Locator.OriginDate); err != nil {
		errs = append(errs, "locator.origin_date must be YYYY-MM-DD")
	}
	if c.Locator.DelayMs < 0 {
		errs = append(errs, "locator.delay_ms must be >= 0")
	}
	return errs
}

func (c *Config) validateExtract() []string {
	var errs []string
	if len(c.Extract.Titles) == 0 {
		errs = append(errs, "extract.titles must not be empty")
	}
	if c.Extract.FooterThreshold <= 0 {
		errs = append(errs, "extract.footer_threshold must be > 0")
	}
	if c.Extract.Resolution <= 0 {
		errs = append(errs, "extract.resolution must be > 0")
	}
	switch c.Extract.Renderer {
	case "pdftoppm", "mupdf", "":
	default:
		errs = append(errs, "extract.renderer must be pdftoppm or mupdf")
	}
	return errs
}

func (c *Config) validateDigitize() []string {
	var errs []string
	if len(c.Digitize.Variants) == 0 {
		errs = append(errs, "digitize.variants must not be empty")
	}
	if c.Digitize.Tolerance < 0 {
		errs = append(errs, "digitize.tolerance must be >= 0")
	}
	if c.Digitize.MaxOffsetRatio <= 0 || c.Digitize.MaxOffsetRatio > 1 {
		errs = append(errs, "digitize.max_offset_ratio must be in (0, 1]")
	}
	for name, rgb := range map[string][]int{
		"dark":       c.Digitize.Palette.Dark,
		"light":      c.Digitize.Palette.Light,
		"background": c.Digitize.Palette.Background,
	} {
		if len(rgb) != 3 {
			errs = append(errs, "digitize.palette."+name+" must have 3 components")
		}
	}
	switch c.OCR.Provider {
	case "vision":
		if c.OCR.Vision.APIKey == "" && c.OCR.Vision.AccessToken == "" {
			errs = append(errs, "ocr.vision.api_key or ocr.vision.access_token is required")
		}
	case "tesseract":
	default:
		errs = append(errs, "ocr.provider must be vision or tesseract")
	}
	return errs
}

func (c *Config) validateStorage() []string {
	var errs []string
	if c.Storage.LocalDir == "" {
		errs = append(errs, "storage.local_dir is required")
	}
	if c.Storage.EstimatesKey == "" || c.Storage.ConfidenceKey == "" {
		errs = append(errs, "storage.estimates_key and storage.confidence_key are required")
	} else if c.Storage.EstimatesKey == c.Storage.ConfidenceKey {
		errs = append(errs, "storage.estimates_key and storage.confidence_key must differ")
	}

	cl := c.Storage.Cloud
	switch cl.Driver {
	case "":
	case "s3":
		if cl.Endpoint == "" || cl.Bucket == "" {
			errs = append(errs, "storage.cloud.endpoint and storage.cloud.bucket are required for s3")
		}
	case "postgres", "sqlite":
		if cl.DatabaseURL == "" {
			errs = append(errs, "storage.cloud.database_url is required for "+cl.Driver)
		}
	case "ftp":
		if cl.Endpoint == "" {
			errs = append(errs, "storage.cloud.endpoint is required for ftp")
		}
	default:
		errs = append(errs, "storage.cloud.driver must be one of s3, postgres, sqlite, ftp")
	}
	return errs
}
