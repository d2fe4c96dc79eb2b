package models

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
)

// ErrSizeMismatch размер скачанного файла не совпал с ожидаемым
var ErrSizeMismatch = errors.New("downloaded size mismatch")

// ProgressFunc функция для отчёта о прогрессе (0-100)
type ProgressFunc func(progress float64)

// DownloadFile скачивает файл по URL с отображением прогресса.
// Файл пишется во временный .tmp и переименовывается только после полной загрузки.
func DownloadFile(ctx context.Context, url, destPath string, expectedSize int64, onProgress ProgressFunc) error {
	// Создаём директорию если нужно
	dir := filepath.Dir(destPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmpPath := destPath + ".tmp"
	out, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer out.Close()

	fail := func(err error) error {
		out.Close()
		os.Remove(tmpPath)
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fail(fmt.Errorf("failed to create request: %w", err))
	}

	client := &http.Client{
		Timeout: 0, // Без таймаута для больших файлов, отмена через ctx
	}
	resp, err := client.Do(req)
	if err != nil {
		return fail(fmt.Errorf("failed to download: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fail(fmt.Errorf("bad status: %s", resp.Status))
	}

	totalSize := resp.ContentLength
	if totalSize <= 0 && expectedSize > 0 {
		totalSize = expectedSize
	}

	reader := &progressReader{
		reader:     resp.Body,
		totalSize:  totalSize,
		onProgress: onProgress,
	}

	written, err := io.Copy(out, reader)
	if err != nil {
		return fail(fmt.Errorf("failed to write file: %w", err))
	}
	if expectedSize > 0 && written != expectedSize {
		return fail(fmt.Errorf("%w: got %d bytes, want %d", ErrSizeMismatch, written, expectedSize))
	}

	// Закрываем файл перед переименованием
	if err := out.Close(); err != nil {
		return fail(fmt.Errorf("failed to close file: %w", err))
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename file: %w", err)
	}

	if onProgress != nil {
		onProgress(100)
	}
	log.WithFields(log.Fields{"url": url, "file": destPath, "bytes": written}).Debug("download complete")
	return nil
}

// progressReader обёртка для io.Reader с отслеживанием прогресса
type progressReader struct {
	reader       io.Reader
	totalSize    int64
	downloaded   int64
	onProgress   ProgressFunc
	lastReport   time.Time
	reportPeriod time.Duration
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	if n > 0 {
		pr.downloaded += int64(n)

		// Ограничиваем частоту отчётов
		now := time.Now()
		if pr.reportPeriod == 0 {
			pr.reportPeriod = 500 * time.Millisecond
		}

		if pr.onProgress != nil && (now.Sub(pr.lastReport) >= pr.reportPeriod || err == io.EOF) {
			pr.lastReport = now
			if pr.totalSize > 0 {
				pr.onProgress(float64(pr.downloaded) / float64(pr.totalSize) * 100)
			}
		}
	}
	return n, err
}
