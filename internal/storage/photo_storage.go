package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/h2non/filetype"
)

// PhotoStorage отвечает за файловое хранилище фотографий профилей.
// Файлы лежат плоско под корневым каталогом с именем-идентификатором;
// тип содержимого определяется по сигнатуре при сохранении и отдаче.
type PhotoStorage struct {
	rootPath       string
	maxUploadBytes int64
}

// NewPhotoStorage создаёт файловое хранилище.
func NewPhotoStorage(rootPath string, maxUploadMB int64) (*PhotoStorage, error) {
	if err := os.MkdirAll(rootPath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: не удалось создать каталог %s: %w", rootPath, err)
	}

	return &PhotoStorage{
		rootPath:       rootPath,
		maxUploadBytes: maxUploadMB * 1024 * 1024,
	}, nil
}

// Save проверяет, что содержимое - изображение, и сохраняет его.
// Возвращает идентификатор, под которым файл можно получить и удалить.
func (s *PhotoStorage) Save(ctx context.Context, r io.Reader) (uuid.UUID, error) {
	if err := ctx.Err(); err != nil {
		return uuid.Nil, err
	}

	limited := io.LimitedReader{R: r, N: s.maxUploadBytes + 1}
	data, err := io.ReadAll(&limited)
	if err != nil {
		return uuid.Nil, fmt.Errorf("storage: ошибка чтения файла: %w", err)
	}
	if int64(len(data)) > s.maxUploadBytes {
		return uuid.Nil, fmt.Errorf("storage: размер файла превышает лимит %d байт", s.maxUploadBytes)
	}

	if !filetype.IsImage(data) {
		return uuid.Nil, fmt.Errorf("storage: файл не является изображением")
	}

	photoID := uuid.New()
	targetPath := filepath.Join(s.rootPath, photoID.String())
	tempPath := targetPath + ".tmp"

	if err := os.WriteFile(tempPath, data, 0o644); err != nil {
		return uuid.Nil, fmt.Errorf("storage: ошибка записи файла: %w", err)
	}
	if err := os.Rename(tempPath, targetPath); err != nil {
		_ = os.Remove(tempPath)
		return uuid.Nil, fmt.Errorf("storage: не удалось переименовать файл: %w", err)
	}

	return photoID, nil
}

// Open возвращает содержимое фотографии и её MIME-тип.
func (s *PhotoStorage) Open(ctx context.Context, photoID uuid.UUID) ([]byte, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	data, err := os.ReadFile(filepath.Join(s.rootPath, photoID.String()))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", fmt.Errorf("storage: файл не найден")
		}
		return nil, "", fmt.Errorf("storage: ошибка чтения файла: %w", err)
	}

	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown {
		return data, "application/octet-stream", nil
	}
	return data, kind.MIME.Value, nil
}

// Delete удаляет фотографию. Отсутствующий файл не ошибка.
func (s *PhotoStorage) Delete(ctx context.Context, photoID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	target := filepath.Join(s.rootPath, photoID.String())
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage: не удалось удалить файл: %w", err)
	}
	return nil
}
