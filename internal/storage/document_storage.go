package storage

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/h2non/filetype"
	"golang.org/x/crypto/blake2b"

	"github.com/ignatzorin/research-review/internal/pkg/apperror"
)

// sniffSize с запасом покрывает распознавание docx, которому нужно заглянуть внутрь zip.
const sniffSize = 8 * 1024

var allowedDocumentTypes = map[string]bool{
	"pdf":  true,
	"docx": true,
	"doc":  true,
	"odt":  true,
}

// StoredDocument: результат загрузки. Ref используется как documentRef заявки.
type StoredDocument struct {
	Ref      string `json:"document_ref"`
	Checksum string `json:"checksum"`
	Size     int64  `json:"size"`
	MIME     string `json:"mime_type"`
}

// DocumentStorage хранит документы заявок на диске в каталогах владельцев.
type DocumentStorage struct {
	rootPath       string
	maxUploadBytes int64
	now            func() time.Time
}

func NewDocumentStorage(rootPath string, maxUploadMB int64) (*DocumentStorage, error) {
	if err := os.MkdirAll(rootPath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: не удалось создать каталог %s: %w", rootPath, err)
	}
	return &DocumentStorage{
		rootPath:       rootPath,
		maxUploadBytes: maxUploadMB * 1024 * 1024,
		now:            time.Now,
	}, nil
}

// Save проверяет тип по сигнатуре, пишет файл через временный и считает BLAKE2b-256.
func (s *DocumentStorage) Save(ctx context.Context, ownerID uuid.UUID, originalName string, r io.Reader) (*StoredDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	head := make([]byte, sniffSize)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("storage: не удалось прочитать файл: %w", err)
	}
	if n == 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "файл не может быть пустым")
	}
	head = head[:n]

	kind, err := filetype.Match(head)
	if err != nil || kind == filetype.Unknown || !allowedDocumentTypes[kind.Extension] {
		return nil, apperror.New(apperror.ErrCodeValidation, "неподдерживаемый тип документа, разрешены PDF, DOCX, DOC, ODT")
	}

	ownerDir := filepath.Join(s.rootPath, ownerID.String())
	if err := os.MkdirAll(ownerDir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: не удалось создать каталог владельца: %w", err)
	}
	fileName := fmt.Sprintf("%d_%s.%s", s.now().UnixNano(), baseName(originalName), kind.Extension)
	targetPath := filepath.Join(ownerDir, fileName)
	tempPath := targetPath + ".tmp"

	f, err := os.Create(tempPath)
	if err != nil {
		return nil, fmt.Errorf("storage: не удалось создать файл: %w", err)
	}
	defer f.Close()

	hash, _ := blake2b.New256(nil)
	limited := &io.LimitedReader{R: io.MultiReader(bytes.NewReader(head), r), N: s.maxUploadBytes + 1}
	written, err := io.Copy(io.MultiWriter(f, hash), limited)
	if err != nil {
		_ = os.Remove(tempPath)
		return nil, fmt.Errorf("storage: ошибка записи файла: %w", err)
	}
	if written > s.maxUploadBytes {
		_ = os.Remove(tempPath)
		return nil, apperror.Newf(apperror.ErrCodeValidation, "размер файла превышает лимит %d МБ", s.maxUploadBytes/(1024*1024))
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tempPath)
		return nil, fmt.Errorf("storage: ошибка закрытия файла: %w", err)
	}
	if err := os.Rename(tempPath, targetPath); err != nil {
		return nil, fmt.Errorf("storage: не удалось переименовать файл: %w", err)
	}

	return &StoredDocument{
		Ref:      filepath.ToSlash(filepath.Join(ownerID.String(), fileName)),
		Checksum: hex.EncodeToString(hash.Sum(nil)),
		Size:     written,
		MIME:     kind.MIME.Value,
	}, nil
}

// Exists проверяет, что ссылка указывает на загруженный документ внутри хранилища.
func (s *DocumentStorage) Exists(ref string) bool {
	clean := filepath.Clean(filepath.FromSlash(ref))
	if clean == "." || filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return false
	}
	info, err := os.Stat(filepath.Join(s.rootPath, clean))
	return err == nil && !info.IsDir()
}

// baseName оставляет от имени файла только безопасные символы без расширения.
func baseName(name string) string {
	name = strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
		if b.Len() >= 64 {
			break
		}
	}
	if b.Len() == 0 || name == "." {
		return "document"
	}
	return b.String()
}
