package localStorage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/svemana/KnowledgeAPI/internal/adapter/utils"
	"github.com/svemana/KnowledgeAPI/internal/config"
	"github.com/svemana/KnowledgeAPI/pkg/logger_i"
)

var ErrBadStoragePath = errors.New("invalid storage path")

// Storage keeps uploaded source files on local disk under one base directory.
// Storage paths handed out to callers are opaque and relative; the absolute
// location never leaves this package.
type Storage struct {
	baseDir string
	logger  *logger_i.Logger
}

var instance *Storage
var once sync.Once
var initErr error

func GetLocalStorage() (*Storage, error) {
	once.Do(func() {
		baseDir := os.Getenv("STORAGE_DIR")
		if baseDir == "" {
			root, err := os.Getwd()
			if err != nil {
				initErr = err
				return
			}
			baseDir = filepath.Join(root, config.StorageDirName)
		}
		if err := os.MkdirAll(baseDir, 0750); err != nil {
			initErr = err
			return
		}
		instance = &Storage{
			baseDir: baseDir,
			logger:  logger_i.NewLogger("Local Storage"),
		}
	})
	return instance, initErr
}

// NewTestStorage builds a storage rooted at dir, bypassing the singleton.
func NewTestStorage(dir string) *Storage {
	return &Storage{baseDir: dir, logger: logger_i.NewLogger("Local Storage")}
}

// Save writes an uploaded file and returns its opaque storage path. The stored
// name is prefixed with a fresh uuid so identical filenames never collide.
func (s *Storage) Save(ctx context.Context, tenantId string, fileName string, data []byte) (string, error) {
	log := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "tenantId", tenantId)

	safeName := sanitizeFileName(fileName)
	if safeName == "" {
		return "", fmt.Errorf("%w: unusable file name %q", ErrBadStoragePath, fileName)
	}

	relPath := filepath.Join(tenantId, utils.GetNewUUID()+"_"+safeName)
	fullPath := filepath.Join(s.baseDir, relPath)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0750); err != nil {
		return "", err
	}
	if err := os.WriteFile(fullPath, data, 0640); err != nil {
		log.Error("writing uploaded file failed", "error", err)
		return "", err
	}

	log.Debug("stored uploaded file", "path", relPath, "bytes", len(data))
	return relPath, nil
}

// Resolve maps an opaque storage path back to a readable local path. Paths that
// escape the base directory are rejected.
func (s *Storage) Resolve(ctx context.Context, storagePath string) (string, error) {
	cleaned := filepath.Clean(storagePath)
	if cleaned == "." || strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("%w: %s", ErrBadStoragePath, storagePath)
	}

	fullPath := filepath.Join(s.baseDir, cleaned)
	if _, err := os.Stat(fullPath); err != nil {
		return "", err
	}
	return fullPath, nil
}

func (s *Storage) ReadBytes(ctx context.Context, storagePath string) ([]byte, error) {
	fullPath, err := s.Resolve(ctx, storagePath)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(fullPath)
}

func (s *Storage) Delete(ctx context.Context, storagePath string) error {
	fullPath, err := s.Resolve(ctx, storagePath)
	if err != nil {
		return err
	}
	return os.Remove(fullPath)
}

func sanitizeFileName(name string) string {
	name = filepath.Base(name)
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '-' || r == '_':
			return r
		default:
			return '_'
		}
	}, name)
	name = strings.Trim(name, "._")
	return name
}
