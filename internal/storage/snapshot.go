package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// checksumSuffix names the object holding a snapshot's sha256.
const checksumSuffix = ".sha256"

// PublishCorpus uploads a corpus database and its checksum.
func PublishCorpus(ctx context.Context, st ObjectStorage, localPath, objectPath string) (string, error) {
	sum, err := fileChecksum(localPath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	if err := st.Upload(ctx, localPath, objectPath); err != nil {
		return "", err
	}

	sumFile, err := os.CreateTemp("", "corpus-*.sha256")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	defer os.Remove(sumFile.Name())
	if _, err := sumFile.WriteString(sum + "\n"); err != nil {
		sumFile.Close()
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	if err := sumFile.Close(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	if err := st.Upload(ctx, sumFile.Name(), objectPath+checksumSuffix); err != nil {
		return "", err
	}
	return sum, nil
}

// FetchCorpus downloads a corpus snapshot to localPath. The file is written
// next to its destination and renamed into place only after the checksum, if
// one was published, matches.
func FetchCorpus(ctx context.Context, st ObjectStorage, objectPath, localPath string) error {
	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}

	tmpPath := localPath + ".download"
	defer os.Remove(tmpPath)

	if err := st.Download(ctx, objectPath, tmpPath); err != nil {
		return err
	}

	hasSum, err := st.Exists(ctx, objectPath+checksumSuffix)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	if hasSum {
		sumPath := tmpPath + checksumSuffix
		defer os.Remove(sumPath)
		if err := st.Download(ctx, objectPath+checksumSuffix, sumPath); err != nil {
			return err
		}
		want, err := os.ReadFile(sumPath)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrDownloadFailed, err)
		}
		got, err := fileChecksum(tmpPath)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrDownloadFailed, err)
		}
		if strings.TrimSpace(string(want)) != got {
			return fmt.Errorf("%w: %s", ErrChecksumMismatch, objectPath)
		}
	}

	if err := os.Rename(tmpPath, localPath); err != nil {
		return fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	return nil
}

func fileChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
