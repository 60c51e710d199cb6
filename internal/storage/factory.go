package storage

import "strings"

// NewFileStore creates a FileStore for the given base path or URL.
// Parameters:
//   - path: dataset root path. s3:// selects the S3 store, http:// or
//     https:// the HTTP store, anything else the local filesystem.
//   - cfg: storage configuration used by the S3 backend.
// Returns:
//   - FileStore: initialized store implementation.
//   - error: non-nil if the backend cannot be created.
func NewFileStore(path string, cfg *S3Config) (FileStore, error) {
	switch {
	case strings.HasPrefix(path, "s3://"):
		return NewS3Store(cfg)
	case strings.HasPrefix(path, "http://"), strings.HasPrefix(path, "https://"):
		return NewHTTPStore(), nil
	default:
		return NewLocalStore(), nil
	}
}

// detectStorageType attempts to detect the storage type from the endpoint
func detectStorageType(endpoint string) StorageType {
	endpoint = strings.ToLower(endpoint)

	switch {
	case strings.Contains(endpoint, "r2.cloudflarestorage.com"):
		return StorageTypeR2
	case strings.Contains(endpoint, "amazonaws.com"):
		return StorageTypeS3
	case endpoint == "":
		return StorageTypeS3
	default:
		return StorageTypeS3Compatible
	}
}

// joinURL joins URL elements with "/" without collapsing the scheme's
// double slash the way path.Join would
func joinURL(elem ...string) string {
	if len(elem) == 0 {
		return ""
	}
	parts := make([]string, 0, len(elem))
	parts = append(parts, strings.TrimSuffix(elem[0], "/"))
	for _, e := range elem[1:] {
		e = strings.Trim(e, "/")
		if e != "" {
			parts = append(parts, e)
		}
	}
	return strings.Join(parts, "/")
}
